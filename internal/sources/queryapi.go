// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tomtom215/readstream/internal/logging"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/normalize"
	"github.com/tomtom215/readstream/internal/retry"
)

// maxResponseBytes caps a single API response body.
const maxResponseBytes = 8 << 20

// decoder adapts one API dialect.
type decoder interface {
	request(ctx context.Context, endpoint, query, key string) (*http.Request, error)
	decode(body []byte) ([]models.RawItem, error)
}

// APISpec declares a query API source.
type APISpec struct {
	Name        string
	Group       string
	Kind        Kind
	Endpoint    string
	Queries     []string
	Credential  string // credential name, for messages
	Key         string // resolved credential value
	Tags        []string
	License     models.License
	ContentType models.ContentType
}

// QueryAPISource issues one request per query and merges the results.
type QueryAPISource struct {
	spec     APISpec
	declared normalize.Declared
	dec      decoder
	env      Env
}

// NewQueryAPISource builds a query API source. An unknown kind or an empty
// query list is an error.
func NewQueryAPISource(spec APISpec, env Env) (*QueryAPISource, error) {
	var dec decoder
	switch spec.Kind {
	case KindGuardian:
		dec = guardianDecoder{}
	case KindNewsAPI:
		dec = newsAPIDecoder{}
	default:
		return nil, fmt.Errorf("source %s: unsupported api kind %q", spec.Name, spec.Kind)
	}
	if len(spec.Queries) == 0 {
		return nil, fmt.Errorf("source %s: %w", spec.Name, ErrNoQueries)
	}
	if spec.Group == "" {
		spec.Group = spec.Name
	}
	if env.Timeout <= 0 {
		env.Timeout = DefaultFetchTimeout
	}
	if env.Client == nil {
		env.Client = http.DefaultClient
	}
	return &QueryAPISource{
		spec: spec,
		declared: normalize.Declared{
			Source:      spec.Name,
			SourceURL:   spec.Endpoint,
			Tags:        spec.Tags,
			License:     spec.License,
			ContentType: spec.ContentType,
		},
		dec: dec,
		env: env,
	}, nil
}

func (s *QueryAPISource) Name() string  { return s.spec.Name }
func (s *QueryAPISource) Group() string { return s.spec.Group }

// Declared returns the metadata attached to every item.
func (s *QueryAPISource) Declared() normalize.Declared { return s.declared }

// Info describes the source. Configured is false when no key is set.
func (s *QueryAPISource) Info() Info {
	return Info{
		Name:        s.spec.Name,
		Group:       s.spec.Group,
		Kind:        s.spec.Kind,
		URL:         s.spec.Endpoint,
		Tags:        s.spec.Tags,
		License:     s.spec.License,
		ContentType: s.spec.ContentType,
		Configured:  s.spec.Key != "",
	}
}

// Fetch runs every query in order. The source succeeds if at least one query
// does; failed queries are logged and the source error lists them.
func (s *QueryAPISource) Fetch(ctx context.Context) FetchResult {
	if s.spec.Key == "" {
		return failed(s.spec.Name, fmt.Errorf("%s: %w (%s)", s.spec.Name, ErrMissingCredential, s.spec.Credential))
	}

	var (
		items     []models.RawItem
		errs      []error
		succeeded int
	)
	for _, q := range s.spec.Queries {
		got, err := retry.DoValue(ctx, s.env.Retry, func(ctx context.Context) ([]models.RawItem, error) {
			return s.query(ctx, q)
		})
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("source", s.spec.Name).
				Str("query", q).
				Msg("Source query failed")
			errs = append(errs, fmt.Errorf("query %q: %w", q, err))
			continue
		}
		succeeded++
		items = append(items, got...)
	}

	if succeeded == 0 {
		return failed(s.spec.Name, fmt.Errorf("%s: %w", s.spec.Name, errors.Join(errs...)))
	}
	return FetchResult{Success: true, Source: s.spec.Name, Items: items}
}

func (s *QueryAPISource) query(ctx context.Context, q string) ([]models.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.env.Timeout)
	defer cancel()

	req, err := s.dec.request(ctx, s.spec.Endpoint, q, s.spec.Key)
	if err != nil {
		return nil, err
	}
	if s.env.UserAgent != "" {
		req.Header.Set("User-Agent", s.env.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.env.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.NewStatusError(string(s.spec.Kind)+" query", resp.StatusCode, body)
	}
	return s.dec.decode(body)
}
