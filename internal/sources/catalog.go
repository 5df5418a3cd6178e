// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package sources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/models"
)

// Catalog is the registry of configured sources, in declaration order.
type Catalog struct {
	sources []Source
	byName  map[string]Source
}

// NewCatalog registers srcs. Duplicate names are an error.
func NewCatalog(srcs ...Source) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Source, len(srcs))}
	for _, s := range srcs {
		if _, dup := c.byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate source name %q", s.Name())
		}
		c.byName[s.Name()] = s
		c.sources = append(c.sources, s)
	}
	return c, nil
}

// FromConfig builds the catalog declared in cfg.Sources, or the built-in
// catalog when none is declared. Credentials are resolved by name.
func FromConfig(cfg *config.Config, env Env) (*Catalog, error) {
	feeds, apis := cfg.Sources.Feeds, cfg.Sources.APIs
	if len(feeds) == 0 && len(apis) == 0 {
		feeds, apis = BuiltinFeeds(), BuiltinAPIs()
	}

	srcs := make([]Source, 0, len(feeds)+len(apis))
	for _, f := range feeds {
		spec, err := feedSpecFromConfig(f)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, NewFeedSource(spec, env))
	}
	for _, a := range apis {
		spec, err := apiSpecFromConfig(a, cfg.Credential(a.Credential))
		if err != nil {
			return nil, err
		}
		s, err := NewQueryAPISource(spec, env)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, s)
	}
	return NewCatalog(srcs...)
}

func feedSpecFromConfig(f config.FeedSourceConfig) (FeedSpec, error) {
	lic, ct, err := parseLicenseAndType(f.Name, f.License, f.ContentType)
	if err != nil {
		return FeedSpec{}, err
	}
	return FeedSpec{
		Name:        f.Name,
		Group:       f.Group,
		URL:         f.URL,
		Tags:        f.Tags,
		License:     lic,
		ContentType: ct,
		Important:   f.Important,
	}, nil
}

func apiSpecFromConfig(a config.APISourceConfig, key string) (APISpec, error) {
	lic, ct, err := parseLicenseAndType(a.Name, a.License, a.ContentType)
	if err != nil {
		return APISpec{}, err
	}
	return APISpec{
		Name:        a.Name,
		Group:       a.Group,
		Kind:        Kind(a.Kind),
		Endpoint:    a.Endpoint,
		Queries:     a.Queries,
		Credential:  a.Credential,
		Key:         key,
		Tags:        a.Tags,
		License:     lic,
		ContentType: ct,
	}, nil
}

func parseLicenseAndType(name, license, contentType string) (models.License, models.ContentType, error) {
	if license == "" {
		license = string(models.LicenseRSS)
	}
	lic, err := models.ParseLicense(license)
	if err != nil {
		return "", "", fmt.Errorf("source %s: %w", name, err)
	}
	ct, err := models.ParseContentType(contentType)
	if err != nil {
		return "", "", fmt.Errorf("source %s: %w", name, err)
	}
	return lic, ct, nil
}

// All returns every source.
func (c *Catalog) All() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Len returns the number of registered sources.
func (c *Catalog) Len() int {
	return len(c.sources)
}

// Get returns the source called name.
func (c *Catalog) Get(name string) (Source, error) {
	s, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return s, nil
}

// Select returns the sources whose name or group matches any of names, in
// catalog order. No names selects everything. Names that match nothing are
// reported together as ErrUnknownSource.
func (c *Catalog) Select(names []string) ([]Source, error) {
	if len(names) == 0 {
		return c.All(), nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = false
	}

	var out []Source
	for _, s := range c.sources {
		_, byName := want[s.Name()]
		_, byGroup := want[s.Group()]
		if !byName && !byGroup {
			continue
		}
		if byName {
			want[s.Name()] = true
		}
		if byGroup {
			want[s.Group()] = true
		}
		out = append(out, s)
	}

	var unknown []string
	for n, matched := range want {
		if !matched {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, strings.Join(unknown, ", "))
	}
	return out, nil
}

// Infos describes every source.
func (c *Catalog) Infos() []Info {
	out := make([]Info, 0, len(c.sources))
	for _, s := range c.sources {
		out = append(out, s.Info())
	}
	return out
}
