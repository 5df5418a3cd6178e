// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/normalize"
	"github.com/tomtom215/readstream/internal/retry"
)

// FeedSource reads a syndication feed.
type FeedSource struct {
	name     string
	group    string
	url      string
	declared normalize.Declared
	parser   *gofeed.Parser
	env      Env
}

// FeedSpec declares a feed source.
type FeedSpec struct {
	Name        string
	Group       string
	URL         string
	Tags        []string
	License     models.License
	ContentType models.ContentType
	Important   bool
}

// NewFeedSource builds a feed source that fetches through env.Client.
func NewFeedSource(spec FeedSpec, env Env) *FeedSource {
	parser := gofeed.NewParser()
	parser.Client = env.Client
	if env.UserAgent != "" {
		parser.UserAgent = env.UserAgent
	}
	if env.Timeout <= 0 {
		env.Timeout = DefaultFetchTimeout
	}
	group := spec.Group
	if group == "" {
		group = spec.Name
	}
	return &FeedSource{
		name:  spec.Name,
		group: group,
		url:   spec.URL,
		declared: normalize.Declared{
			Source:      spec.Name,
			SourceURL:   spec.URL,
			Tags:        spec.Tags,
			License:     spec.License,
			ContentType: spec.ContentType,
			Important:   spec.Important,
		},
		parser: parser,
		env:    env,
	}
}

func (s *FeedSource) Name() string  { return s.name }
func (s *FeedSource) Group() string { return s.group }

// Declared returns the metadata attached to every item.
func (s *FeedSource) Declared() normalize.Declared { return s.declared }

// Info describes the source.
func (s *FeedSource) Info() Info {
	return Info{
		Name:        s.name,
		Group:       s.group,
		Kind:        KindFeed,
		URL:         s.url,
		Tags:        s.declared.Tags,
		License:     s.declared.License,
		ContentType: s.declared.ContentType,
		Configured:  true,
	}
}

// Fetch parses the feed. Entries without a link are dropped.
func (s *FeedSource) Fetch(ctx context.Context) FetchResult {
	ctx, cancel := context.WithTimeout(ctx, s.env.Timeout)
	defer cancel()

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			err = retry.NewStatusError("fetch feed", httpErr.StatusCode, nil)
		}
		return failed(s.name, fmt.Errorf("%s: %w", s.name, err))
	}

	items := make([]models.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if item, ok := rawFromEntry(entry); ok {
			items = append(items, item)
		}
	}
	return FetchResult{Success: true, Source: s.name, Items: items}
}

func rawFromEntry(entry *gofeed.Item) (models.RawItem, bool) {
	if entry == nil {
		return models.RawItem{}, false
	}
	link := strings.TrimSpace(entry.Link)
	if link == "" && len(entry.Links) > 0 {
		link = strings.TrimSpace(entry.Links[0])
	}
	if link == "" {
		return models.RawItem{}, false
	}

	body := entry.Description
	if len(entry.Content) > len(body) {
		body = entry.Content
	}

	item := models.RawItem{
		Title:       entry.Title,
		Link:        link,
		Description: body,
		Published:   entry.Published,
		Categories:  entry.Categories,
	}
	switch {
	case entry.PublishedParsed != nil:
		item.PublishedAt = entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		item.PublishedAt = entry.UpdatedParsed
	}
	return item, true
}
