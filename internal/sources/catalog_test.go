// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package sources

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/readstream/internal/config"
	"github.com/tomtom215/readstream/internal/models"
	"github.com/tomtom215/readstream/internal/normalize"
)

// stubSource is a Source with a canned result.
type stubSource struct {
	name, group string
}

func (s stubSource) Name() string                 { return s.name }
func (s stubSource) Group() string                { return s.group }
func (s stubSource) Info() Info                   { return Info{Name: s.name, Group: s.group} }
func (s stubSource) Declared() normalize.Declared { return normalize.Declared{Source: s.name} }
func (s stubSource) Fetch(context.Context) FetchResult {
	return FetchResult{Success: true, Source: s.name}
}

func names(srcs []Source) string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = s.Name()
	}
	return strings.Join(out, ",")
}

func TestCatalog_Select(t *testing.T) {
	t.Parallel()

	c, err := NewCatalog(
		stubSource{"ars", "tech"},
		stubSource{"hn", "tech"},
		stubSource{"poems", "poetry"},
		stubSource{"guardian", "news-guardian"},
	)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	tests := []struct {
		name    string
		sel     []string
		want    string
		wantErr bool
	}{
		{"all", nil, "ars,hn,poems,guardian", false},
		{"by group", []string{"tech"}, "ars,hn", false},
		{"by name", []string{"poems"}, "poems", false},
		{"mixed keeps catalog order", []string{"guardian", "tech"}, "ars,hn,guardian", false},
		{"unknown", []string{"tech", "nope"}, "", true},
	}
	for _, tt := range tests {
		got, err := c.Select(tt.sel)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownSource) {
				t.Errorf("%s: expected ErrUnknownSource, got %v", tt.name, err)
			} else if !strings.Contains(err.Error(), "nope") {
				t.Errorf("%s: error should name the unknown source: %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: Select() error = %v", tt.name, err)
			continue
		}
		if names(got) != tt.want {
			t.Errorf("%s: Select() = %s, want %s", tt.name, names(got), tt.want)
		}
	}

	if _, err := c.Get("missing"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestNewCatalog_DuplicateName(t *testing.T) {
	t.Parallel()

	if _, err := NewCatalog(stubSource{"a", "g"}, stubSource{"a", "h"}); err == nil {
		t.Error("expected duplicate name error")
	}
}

func TestFromConfig_Builtin(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Sources: config.SourcesConfig{
		Credentials: map[string]string{"guardian": "key"},
	}}
	c, err := FromConfig(cfg, testEnv(nil))
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if c.Len() != len(BuiltinFeeds())+len(BuiltinAPIs()) {
		t.Errorf("Len() = %d", c.Len())
	}

	configured := map[string]bool{}
	for _, info := range c.Infos() {
		configured[info.Name] = info.Configured
	}
	if !configured["guardian-culture"] {
		t.Error("guardian source should be configured")
	}
	if configured["newsapi-tech"] {
		t.Error("newsapi source should not be configured without a key")
	}

	poems, err := c.Get("poem-a-day")
	if err != nil {
		t.Fatalf("Get(poem-a-day) error = %v", err)
	}
	if poems.Declared().ContentType != models.ContentPoem {
		t.Errorf("poem-a-day content type = %q", poems.Declared().ContentType)
	}
}

func TestFromConfig_Declared(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Sources: config.SourcesConfig{
		Feeds: []config.FeedSourceConfig{
			{Name: "only", Group: "g", URL: "https://example.com/feed", License: "public-domain", Important: true},
		},
	}}
	c, err := FromConfig(cfg, testEnv(nil))
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("declared catalog should replace the built-in one, Len() = %d", c.Len())
	}
	d := c.All()[0].Declared()
	if d.License != models.LicensePublicDomain || !d.Important || d.ContentType != models.ContentArticle {
		t.Errorf("Declared() = %+v", d)
	}

	cfg.Sources.Feeds[0].License = "copyleft"
	if _, err := FromConfig(cfg, testEnv(nil)); err == nil {
		t.Error("expected error for unknown license")
	}
}
