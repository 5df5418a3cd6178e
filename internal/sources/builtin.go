// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package sources

import "github.com/tomtom215/readstream/internal/config"

// BuiltinFeeds is the default feed catalog used when the configuration
// declares no sources.
func BuiltinFeeds() []config.FeedSourceConfig {
	return []config.FeedSourceConfig{
		{
			Name: "gutenberg-new", Group: "classics",
			URL:     "https://www.gutenberg.org/cache/epub/feeds/today.rss",
			Tags:    []string{"literature", "classics"},
			License: "public-domain",
		},
		{
			Name: "nasa-breaking", Group: "science",
			URL:     "https://www.nasa.gov/news-release/feed/",
			Tags:    []string{"science", "space"},
			License: "public-domain",
		},
		{
			Name: "poem-a-day", Group: "poetry",
			URL:         "https://poets.org/poem-a-day/feed",
			Tags:        []string{"poetry"},
			License:     "rss",
			ContentType: "poem",
		},
		{
			Name: "ars-technica", Group: "tech",
			URL:     "https://feeds.arstechnica.com/arstechnica/index",
			Tags:    []string{"technology", "science"},
			License: "rss",
		},
		{
			Name: "hacker-news", Group: "tech",
			URL:     "https://hnrss.org/frontpage",
			Tags:    []string{"technology", "tech-news"},
			License: "rss",
		},
		{
			Name: "smashing-magazine", Group: "design",
			URL:     "https://www.smashingmagazine.com/feed/",
			Tags:    []string{"design", "technology"},
			License: "rss",
		},
	}
}

// BuiltinAPIs is the default query API catalog. Each entry is inert until its
// credential is configured.
func BuiltinAPIs() []config.APISourceConfig {
	return []config.APISourceConfig{
		{
			Name: "guardian-culture", Group: "news-guardian", Kind: string(KindGuardian),
			Endpoint:   "https://content.guardianapis.com/search",
			Queries:    []string{"section:culture", "section:books", "section:technology"},
			Credential: "guardian",
			Tags:       []string{"news", "culture"},
			License:    "api",
		},
		{
			Name: "newsapi-tech", Group: "news-headlines", Kind: string(KindNewsAPI),
			Endpoint:   "https://newsapi.org/v2/everything",
			Queries:    []string{"technology", "design"},
			Credential: "newsapi",
			Tags:       []string{"news", "technology"},
			License:    "restricted",
		},
	}
}
