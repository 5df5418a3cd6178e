// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package normalize turns raw fetched items into Content records.
//
// Markup is removed with goquery, which also decodes entities. The excerpt is
// always capped at ExcerptLimit characters; FullText carries the uncapped body
// only for public-domain sources and otherwise repeats the excerpt.
package normalize

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomtom215/readstream/internal/models"
)

const (
	// ExcerptLimit is the hard cap on excerpt length in characters.
	ExcerptLimit = 200

	// TitleLimit caps titles.
	TitleLimit = 300

	ellipsis = "…"
)

// Declared is the static metadata a source attaches to every item it emits.
type Declared struct {
	Source      string
	SourceURL   string
	Tags        []string
	License     models.License
	ContentType models.ContentType
	Important   bool
}

// Item normalizes raw. The returned record has no ID or CreatedAt; those are
// assigned when the record is first persisted or previewed.
func Item(raw models.RawItem, d Declared, now time.Time) models.Content {
	body := StripMarkup(raw.Description)
	excerpt := Truncate(body, ExcerptLimit)

	fullText := excerpt
	if d.License.AllowsFullText() {
		fullText = body
	}

	contentType := d.ContentType
	if contentType == "" {
		contentType = models.ContentArticle
	}

	return models.Content{
		Title:       Truncate(StripMarkup(raw.Title), TitleLimit),
		Excerpt:     excerpt,
		FullText:    fullText,
		Tags:        Tags(d.Tags, raw.Categories),
		PublishedAt: PublishedAt(raw, now),
		SourceURL:   d.SourceURL,
		ArticleURL:  strings.TrimSpace(raw.Link),
		Source:      d.Source,
		License:     d.License,
		ContentType: contentType,
		Important:   d.Important,
	}
}

// StripMarkup removes all tags from s, decodes entities and collapses
// whitespace. Text that still looks like markup after one pass (escaped HTML
// inside a feed field) is parsed a second time.
func StripMarkup(s string) string {
	out := stripOnce(s)
	if strings.ContainsRune(out, '<') && strings.ContainsRune(out, '>') {
		out = stripOnce(out)
	}
	return out
}

func stripOnce(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style, noscript, iframe").Remove()
	// Block-level breaks would otherwise glue adjacent words together.
	doc.Find("br, p, div, li, h1, h2, h3, h4, h5, h6, blockquote").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Truncate caps s at limit characters, preferring a word boundary and
// marking the cut with an ellipsis that counts toward the limit.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := limit - utf8.RuneCountInString(ellipsis)
	if cut <= 0 {
		return string(runes[:limit])
	}
	head := string(runes[:cut])
	if i := strings.LastIndexByte(head, ' '); i > len(head)/2 {
		head = head[:i]
	}
	return strings.TrimRight(head, " ,;:.-") + ellipsis
}

// Tags merges declared tags with feed categories, lowercased and de-duplicated
// in first-seen order.
func Tags(declared, categories []string) []string {
	out := make([]string, 0, len(declared)+len(categories))
	seen := make(map[string]struct{}, cap(out))
	for _, group := range [][]string{declared, categories} {
		for _, t := range group {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// PublishedAt returns the parsed publish time, or now when the item has none
// or it cannot be parsed.
func PublishedAt(raw models.RawItem, now time.Time) time.Time {
	if raw.PublishedAt != nil && !raw.PublishedAt.IsZero() {
		return raw.PublishedAt.UTC()
	}
	if t, ok := ParseDate(raw.Published); ok {
		return t
	}
	return now.UTC()
}

// ParseDate tries the date layouts common in feeds and JSON APIs.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
