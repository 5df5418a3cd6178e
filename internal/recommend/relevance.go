// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

package recommend

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeInterests lowercases, trims and de-duplicates interests, dropping
// empty ones. Order is preserved.
func NormalizeInterests(interests []string) []string {
	out := make([]string, 0, len(interests))
	seen := make(map[string]struct{}, len(interests))
	for _, in := range interests {
		in = strings.ToLower(strings.TrimSpace(in))
		if in == "" {
			continue
		}
		if _, dup := seen[in]; dup {
			continue
		}
		seen[in] = struct{}{}
		out = append(out, in)
	}
	return out
}

// Relevant reports whether any tag matches any interest, exactly or
// partially, ignoring case. With no interests everything is
// relevant. interests must already be normalized.
func Relevant(tags, interests []string) bool {
	if len(interests) == 0 {
		return true
	}
	exact, partial := matchCounts(tags, interests)
	return exact+partial > 0
}

// matchCounts counts tags equal to some interest, and tag/interest pairs that
// match partially. A pair counted as exact is not also counted as partial.
func matchCounts(tags, interests []string) (exact, partial int) {
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if containsString(interests, tag) {
			exact++
		}
		for _, in := range interests {
			if in == tag {
				continue
			}
			if partialMatch(tag, in) {
				partial++
			}
		}
	}
	return exact, partial
}

// minWordLen is the shortest word that takes part in word-level matching.
const minWordLen = 3

// partialMatch is true when one string contains the other, or when a word of
// one is a prefix of a word of the other. "tech-news" matches "technology"
// through "tech"; "new-york" does not match "renew".
func partialMatch(tag, interest string) bool {
	if strings.Contains(tag, interest) || strings.Contains(interest, tag) {
		return true
	}
	for _, tw := range words(tag) {
		for _, iw := range words(interest) {
			if strings.HasPrefix(tw, iw) || strings.HasPrefix(iw, tw) {
				return true
			}
		}
	}
	return false
}

// words splits s on non-alphanumerics, keeping words of at least minWordLen
// runes.
func words(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) >= minWordLen {
			out = append(out, p)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
