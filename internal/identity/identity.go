// Readstream - Content Aggregation and Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readstream

// Package identity derives stable content IDs from item URLs.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// IDLength is the length of every derived ID in hex characters.
	IDLength = 24

	// maxKeyPrefix bounds the normalized URL before hashing.
	maxKeyPrefix = 200

	filler = '_'
)

// Normalize lowercases u, removes its scheme and trailing slashes, and maps
// every non-alphanumeric byte to an underscore.
func Normalize(u string) string {
	s := strings.ToLower(strings.TrimSpace(u))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimRight(s, "/")

	b := []byte(s)
	for i, c := range b {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			b[i] = filler
		}
	}
	if len(b) > maxKeyPrefix {
		b = b[:maxKeyPrefix]
	}
	return string(b)
}

// DeriveID returns the fixed-length ID for u. Equal URLs up to case, scheme
// and trailing slash produce equal IDs.
func DeriveID(u string) string {
	sum := sha256.Sum256([]byte(Normalize(u)))
	return hex.EncodeToString(sum[:])[:IDLength]
}
