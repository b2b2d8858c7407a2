package qacache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize canonicalizes a question for matching: lowercase, surrounding
// whitespace trimmed, "?" and "." stripped. Questions that normalize to the
// same string share a fingerprint.
func Normalize(question string) string {
	q := strings.TrimSpace(strings.ToLower(question))
	q = strings.ReplaceAll(q, "?", "")
	q = strings.ReplaceAll(q, ".", "")
	return q
}

// Fingerprint derives the cache key for a question: the sha256 hex digest of
// its normalized form. Stable across restarts and platforms.
func Fingerprint(question string) string {
	sum := sha256.Sum256([]byte(Normalize(question)))
	return hex.EncodeToString(sum[:])
}
