// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package syncer decides, per document, whether the remote knowledge base
// needs a create, an update, or nothing, and drives the remote calls.
package syncer

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the MD5 hex digest of body after normalization.
// Deterministic and pure; an empty body is valid content and hashes like
// any other.
func Fingerprint(body string) string {
	sum := md5.Sum([]byte(Normalize(body)))
	return hex.EncodeToString(sum[:])
}

// Normalize strips trailing whitespace from every line and trims blank
// lines from both ends, so incidental formatting drift between runs does
// not register as a content change.
func Normalize(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
