// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ident normalizes user-facing identifiers (user names, emails) into
// the canonical form used for uniqueness checks and lookups.
//
// # Pipeline
//
//  1. NFC normalization, so "é" typed as e + combining acute and as the
//     precomposed rune compare equal.
//  2. Surrounding whitespace is trimmed.
//  3. The result is lowercased.
package ident

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical form of a user name or email.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Clean trims and NFC-normalizes free text (e.g. a full name) without
// changing its case.
func Clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
