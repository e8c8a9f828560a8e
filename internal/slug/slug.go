// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, whitespace, or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespace matches runs of spaces, tabs, and newlines.
	whitespace = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)

	// letters that do not decompose into base + combining mark.
	ligatures = strings.NewReplacer("ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "đ", "d", "ł", "l")
)

// suffixModulus bounds the time-derived disambiguation suffix to six digits.
const suffixModulus = 1_000_000

// Generate creates a URL-friendly slug from the given string.
// Diacritics are folded to their base letter before anything else is removed.
// Example: "Café Déjà Vu, 2026!" → "cafe-deja-vu-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = ligatures.Replace(result)
	result = foldDiacritics(result)
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// WithSuffix appends a short numeric token derived from now to base.
// It is used once when base is already taken; the suffixed form is not
// re-checked for collisions.
func WithSuffix(base string, now time.Time) string {
	return base + "-" + strconv.FormatInt(now.UnixMilli()%suffixModulus, 10)
}

// foldDiacritics decomposes s, drops combining marks, and recomposes it.
// A transformer chain carries state, so one is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
