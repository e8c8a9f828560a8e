// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"category", "Restaurants", "restaurants"},
		{"two words", "Home Services", "home-services"},
		{"mixed case", "IT & Software CONSULTING", "it-software-consulting"},
		{"business with year", "Smith & Sons Plumbing (Est. 1998)", "smith-sons-plumbing-est-1998"},
		{"apostrophe", "Joe's Pizza", "joes-pizza"},
		{"slash", "Bars/Pubs | Nightlife", "barspubs-nightlife"},
		{"hash and dollar", "Shop #42 from $10", "shop-42-from-10"},
		{"dotted version", "Garage 2.0", "garage-20"},
		{"date-like", "Open 2026-02-25", "open-2026-02-25"},

		{"french accents", "Crêperie Bretonne: Spécialités", "creperie-bretonne-specialites"},
		{"german umlauts", "Bäckerei Müller", "backerei-muller"},
		{"sharp s", "Straßencafé", "strassencafe"},
		{"danish o", "Smørrebrød Økologisk", "smorrebrod-okologisk"},
		{"ligatures", "Œuvre Ærø", "oeuvre-aero"},
		{"polish l", "Łódź Kebab", "lodz-kebab"},
		{"romanian comma below", "Brașov Șantier", "brasov-santier"},
		{"non-latin stripped", "Tea 茶 House", "tea-house"},
		{"emoji stripped", "Flowers 🌷 & Plants", "flowers-plants"},

		{"surrounding spaces", "   Dentists  ", "dentists"},
		{"tabs and newlines", "Car\tWash\n\nExpress", "car-wash-express"},
		{"hyphen kept", "Well-Known Bakery", "well-known-bakery"},
		{"hyphen runs", "--Auto -- Repair--", "auto-repair"},

		{"empty", "", ""},
		{"spaces only", "    ", ""},
		{"hyphens only", "----", ""},
		{"symbols only", "!@#$%^&*()", ""},
		{"single letter", "Z", "z"},
		{"digits", "24 7", "24-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateStable(t *testing.T) {
	// Already generated slugs map to themselves.
	for _, s := range []string{"restaurants", "auto-repair-24-7", "a", "2026"} {
		if got := Generate(s); got != s {
			t.Errorf("Generate(%q) = %q, want unchanged", s, got)
		}
	}

	// Case never matters.
	for _, s := range []string{"PET GROOMING", "Pet Grooming", "pEt gRoOmInG"} {
		if got := Generate(s); got != "pet-grooming" {
			t.Errorf("Generate(%q) = %q, want pet-grooming", s, got)
		}
	}
}

func TestGenerateLongName(t *testing.T) {
	words := strings.Repeat("Family Owned ", 20)
	got := Generate(words)
	want := strings.TrimSuffix(strings.Repeat("family-owned-", 20), "-")
	if got != want {
		t.Errorf("Generate(long) = %q, want %q", got, want)
	}
}

func TestWithSuffix(t *testing.T) {
	now := time.UnixMilli(1_717_171_234_567)
	got := WithSuffix("restaurants", now)
	if got != "restaurants-234567" {
		t.Errorf("WithSuffix = %q, want %q", got, "restaurants-234567")
	}

	// The suffixed form must itself be a valid slug.
	if Generate(got) != got {
		t.Errorf("suffixed slug %q is not stable under Generate", got)
	}
}

func TestWithSuffixShortNumericToken(t *testing.T) {
	pattern := regexp.MustCompile(`^cafe-\d{1,6}$`)
	for _, ms := range []int64{0, 999_999, 1_000_000, 1_760_000_000_123} {
		got := WithSuffix("cafe", time.UnixMilli(ms))
		if !pattern.MatchString(got) {
			t.Errorf("WithSuffix(cafe, %d) = %q, want cafe-<1..6 digits>", ms, got)
		}
	}
}
