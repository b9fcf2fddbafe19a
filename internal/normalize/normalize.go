// Package normalize provides pure functions that turn locale-formatted text
// from Spanish restaurant invoices (currency amounts, dates, product
// descriptors) into canonical values. It is intentionally small and
// deterministic: no I/O, no logging, safe for concurrent use.
//
// The normalization rules are conservative and lossy by design. Two invoices
// for the same product rarely print the descriptor identically; the goal is
// a stable lookup key, not a faithful rendition. NormalizeProductName is
// idempotent: normalize(normalize(x)) == normalize(x).
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// amountCleanRE strips currency symbols and everything that is not part of a
// plain number once separators are resolved.
var amountCleanRE = regexp.MustCompile(`[€$\s]`)

// ParseAmount parses a Spanish-formatted monetary string ("1.234,56 €") into
// a decimal. When both "." and "," are present, "." is the thousands
// separator and "," the decimal mark; a lone "," is a decimal mark. Negative
// and unparseable values are rejected.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = amountCleanRE.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return decimal.Zero, false
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		// Spanish convention: 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// dateLayouts is the ordered cascade of explicit formats tried before the
// native fallback. Go's time.Parse rejects impossible calendar dates
// (31/02 etc.) on its own, which covers the round-trip validation.
var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"02.01.06",
}

// fallbackLayouts are the formats accepted when no explicit pattern matched.
var fallbackLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate parses day-first Spanish date strings. Two-digit years are
// assumed to be 2000+. Returns false when no layout matches or the date is
// not a valid calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// Two-digit-year layouts land in 20xx already via Go's pivot (69),
		// but invoices never reference the 1900s: force the 2000 century.
		if t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var (
	wsRunRE = regexp.MustCompile(`\s+`)
	// quoteRE unifies typographic quote glyphs before stripping.
	quoteRE = regexp.MustCompile("[‘’“”`´]")
	dashRE  = regexp.MustCompile("[–—−]")
	// trailingNoiseRE drops trailing single-letter tokens and the unit
	// abbreviations that vary between invoices of the same product.
	trailingNoiseRE = regexp.MustCompile(`\s+(?:[a-z]|es|cc)$`)
)

// NormalizeProductName produces the canonical lookup key for a free-text
// product descriptor: lowercased, glyph-unified, abbreviation dots removed,
// whitespace collapsed, trailing unit noise stripped. Idempotent.
func NormalizeProductName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = quoteRE.ReplaceAllString(s, "'")
	s = dashRE.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "×", "x") // × → x
	s = strings.ReplaceAll(s, ".", "")
	s = wsRunRE.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	// The noise suffix can be stacked ("tomate pera c es"); strip repeatedly
	// so a single pass is equivalent to a fixed point.
	for {
		trimmed := trailingNoiseRE.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = strings.TrimSpace(trimmed)
	}
	return s
}
