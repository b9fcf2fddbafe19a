package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// companySuffixes maps dotted Spanish company-form abbreviations to a
// canonical undotted form so "Distribuciones Pérez S.L." and
// "DISTRIBUCIONES PEREZ SL" normalize identically.
var companySuffixes = strings.NewReplacer(
	"s.l.u.", "slu",
	"s.a.u.", "sau",
	"s.l.l.", "sll",
	"s.coop.", "scoop",
	"s.l.", "sl",
	"s.a.", "sa",
	"s.c.", "sc",
	"c.b.", "cb",
)

// NormalizeSupplierName produces the canonical form used to compare
// supplier names: lowercase, accents stripped, company-suffix
// abbreviations undotted, punctuation removed, whitespace collapsed.
func NormalizeSupplierName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = companySuffixes.Replace(s)
	s = stripAccents(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// LeadingToken returns the first token of a normalized supplier name.
// Supplier fallback matching keys on it because OCR output frequently
// truncates or mangles everything after the first word.
func LeadingToken(name string) string {
	fields := strings.Fields(NormalizeSupplierName(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SupplierNamesMatch reports whether two free-text supplier names refer
// to the same company: equal normalized forms, or a shared leading token
// of at least four runes.
func SupplierNamesMatch(a, b string) bool {
	na, nb := NormalizeSupplierName(a), NormalizeSupplierName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	la, lb := LeadingToken(a), LeadingToken(b)
	return la != "" && la == lb && len([]rune(la)) >= 4
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}
