package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// The extractors below run ordered regex cascades over free text and return
// the first match. They exist because line items frequently arrive as one
// unstructured string ("2 CAJA TOMATE PERA 12,50 €/KG REF:4471") rather than
// as separated fields.

var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(\d+(?:[.,]\d+)?)\s*(?:x|ud|uds|unidades?|cajas?|kg|l)\b`),
	regexp.MustCompile(`(?i)\bcant(?:idad)?[.:]?\s*(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s`),
}

// ExtractQuantity pulls a leading or labelled quantity out of a line
// description. Defaults to 1 when nothing matches.
func ExtractQuantity(s string) decimal.Decimal {
	for _, re := range quantityPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			if q, ok := ParseAmount(m[1]); ok && q.IsPositive() {
				return q
			}
		}
	}
	return decimal.NewFromInt(1)
}

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*,\d{2})\s*(?:€|eur)`),
	regexp.MustCompile(`(\d+,\d{2})\s*(?:€|eur)?\s*/\s*(?:kg|l|ud)`),
	regexp.MustCompile(`(?i)\bprecio[.:]?\s*(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`(\d+[.,]\d{2})\s*$`),
}

// ExtractUnitPrice pulls a price out of a line description. Returns nil when
// no pattern matches; absence is meaningful (the pricing engine derives it).
func ExtractUnitPrice(s string) *decimal.Decimal {
	lower := strings.ToLower(s)
	for _, re := range pricePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			if p, ok := ParseAmount(m[1]); ok {
				return &p
			}
		}
	}
	return nil
}

// unitAliases folds the unit spellings seen on invoices to canonical units.
var unitAliases = map[string]string{
	"kg": "kg", "kgs": "kg", "kilo": "kg", "kilos": "kg",
	"g": "g", "gr": "g", "grs": "g",
	"l": "l", "lt": "l", "lts": "l", "litro": "l", "litros": "l",
	"ml": "ml", "cl": "cl",
	"ud": "ud", "uds": "ud", "unidad": "ud", "unidades": "ud",
	"caja": "caja", "cajas": "caja",
	"docena": "docena", "manojo": "manojo", "bandeja": "bandeja",
}

var unitRE = regexp.MustCompile(`(?i)\b(kgs?|kilos?|grs?|g|lts?|l|litros?|ml|cl|uds?|unidad(?:es)?|cajas?|docena|manojo|bandeja)\b`)

// ExtractUnit returns the canonical unit mentioned in the text, or "".
func ExtractUnit(s string) string {
	if m := unitRE.FindString(strings.ToLower(s)); m != "" {
		if u, ok := unitAliases[strings.ToLower(m)]; ok {
			return u
		}
	}
	return ""
}

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bref[.:]?\s*([A-Z0-9-]{3,})`),
	regexp.MustCompile(`(?i)\b(?:cod|c[oó]digo)[.:]?\s*([A-Z0-9-]{3,})`),
	regexp.MustCompile(`^\s*([A-Z]{2,4}\d{3,})\b`),
}

// ExtractProductCode returns a supplier product/reference code, or "".
func ExtractProductCode(s string) string {
	for _, re := range codePatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// Format is a parsed commercial format: the packaging descriptor printed on
// the line ("6x1L", "5 kg", "caja 10 ud") reduced to a total weight or
// volume when one can be derived.
type Format struct {
	Raw    string
	Kg     *decimal.Decimal
	Liters *decimal.Decimal
}

var formatRE = regexp.MustCompile(`(?i)\b(?:(\d+)\s*x\s*)?(\d+(?:[.,]\d+)?)\s*(kg|g|l|ml|cl)\b`)

// ExtractFormat parses the commercial format out of a descriptor. The
// multiplier form ("6x1L") multiplies count by size; bare sizes ("500 g")
// convert to the base unit.
func ExtractFormat(s string) Format {
	m := formatRE.FindStringSubmatch(s)
	if m == nil {
		return Format{}
	}
	size, ok := ParseAmount(m[2])
	if !ok || !size.IsPositive() {
		return Format{}
	}
	count := decimal.NewFromInt(1)
	if m[1] != "" {
		if c, err := decimal.NewFromString(m[1]); err == nil && c.IsPositive() {
			count = c
		}
	}
	total := size.Mul(count)

	f := Format{Raw: strings.TrimSpace(m[0])}
	switch strings.ToLower(m[3]) {
	case "kg":
		f.Kg = &total
	case "g":
		v := total.Div(decimal.NewFromInt(1000))
		f.Kg = &v
	case "l":
		f.Liters = &total
	case "ml":
		v := total.Div(decimal.NewFromInt(1000))
		f.Liters = &v
	case "cl":
		v := total.Div(decimal.NewFromInt(100))
		f.Liters = &v
	}
	return f
}

// PricePerKg derives the reference €/kg price from a line total and format.
// Returns nil when the format carries no weight.
func PricePerKg(totalNet decimal.Decimal, f Format) *decimal.Decimal {
	if f.Kg == nil || !f.Kg.IsPositive() || !totalNet.IsPositive() {
		return nil
	}
	v := totalNet.DivRound(*f.Kg, 4)
	return &v
}

// PricePerLiter derives the reference €/l price from a line total and format.
func PricePerLiter(totalNet decimal.Decimal, f Format) *decimal.Decimal {
	if f.Liters == nil || !f.Liters.IsPositive() || !totalNet.IsPositive() {
		return nil
	}
	v := totalNet.DivRound(*f.Liters, 4)
	return &v
}
