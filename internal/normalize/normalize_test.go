package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount_SpanishThousands(t *testing.T) {
	d, ok := ParseAmount("1.234,56")
	if !ok {
		t.Fatalf("expected ok for 1.234,56")
	}
	if !d.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("got %s, want 1234.56", d)
	}
}

func TestParseAmount_LoneComma(t *testing.T) {
	d, ok := ParseAmount("1234,56")
	if !ok || !d.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("got %s ok=%v, want 1234.56", d, ok)
	}
}

func TestParseAmount_CurrencyAndWhitespace(t *testing.T) {
	d, ok := ParseAmount("  12,50 € ")
	if !ok || !d.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("got %s ok=%v, want 12.5", d, ok)
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"not a number", "", "€", "-5,00"} {
		if _, ok := ParseAmount(in); ok {
			t.Fatalf("expected failure for %q", in)
		}
	}
}

func TestParseDate_Formats(t *testing.T) {
	cases := map[string]string{
		"15/03/2024": "2024-03-15",
		"15-03-2024": "2024-03-15",
		"15.03.2024": "2024-03-15",
		"15/03/24":   "2024-03-15",
		"2024-03-15": "2024-03-15",
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", in)
		}
		if got.Format("2006-01-02") != want {
			t.Fatalf("ParseDate(%q) = %s, want %s", in, got.Format("2006-01-02"), want)
		}
	}
}

func TestParseDate_InvalidCalendarDate(t *testing.T) {
	if _, ok := ParseDate("31/02/2024"); ok {
		t.Fatalf("31/02 must be rejected")
	}
	if _, ok := ParseDate("garbage"); ok {
		t.Fatalf("garbage must be rejected")
	}
}

func TestNormalizeProductName_Basics(t *testing.T) {
	got := NormalizeProductName("  TOMATE  Pera  5Kg. ")
	if got != "tomate pera 5kg" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeProductName_TrailingNoise(t *testing.T) {
	if got := NormalizeProductName("tomate pera c es"); got != "tomate pera" {
		t.Fatalf("got %q, want %q", got, "tomate pera")
	}
	if got := NormalizeProductName("aceite girasol 5l cc"); got != "aceite girasol 5l" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeProductName_Idempotent(t *testing.T) {
	inputs := []string{
		"  TOMATE  Pera  5Kg. ",
		"Leche 6×1L entera",
		"queso “manchego” curado — cuña",
		"tomate pera c es",
		"",
	}
	for _, in := range inputs {
		once := NormalizeProductName(in)
		twice := NormalizeProductName(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestExtractQuantity(t *testing.T) {
	if q := ExtractQuantity("2 CAJA TOMATE PERA"); !q.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("got %s", q)
	}
	if q := ExtractQuantity("Cantidad: 3,5"); !q.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("got %s", q)
	}
	if q := ExtractQuantity("TOMATE PERA"); !q.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("default quantity, got %s", q)
	}
}

func TestExtractUnitPrice(t *testing.T) {
	p := ExtractUnitPrice("TOMATE PERA 12,50 €/KG")
	if p == nil || !p.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("got %v", p)
	}
	if p := ExtractUnitPrice("TOMATE PERA"); p != nil {
		t.Fatalf("expected nil, got %s", p)
	}
}

func TestExtractUnitAndCode(t *testing.T) {
	if u := ExtractUnit("5 kilos de tomate"); u != "kg" {
		t.Fatalf("unit %q", u)
	}
	if u := ExtractUnit("sin unidad"); u != "" {
		t.Fatalf("unit %q", u)
	}
	if c := ExtractProductCode("TOMATE REF: TP-4471"); c != "TP-4471" {
		t.Fatalf("code %q", c)
	}
}

func TestExtractFormat_Multiplier(t *testing.T) {
	f := ExtractFormat("LECHE ENTERA 6x1L")
	if f.Liters == nil || !f.Liters.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("liters %v", f.Liters)
	}
	f = ExtractFormat("QUESO CURADO 500 g")
	if f.Kg == nil || !f.Kg.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("kg %v", f.Kg)
	}
}

func TestPricePerKg(t *testing.T) {
	f := ExtractFormat("5 kg")
	p := PricePerKg(decimal.RequireFromString("12.50"), f)
	if p == nil || !p.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("got %v", p)
	}
	if p := PricePerKg(decimal.RequireFromString("12.50"), Format{}); p != nil {
		t.Fatalf("expected nil without weight")
	}
}
