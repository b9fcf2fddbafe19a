package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func approx(t *testing.T, got decimal.Decimal, want float64) {
	t.Helper()
	g, _ := got.Float64()
	if math.Abs(g-want) > 1e-6 {
		t.Fatalf("got %v, want %v", g, want)
	}
}

func TestCompleteLine_FromUnitNet(t *testing.T) {
	line := &domain.InvoiceLine{
		Quantity:     dec("4"),
		UnitPriceNet: dec("2.50"),
		TaxRate:      dec("10"),
	}
	CompleteLine(line)

	approx(t, line.UnitPriceGross, 2.75)
	approx(t, line.TotalNet, 10)
	approx(t, line.TotalGross, 11)
}

func TestCompleteLine_FromTotalGrossOnly(t *testing.T) {
	// Only one gross value plus quantity: all four remaining fields derive.
	line := &domain.InvoiceLine{
		Quantity:   dec("2"),
		TotalGross: dec("24.20"),
		TaxRate:    dec("21"),
	}
	CompleteLine(line)

	approx(t, line.TotalNet, 20)
	approx(t, line.UnitPriceGross, 12.1)
	approx(t, line.UnitPriceNet, 10)
}

func TestCompleteLine_DefaultTaxRate(t *testing.T) {
	line := &domain.InvoiceLine{Quantity: dec("1"), UnitPriceNet: dec("100")}
	CompleteLine(line)
	if !line.TaxRate.Equal(dec("21")) {
		t.Fatalf("tax rate %s, want 21", line.TaxRate)
	}
	approx(t, line.UnitPriceGross, 121)
}

func TestCompleteLine_NeverOverwrites(t *testing.T) {
	// Explicit values stay untouched even when the identities disagree.
	line := &domain.InvoiceLine{
		Quantity:       dec("3"),
		UnitPriceNet:   dec("2"),
		UnitPriceGross: dec("9.99"), // deliberately inconsistent
		TotalNet:       dec("5.55"),
		TotalGross:     dec("7.77"),
		TaxRate:        dec("21"),
	}
	before := *line
	CompleteLine(line)

	if !line.UnitPriceGross.Equal(before.UnitPriceGross) ||
		!line.TotalNet.Equal(before.TotalNet) ||
		!line.TotalGross.Equal(before.TotalGross) {
		t.Fatalf("explicit fields were overwritten: %+v", line)
	}
}

func TestCompleteLine_IdentitiesHold(t *testing.T) {
	// Any three of four fields plus quantity: after completion, the
	// identities hold within 1e-6 and no set field changed.
	line := &domain.InvoiceLine{
		Quantity:     dec("5"),
		UnitPriceNet: dec("3.20"),
		TotalNet:     dec("16"),
		TotalGross:   dec("19.36"),
		TaxRate:      dec("21"),
	}
	CompleteLine(line)

	tn, _ := line.TotalNet.Float64()
	tg, _ := line.TotalGross.Float64()
	un, _ := line.UnitPriceNet.Float64()
	if math.Abs(tg-tn*1.21) > 1e-6 {
		t.Fatalf("gross identity broken: %v vs %v", tg, tn*1.21)
	}
	if math.Abs(tn-un*5) > 1e-6 {
		t.Fatalf("total identity broken: %v vs %v", tn, un*5)
	}
}

func TestCompleteLine_Idempotent(t *testing.T) {
	line := &domain.InvoiceLine{
		Quantity:   dec("2"),
		TotalGross: dec("24.20"),
	}
	CompleteLine(line)
	snapshot := *line
	CompleteLine(line)

	if !line.UnitPriceNet.Equal(snapshot.UnitPriceNet) ||
		!line.UnitPriceGross.Equal(snapshot.UnitPriceGross) ||
		!line.TotalNet.Equal(snapshot.TotalNet) ||
		!line.TotalGross.Equal(snapshot.TotalGross) {
		t.Fatalf("second run changed values: %+v vs %+v", line, snapshot)
	}
}

func TestComputeStats_Window(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	history := []domain.PriceHistory{
		{Price: dec("2.00"), PurchaseDate: now.AddDate(0, 0, -1)},
		{Price: dec("3.00"), PurchaseDate: now.AddDate(0, 0, -10)},
		{Price: dec("4.00"), PurchaseDate: now.AddDate(0, 0, -29)},
		{Price: dec("99.00"), PurchaseDate: now.AddDate(0, 0, -31)}, // outside window
	}
	s := ComputeStats(history, now)

	if s.Samples != 3 {
		t.Fatalf("samples %d, want 3", s.Samples)
	}
	approx(t, s.Min, 2)
	approx(t, s.Max, 4)
	approx(t, s.Avg, 3)
	approx(t, s.Variance, 2.0/3.0)
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil, time.Now())
	if s.Samples != 0 || !s.Avg.IsZero() {
		t.Fatalf("unexpected stats for empty history: %+v", s)
	}
}
