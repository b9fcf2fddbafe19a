package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// StatsWindow is the trailing window the catalog price statistics are
// computed over.
const StatsWindow = 30 * 24 * time.Hour

// Stats is a recomputed price summary for one catalog product.
type Stats struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	Avg      decimal.Decimal
	Variance decimal.Decimal
	Samples  int
}

// ComputeStats derives min/max/average/variance from the price history rows
// dated within the trailing 30-day window ending at now. Statistics are
// always recomputed from the window, never incrementally patched: a corrected
// or deleted purchase is reflected on the next recomputation.
func ComputeStats(history []domain.PriceHistory, now time.Time) Stats {
	cutoff := now.Add(-StatsWindow)

	var (
		sum    decimal.Decimal
		prices []decimal.Decimal
	)
	for _, h := range history {
		if h.PurchaseDate.Before(cutoff) || h.PurchaseDate.After(now) {
			continue
		}
		prices = append(prices, h.Price)
		sum = sum.Add(h.Price)
	}
	if len(prices) == 0 {
		return Stats{}
	}

	n := decimal.NewFromInt(int64(len(prices)))
	avg := sum.DivRound(n, divScale)

	min, max := prices[0], prices[0]
	var sq decimal.Decimal
	for _, p := range prices {
		if p.LessThan(min) {
			min = p
		}
		if p.GreaterThan(max) {
			max = p
		}
		d := p.Sub(avg)
		sq = sq.Add(d.Mul(d))
	}

	return Stats{
		Min:      min,
		Max:      max,
		Avg:      avg,
		Variance: sq.DivRound(n, divScale),
		Samples:  len(prices),
	}
}
