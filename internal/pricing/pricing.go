// Package pricing completes partially-extracted line item prices and
// maintains the rolling price statistics of catalog products.
//
// Extraction rarely yields all five price fields (unit net/gross, total
// net/gross, quantity); suppliers print whichever subset suits their layout.
// CompleteLine derives the missing fields from the two identities
//
//	gross = net × (1 + taxRate/100)
//	total = unit × quantity
//
// in a fixed precedence, and never overwrites a value that was explicitly
// extracted. All arithmetic uses shopspring/decimal; floats only appear at
// the API edges.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// DefaultTaxRate is the Spanish standard IVA applied when the extraction
// did not yield a rate.
var DefaultTaxRate = decimal.NewFromInt(21)

// divScale is the precision kept on derived divisions. Wide enough that
// re-deriving a field reproduces it within 1e-6.
const divScale = 6

// CompleteLine fills every derivable price field of a line item in place.
//
// Derivation order (each step only fires when its target is absent/zero):
//  1. unit gross ⇄ unit net
//  2. total gross ⇄ total net
//  3. unit ⇄ total through quantity, whichever side is known
//  4. net/gross completion again, so a single gross value plus quantity
//     propagates to all four remaining fields
//
// Cross-derivation deliberately runs after the direct net/gross pairs so it
// operates on the most complete data available. The function is idempotent:
// running it on a fully-populated line changes nothing.
func CompleteLine(line *domain.InvoiceLine) {
	if line.TaxRate.IsZero() {
		line.TaxRate = DefaultTaxRate
	}
	if line.Quantity.IsZero() {
		line.Quantity = decimal.NewFromInt(1)
	}

	factor := decimal.NewFromInt(1).Add(line.TaxRate.Div(decimal.NewFromInt(100)))

	completePair(&line.UnitPriceNet, &line.UnitPriceGross, factor)
	completePair(&line.TotalNet, &line.TotalGross, factor)
	crossDerive(line)
	completePair(&line.UnitPriceNet, &line.UnitPriceGross, factor)
	completePair(&line.TotalNet, &line.TotalGross, factor)
}

// completePair fills whichever of (net, gross) is missing from the other.
func completePair(net, gross *decimal.Decimal, factor decimal.Decimal) {
	switch {
	case net.IsZero() && !gross.IsZero():
		*net = gross.DivRound(factor, divScale)
	case gross.IsZero() && !net.IsZero():
		*gross = net.Mul(factor).Round(divScale)
	}
}

// crossDerive connects the unit and total sides through the quantity.
func crossDerive(line *domain.InvoiceLine) {
	q := line.Quantity
	if !q.IsPositive() {
		return
	}
	if line.TotalNet.IsZero() && !line.UnitPriceNet.IsZero() {
		line.TotalNet = line.UnitPriceNet.Mul(q).Round(divScale)
	}
	if line.UnitPriceNet.IsZero() && !line.TotalNet.IsZero() {
		line.UnitPriceNet = line.TotalNet.DivRound(q, divScale)
	}
	if line.TotalGross.IsZero() && !line.UnitPriceGross.IsZero() {
		line.TotalGross = line.UnitPriceGross.Mul(q).Round(divScale)
	}
	if line.UnitPriceGross.IsZero() && !line.TotalGross.IsZero() {
		line.UnitPriceGross = line.TotalGross.DivRound(q, divScale)
	}
}
