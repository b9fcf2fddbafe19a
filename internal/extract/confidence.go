package extract

import "github.com/shopspring/decimal"

// Scores groups per-field confidences into the sub-scores persisted on
// the invoice and shown to the user.
type Scores struct {
	Global   float64
	Supplier float64
	Fiscal   float64
	Amounts  float64
	Coherent bool
}

// coherenceTolerance returns the allowed gap for the base+tax=total
// check: €0.50 absolute or 2% of the total, whichever is larger.
func coherenceTolerance(total decimal.Decimal) decimal.Decimal {
	abs := decimal.NewFromFloat(0.50)
	rel := total.Abs().Mul(decimal.NewFromFloat(0.02))
	if rel.GreaterThan(abs) {
		return rel
	}
	return abs
}

// aggregate computes the sub-scores by unweighted averaging, then lets
// the arithmetic coherence check override the amounts score: figures
// that add up are themselves evidence of a correct read, figures that
// do not are suspect no matter how confident the extractor felt.
func aggregate(ex *Extraction) Scores {
	s := Scores{
		Supplier: avg(ex.SupplierName.Confidence, ex.SupplierTaxID.Confidence),
		Fiscal:   avg(ex.InvoiceNumber.Confidence, ex.IssueDate.Confidence, ex.DueDate.Confidence),
		Amounts:  avg(ex.NetBase.Confidence, ex.TaxAmount.Confidence, ex.Total.Confidence),
	}

	if ex.NetBase.Set && ex.TaxAmount.Set && ex.Total.Set {
		gap := ex.NetBase.Value.Add(ex.TaxAmount.Value).Sub(ex.Total.Value).Abs()
		s.Coherent = gap.LessThanOrEqual(coherenceTolerance(ex.Total.Value))
		if s.Coherent {
			s.Amounts = 0.9
		} else {
			s.Amounts = 0.7
		}
	}

	s.Global = avg(s.Supplier, s.Fiscal, s.Amounts)
	return s
}

func avg(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
