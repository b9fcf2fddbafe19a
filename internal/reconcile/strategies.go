package reconcile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/match"
)

// Delivery-note references as they actually appear in Spanish invoice
// text: "ALB-123", "ALBARAN 123", "ALBARÁN Nº123", "ENTREGA123".
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\balbar[aá]n(?:es)?\s*(?:n[ºo°.]?\s*)?[-:.]?\s*(\d{2,})`),
	regexp.MustCompile(`(?i)\balb[-:.]?\s*(\d{2,})`),
	regexp.MustCompile(`(?i)\bentrega\s*(?:n[ºo°.]?\s*)?[-:.]?\s*(\d{2,})`),
	regexp.MustCompile(`(?i)\bnota\s+de\s+entrega\s*[-:.]?\s*(\d{2,})`),
}

var digitsRE = regexp.MustCompile(`\d+`)

// explicitReference scans the invoice text for delivery-note numbers and
// resolves each against the candidate universe. An explicit reference is
// the strongest possible evidence short of user confirmation.
func (e *Engine) explicitReference(in Input, _ time.Time) []Candidate {
	refs := make(map[string]string) // numeric part -> matched text
	scan := func(text string) {
		for _, re := range referencePatterns {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				refs[strings.TrimLeft(m[1], "0")] = m[0]
			}
		}
	}
	scan(in.Invoice.RawText)
	for _, line := range in.Invoice.Lines {
		scan(line.Description)
	}
	if len(refs) == 0 {
		return nil
	}

	var out []Candidate
	for _, note := range in.Notes {
		num := strings.TrimLeft(digitsRE.FindString(note.Number), "0")
		if num == "" {
			continue
		}
		if src, ok := refs[num]; ok {
			out = append(out, Candidate{
				DeliveryNoteID: note.ID,
				Score:          0.95,
				Method:         domain.MethodExplicitRef,
				Reasons:        []string{fmt.Sprintf("referencia explícita %q", src)},
				Factors:        map[string]any{"reference": src, "note_number": note.Number},
			})
		}
	}
	return out
}

// temporalProximity scores delivery notes dated up to TemporalWindowDays
// before the invoice, adjusting a 0.85 base by date gap and amount delta.
func (e *Engine) temporalProximity(in Input, _ time.Time) []Candidate {
	if in.Invoice.IssueDate == nil {
		return nil
	}
	var out []Candidate
	for _, note := range in.Notes {
		gap, ok := daysBefore(note.DeliveryDate, *in.Invoice.IssueDate, e.cfg.TemporalWindowDays)
		if !ok {
			continue
		}
		score := 0.85
		reasons := []string{fmt.Sprintf("albarán %d días antes de la factura", gap)}
		factors := map[string]any{"date_gap_days": gap}

		switch {
		case gap <= 7:
			score += 0.1
			reasons = append(reasons, "fechas muy próximas")
		case gap > 30:
			score -= 0.1
		}

		if delta, ok := amountDeltaPct(in.Invoice.Total, note.Total); ok {
			factors["amount_delta_pct"] = delta
			switch {
			case delta <= 5:
				score += 0.1
				reasons = append(reasons, "importes casi idénticos")
			case delta > 20:
				score -= 0.15
			}
		}

		score = clamp01(score)
		if score < 0.7 {
			continue
		}
		out = append(out, Candidate{
			DeliveryNoteID: note.ID,
			Score:          score,
			Method:         domain.MethodTemporalProximity,
			Reasons:        reasons,
			Factors:        factors,
		})
	}
	return out
}

// productContent scores delivery notes by the fraction of invoice line
// descriptions that fuzzy-match one of the note's line descriptions.
func (e *Engine) productContent(in Input, _ time.Time) []Candidate {
	if in.Invoice.IssueDate == nil || len(in.Invoice.Lines) == 0 {
		return nil
	}
	var out []Candidate
	for _, note := range in.Notes {
		if _, ok := daysBefore(note.DeliveryDate, *in.Invoice.IssueDate, e.cfg.ContentWindowDays); !ok {
			continue
		}
		if len(note.Lines) == 0 {
			continue
		}
		matched := 0
		for _, inv := range in.Invoice.Lines {
			for _, nl := range note.Lines {
				if match.Similarity(inv.Description, nl.Description) >= e.cfg.ContentMatchThreshold {
					matched++
					break
				}
			}
		}
		fraction := float64(matched) / float64(len(in.Invoice.Lines))
		score := 0.75 * fraction
		if score < 0.6 {
			continue
		}
		out = append(out, Candidate{
			DeliveryNoteID: note.ID,
			Score:          score,
			Method:         domain.MethodProductContent,
			Reasons: []string{fmt.Sprintf("%d de %d líneas coinciden con el albarán",
				matched, len(in.Invoice.Lines))},
			Factors: map[string]any{
				"matched_lines":  matched,
				"total_lines":    len(in.Invoice.Lines),
				"match_fraction": fraction,
			},
		})
	}
	return out
}

// learnedPatterns applies previously-learned per-supplier invoicing
// rhythms: a supplier that reliably invoices N days after delivery makes
// notes in that window weak-positive candidates even without amount or
// content evidence.
func (e *Engine) learnedPatterns(in Input, _ time.Time) []Candidate {
	if in.Invoice.IssueDate == nil || in.Invoice.SupplierID == nil {
		return nil
	}
	var out []Candidate
	for _, p := range in.Patterns {
		if p.SupplierID != *in.Invoice.SupplierID || p.Effectiveness < 0.7 {
			continue
		}
		for _, note := range in.Notes {
			gap, ok := daysBefore(note.DeliveryDate, *in.Invoice.IssueDate, p.WindowDays+p.ToleranceDays)
			if !ok {
				continue
			}
			if gap < p.WindowDays-p.ToleranceDays {
				continue
			}
			out = append(out, Candidate{
				DeliveryNoteID: note.ID,
				Score:          clamp01(0.6 * p.Effectiveness),
				Method:         domain.MethodLearnedPattern,
				Reasons: []string{fmt.Sprintf("patrón habitual del proveedor: factura a %d±%d días",
					p.WindowDays, p.ToleranceDays)},
				Factors: map[string]any{
					"pattern_window_days": p.WindowDays,
					"pattern_tolerance":   p.ToleranceDays,
					"effectiveness":       p.Effectiveness,
					"date_gap_days":       gap,
				},
			})
		}
	}
	return out
}

// orphanSweep is the last resort: any unlinked note from the supplier in
// the past SweepWindowDays, capped to the ten most recent, scored from a
// 0.4 base with wide tolerance bands.
func (e *Engine) orphanSweep(in Input, _ time.Time) []Candidate {
	if in.Invoice.IssueDate == nil {
		return nil
	}
	var pool []domain.DeliveryNote
	for _, note := range in.Notes {
		if note.Linked {
			continue
		}
		if _, ok := daysBefore(note.DeliveryDate, *in.Invoice.IssueDate, e.cfg.SweepWindowDays); !ok {
			continue
		}
		pool = append(pool, note)
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].DeliveryDate.After(*pool[j].DeliveryDate)
	})
	if len(pool) > 10 {
		pool = pool[:10]
	}

	var out []Candidate
	for _, note := range pool {
		gap, _ := daysBefore(note.DeliveryDate, *in.Invoice.IssueDate, e.cfg.SweepWindowDays)
		score := 0.4
		factors := map[string]any{"date_gap_days": gap}
		switch {
		case gap <= 30:
			score += 0.1
		case gap > 60:
			score -= 0.1
		}
		if delta, ok := amountDeltaPct(in.Invoice.Total, note.Total); ok {
			factors["amount_delta_pct"] = delta
			switch {
			case delta <= 10:
				score += 0.1
			case delta > 25:
				score -= 0.15
			}
		}
		score = clamp01(score)
		if score < 0.3 {
			continue
		}
		out = append(out, Candidate{
			DeliveryNoteID: note.ID,
			Score:          score,
			Method:         domain.MethodOrphanSweep,
			Reasons:        []string{"albarán sin vincular del mismo proveedor"},
			Factors:        factors,
		})
	}
	return out
}

// daysBefore returns the whole-day gap between a note date and the
// invoice date when the note falls on or before the invoice and within
// maxDays of it.
func daysBefore(noteDate *time.Time, invoiceDate time.Time, maxDays int) (int, bool) {
	if noteDate == nil {
		return 0, false
	}
	diff := invoiceDate.Sub(*noteDate)
	if diff < 0 {
		return 0, false
	}
	days := int(diff.Hours() / 24)
	if days > maxDays {
		return 0, false
	}
	return days, true
}

// amountDeltaPct returns |invoice - note| as a percentage of the invoice
// total. False when the invoice total is zero or unset.
func amountDeltaPct(invoiceTotal, noteTotal decimal.Decimal) (float64, bool) {
	if invoiceTotal.IsZero() {
		return 0, false
	}
	delta := invoiceTotal.Sub(noteTotal).Abs().
		Div(invoiceTotal.Abs()).
		Mul(decimal.NewFromInt(100))
	f, _ := delta.Float64()
	return f, true
}
