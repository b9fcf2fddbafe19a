package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func strPtr(s string) *string { return &s }

func testInvoice(issue *time.Time, total string) *domain.Invoice {
	return &domain.Invoice{
		ID:            "inv-1",
		RestauranteID: "rest-1",
		SupplierID:    strPtr("sup-1"),
		IssueDate:     issue,
		Total:         decimal.RequireFromString(total),
	}
}

func TestRun_TemporalAutoLink(t *testing.T) {
	// Note five days before the invoice, total within 3 percent:
	// date bonus and amount bonus push the score to 1.0.
	in := Input{
		Invoice: testInvoice(datePtr(2024, 3, 15), "103.00"),
		Notes: []domain.DeliveryNote{{
			ID:            "note-1",
			RestauranteID: "rest-1",
			SupplierID:    strPtr("sup-1"),
			Number:        "ALB-777",
			DeliveryDate:  datePtr(2024, 3, 10),
			Total:         decimal.RequireFromString("100.00"),
		}},
	}
	res := NewEngine(DefaultConfig()).Run(in, time.Now())

	if len(res.AutoLinks) != 1 {
		t.Fatalf("auto links = %d, want 1 (%+v)", len(res.AutoLinks), res.Candidates)
	}
	link := res.AutoLinks[0]
	if link.Score < 0.95 {
		t.Errorf("score %v, want >= 0.95", link.Score)
	}
	if link.Method != domain.MethodTemporalProximity {
		t.Errorf("method %s, want temporal_proximity", link.Method)
	}
	if res.Notification.Tipo != NotifyAutoLinked {
		t.Errorf("notification tipo %s, want %s", res.Notification.Tipo, NotifyAutoLinked)
	}
}

func TestRun_ExplicitReference(t *testing.T) {
	inv := testInvoice(datePtr(2024, 5, 2), "50.00")
	inv.RawText = "Corresponde al ALBARÁN Nº 00123 entregado el 28/04"
	in := Input{
		Invoice: inv,
		Notes: []domain.DeliveryNote{{
			ID:           "note-1",
			SupplierID:   strPtr("sup-1"),
			Number:       "ALB-123",
			DeliveryDate: datePtr(2024, 2, 1), // outside every temporal window
			Total:        decimal.RequireFromString("999.00"),
		}},
	}
	res := NewEngine(DefaultConfig()).Run(in, time.Now())

	if len(res.AutoLinks) != 1 {
		t.Fatalf("auto links = %d, want 1", len(res.AutoLinks))
	}
	if got := res.AutoLinks[0]; got.Method != domain.MethodExplicitRef || got.Score != 0.95 {
		t.Errorf("got method %s score %v, want explicit_reference 0.95", got.Method, got.Score)
	}
}

func TestRun_NoNotesIsDirectInvoice(t *testing.T) {
	in := Input{Invoice: testInvoice(datePtr(2024, 3, 15), "100.00")}
	res := NewEngine(DefaultConfig()).Run(in, time.Now())

	if len(res.AutoLinks) != 0 || len(res.Suggestions) != 0 {
		t.Fatalf("expected no links, got %+v", res)
	}
	if res.RequiresReview {
		t.Error("zero candidates must not flag review")
	}
	if !res.RegisterOrphan {
		t.Error("zero candidates must register the invoice as orphan")
	}
	if res.Notification.Tipo != NotifyNoNotes {
		t.Errorf("notification tipo %s, want %s", res.Notification.Tipo, NotifyNoNotes)
	}
}

func TestRun_LowConfidenceFlagsReview(t *testing.T) {
	// Unlinked note 80 days out with a close total: only the orphan
	// sweep picks it up, below the suggestion threshold.
	in := Input{
		Invoice: testInvoice(datePtr(2024, 6, 1), "500.00"),
		Notes: []domain.DeliveryNote{{
			ID:           "note-1",
			SupplierID:   strPtr("sup-1"),
			Number:       "A-9",
			DeliveryDate: datePtr(2024, 3, 13),
			Total:        decimal.RequireFromString("450.00"),
		}},
	}
	res := NewEngine(DefaultConfig()).Run(in, time.Now())

	if len(res.AutoLinks) != 0 || len(res.Suggestions) != 0 {
		t.Fatalf("expected only low-confidence candidates, got %+v", res)
	}
	if !res.RequiresReview {
		t.Error("low-confidence candidates must flag review")
	}
	if res.RegisterOrphan {
		t.Error("must not register orphan when candidates exist")
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1 for the detection log", len(res.Candidates))
	}
	if res.Notification.Tipo != NotifyManualReview {
		t.Errorf("notification tipo %s, want %s", res.Notification.Tipo, NotifyManualReview)
	}
}

func TestConsolidate_BestWins(t *testing.T) {
	cands := []Candidate{
		{DeliveryNoteID: "n1", Score: 0.65, Method: domain.MethodOrphanSweep},
		{DeliveryNoteID: "n1", Score: 0.92, Method: domain.MethodTemporalProximity},
		{DeliveryNoteID: "n2", Score: 0.72, Method: domain.MethodProductContent},
	}
	out := consolidate(cands)

	if len(out) != 2 {
		t.Fatalf("consolidated = %d, want 2", len(out))
	}
	if out[0].DeliveryNoteID != "n1" || out[0].Score != 0.92 ||
		out[0].Method != domain.MethodTemporalProximity {
		t.Errorf("winner = %+v, want n1/0.92/temporal_proximity", out[0])
	}
}

func TestCategorize_Partition(t *testing.T) {
	cfg := DefaultConfig()
	scores := []float64{0, 0.1, 0.69, 0.7, 0.89, 0.9, 0.95, 1}
	counts := map[Category]int{}
	for _, s := range scores {
		counts[cfg.Categorize(s)]++
	}
	if counts[CategoryHigh]+counts[CategoryMedium]+counts[CategoryLow] != len(scores) {
		t.Fatal("categorization must partition all scores")
	}
	if counts[CategoryHigh] != 3 || counts[CategoryMedium] != 2 || counts[CategoryLow] != 3 {
		t.Errorf("counts = %v, want high=3 medium=2 low=3", counts)
	}
}

func TestProductContent_Fraction(t *testing.T) {
	inv := testInvoice(datePtr(2024, 4, 10), "0")
	inv.Lines = []domain.InvoiceLine{
		{Description: "Aceite de oliva virgen"},
		{Description: "Tomate pera"},
	}
	in := Input{
		Invoice: inv,
		Notes: []domain.DeliveryNote{{
			ID:           "note-1",
			DeliveryDate: datePtr(2024, 4, 3),
			Lines: []domain.DeliveryNoteLine{
				{Description: "Aceite de oliva virgen"},
				{Description: "Tomate pera"},
			},
		}},
	}
	e := NewEngine(DefaultConfig())
	cands := e.productContent(in, time.Now())

	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}
	if cands[0].Score != 0.75 {
		t.Errorf("score %v, want 0.75 for full match fraction", cands[0].Score)
	}
}

func TestLearnedPatterns_EffectivenessFloor(t *testing.T) {
	in := Input{
		Invoice: testInvoice(datePtr(2024, 4, 10), "100"),
		Notes: []domain.DeliveryNote{{
			ID:           "note-1",
			SupplierID:   strPtr("sup-1"),
			DeliveryDate: datePtr(2024, 4, 3),
			Total:        decimal.RequireFromString("100"),
		}},
		Patterns: []domain.LearnedPattern{
			{SupplierID: "sup-1", WindowDays: 7, ToleranceDays: 2, Effectiveness: 0.65},
		},
	}
	e := NewEngine(DefaultConfig())
	if got := e.learnedPatterns(in, time.Now()); len(got) != 0 {
		t.Fatalf("pattern below 0.7 effectiveness must be ignored, got %+v", got)
	}

	in.Patterns[0].Effectiveness = 0.9
	got := e.learnedPatterns(in, time.Now())
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if want := 0.6 * 0.9; got[0].Score != want {
		t.Errorf("score %v, want %v", got[0].Score, want)
	}
}

func TestOrphanSweep_SkipsLinkedNotes(t *testing.T) {
	in := Input{
		Invoice: testInvoice(datePtr(2024, 4, 10), "100"),
		Notes: []domain.DeliveryNote{
			{ID: "linked", SupplierID: strPtr("sup-1"), Linked: true,
				DeliveryDate: datePtr(2024, 4, 1), Total: decimal.RequireFromString("100")},
			{ID: "free", SupplierID: strPtr("sup-1"),
				DeliveryDate: datePtr(2024, 4, 1), Total: decimal.RequireFromString("100")},
		},
	}
	e := NewEngine(DefaultConfig())
	got := e.orphanSweep(in, time.Now())
	if len(got) != 1 || got[0].DeliveryNoteID != "free" {
		t.Fatalf("got %+v, want only the unlinked note", got)
	}
}
