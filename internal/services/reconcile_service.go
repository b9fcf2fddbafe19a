// Package services – ReconciliationService
//
// This file implements the ReconciliationService, which orchestrates one
// reconciliation run for an invoice: it gathers the supplier-scoped delivery
// notes and learned patterns, runs the detection engine, and persists the
// outcome (links, the candidate-detection log, orphan registration, the
// invoice's reconciliation state). All engine strategies are read-only;
// every write happens here, strictly after consolidation, and a failure to
// persist one candidate never aborts the rest of the run.
//
// The service also owns the explicit confirm/reject transitions on links and
// feeds confirmed temporal gaps back into the learned-pattern table.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/reconcile"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
)

// Outcome is the user-facing result of one reconciliation run, shaped for
// direct serialization into the API response.
type Outcome struct {
	Success        bool                   `json:"success"`
	AutoLinks      int                    `json:"enlaces_automaticos"`
	Suggestions    int                    `json:"sugerencias"`
	RequiresReview bool                   `json:"requiere_revision"`
	Notification   reconcile.Notification `json:"notificacion"`
}

// ReconciliationService runs the detection engine over an invoice and
// persists the results.
type ReconciliationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Engine is the five-strategy detection engine.
	Engine *reconcile.Engine

	// OrphanDeadline is how long an unlinked document stays in the pending
	// orphan registry before it is surfaced for manual handling.
	OrphanDeadline time.Duration
}

// NewReconciliationService constructs the service with the default engine
// configuration and a seven-day orphan deadline.
func NewReconciliationService(db *gorm.DB) *ReconciliationService {
	return &ReconciliationService{
		DB:             db,
		Engine:         reconcile.NewEngine(reconcile.DefaultConfig()),
		OrphanDeadline: 7 * 24 * time.Hour,
	}
}

// Reconcile runs the engine for invoiceID and persists the outcome.
//
// Reprocessing is idempotent: candidates whose delivery note already has a
// confirmed link are skipped, and force never downgrades a confirmed link.
// Without force, an already reconciled invoice returns its stored outcome
// instead of rerunning the engine.
func (s *ReconciliationService) Reconcile(ctx context.Context, restaurantID, invoiceID string, force bool) (*Outcome, error) {
	tr := otel.Tracer("services/ReconciliationService")
	ctx, span := tr.Start(ctx, "Reconcile",
		trace.WithAttributes(
			attribute.String("restaurante.id", restaurantID),
			attribute.String("invoice.id", invoiceID),
			attribute.Bool("force", force),
		),
	)
	defer span.End()

	inv, err := repo.GetInvoice(ctx, s.DB, invoiceID, restaurantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	if inv.Status == domain.DocStatusReconciled && !force {
		return s.storedOutcome(ctx, inv)
	}

	if inv.Status.CanTransition(domain.DocStatusReconciling) {
		if err := repo.UpdateInvoiceStatus(ctx, s.DB, inv.ID, restaurantID, domain.DocStatusReconciling); err != nil {
			return nil, err
		}
	}

	in := reconcile.Input{Invoice: inv}
	if inv.SupplierID != nil {
		in.Notes, err = repo.ListNotesForSupplier(ctx, s.DB, restaurantID, *inv.SupplierID)
		if err != nil {
			return nil, err
		}
		in.Patterns, err = repo.ListPatternsForSupplier(ctx, s.DB, restaurantID, *inv.SupplierID)
		if err != nil {
			return nil, err
		}
	}

	res := s.Engine.Run(in, time.Now().UTC())

	confirmed := map[string]bool{}
	existing, err := repo.ListLinksForInvoice(ctx, s.DB, inv.ID, restaurantID)
	if err != nil {
		return nil, err
	}
	for _, l := range existing {
		if l.State == domain.LinkStateConfirmed {
			confirmed[l.DeliveryNoteID] = true
		}
	}

	autoWritten := s.persistLinks(ctx, inv, res.AutoLinks, domain.LinkStateDetected, confirmed)
	suggWritten := s.persistLinks(ctx, inv, res.Suggestions, domain.LinkStateSuggested, confirmed)
	s.logDetections(ctx, inv, res)

	reconState := domain.ReconStateUnlinked
	switch {
	case autoWritten > 0 || len(confirmed) > 0:
		reconState = domain.ReconStateAutoLinked
	case suggWritten > 0:
		reconState = domain.ReconStateSuggested
	case res.RequiresReview:
		reconState = domain.ReconStateManualReview
	case res.RegisterOrphan:
		reconState = domain.ReconStateDirectInvoice
		deadline := time.Now().UTC().Add(s.OrphanDeadline)
		if err := repo.RegisterOrphan(ctx, s.DB, restaurantID, inv.ID, "invoice", deadline); err != nil {
			log.Error().Err(err).Str("invoice_id", inv.ID).Msg("orphan registration failed")
		}
	}

	if err := repo.UpdateInvoiceReconState(ctx, s.DB, inv.ID, restaurantID,
		reconState, res.RequiresReview, domain.DocStatusReconciled); err != nil {
		return nil, err
	}

	return &Outcome{
		Success:        true,
		AutoLinks:      autoWritten,
		Suggestions:    suggWritten,
		RequiresReview: res.RequiresReview,
		Notification:   res.Notification,
	}, nil
}

// persistLinks writes one link per candidate, skipping delivery notes that
// already carry a confirmed link. Write failures are logged and skipped.
func (s *ReconciliationService) persistLinks(ctx context.Context, inv *domain.Invoice, cands []reconcile.Candidate, state domain.LinkState, confirmed map[string]bool) int {
	written := 0
	for _, c := range cands {
		if confirmed[c.DeliveryNoteID] {
			continue
		}
		reasons, _ := json.Marshal(c.Reasons)
		l := &domain.ReconciliationLink{
			ID:             uuid.NewString(),
			RestauranteID:  inv.RestauranteID,
			InvoiceID:      inv.ID,
			DeliveryNoteID: c.DeliveryNoteID,
			Method:         c.Method,
			Score:          c.Score,
			Reasons:        string(reasons),
			State:          state,
			CreatedBy:      domain.LinkCreatedByEngine,
		}
		if err := repo.CreateLink(ctx, s.DB, l); err != nil {
			log.Error().Err(err).
				Str("invoice_id", inv.ID).
				Str("delivery_note_id", c.DeliveryNoteID).
				Msg("candidate link not written")
			continue
		}
		written++
		if state == domain.LinkStateDetected {
			if err := repo.MarkNoteLinked(ctx, s.DB, c.DeliveryNoteID, inv.RestauranteID, true); err != nil {
				log.Error().Err(err).Str("delivery_note_id", c.DeliveryNoteID).Msg("note not marked linked")
			}
			if err := repo.ResolveOrphan(ctx, s.DB, c.DeliveryNoteID, inv.RestauranteID); err != nil &&
				!errors.Is(err, repo.ErrNotFound) {
				log.Error().Err(err).Str("delivery_note_id", c.DeliveryNoteID).Msg("orphan not resolved")
			}
		}
	}
	return written
}

// logDetections appends every consolidated candidate to the detection log.
func (s *ReconciliationService) logDetections(ctx context.Context, inv *domain.Invoice, res reconcile.Result) {
	accepted := map[string]bool{}
	for _, c := range res.AutoLinks {
		accepted[c.DeliveryNoteID] = true
	}
	for _, c := range res.Suggestions {
		accepted[c.DeliveryNoteID] = true
	}

	rows := make([]domain.CandidateDetection, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		factors, _ := json.Marshal(c.Factors)
		rows = append(rows, domain.CandidateDetection{
			RestauranteID:  inv.RestauranteID,
			InvoiceID:      inv.ID,
			DeliveryNoteID: c.DeliveryNoteID,
			Method:         c.Method,
			Score:          c.Score,
			Factors:        string(factors),
			Category:       string(s.Engine.Config().Categorize(c.Score)),
			Accepted:       accepted[c.DeliveryNoteID],
		})
	}
	if len(rows) == 0 {
		return
	}
	if err := repo.LogCandidates(ctx, s.DB, rows); err != nil {
		log.Error().Err(err).Str("invoice_id", inv.ID).Msg("detection log not written")
	}
}

// storedOutcome rebuilds the response for an already reconciled invoice from
// its persisted links, so repeated non-forced calls stay idempotent.
func (s *ReconciliationService) storedOutcome(ctx context.Context, inv *domain.Invoice) (*Outcome, error) {
	links, err := repo.ListLinksForInvoice(ctx, s.DB, inv.ID, inv.RestauranteID)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Success: true, RequiresReview: inv.RequiresReview}
	for _, l := range links {
		switch l.State {
		case domain.LinkStateDetected, domain.LinkStateConfirmed:
			out.AutoLinks++
		case domain.LinkStateSuggested:
			out.Suggestions++
		}
	}
	out.Notification = s.Engine.Notify(out.AutoLinks, out.Suggestions, out.RequiresReview)
	return out, nil
}

// ConfirmLink marks a candidate link confirmed, marks the note linked, and
// strengthens the supplier's temporal pattern with the confirmed gap.
func (s *ReconciliationService) ConfirmLink(ctx context.Context, restaurantID, invoiceID, linkID string) error {
	l, err := s.loadLink(ctx, restaurantID, invoiceID, linkID)
	if err != nil {
		return err
	}
	if !l.State.CanTransition(domain.LinkStateConfirmed) {
		return ErrLinkStateFinal
	}
	if err := repo.UpdateLinkState(ctx, s.DB, l.ID, restaurantID, domain.LinkStateConfirmed); err != nil {
		return err
	}
	if err := repo.MarkNoteLinked(ctx, s.DB, l.DeliveryNoteID, restaurantID, true); err != nil {
		log.Error().Err(err).Str("delivery_note_id", l.DeliveryNoteID).Msg("note not marked linked")
	}

	s.learnGap(ctx, restaurantID, invoiceID, l.DeliveryNoteID)
	return nil
}

// RejectLink marks a candidate link rejected. The delivery note goes back to
// the unlinked pool unless another detected or confirmed link still holds it.
func (s *ReconciliationService) RejectLink(ctx context.Context, restaurantID, invoiceID, linkID string) error {
	l, err := s.loadLink(ctx, restaurantID, invoiceID, linkID)
	if err != nil {
		return err
	}
	if !l.State.CanTransition(domain.LinkStateRejected) {
		return ErrLinkStateFinal
	}
	if err := repo.UpdateLinkState(ctx, s.DB, l.ID, restaurantID, domain.LinkStateRejected); err != nil {
		return err
	}

	links, err := repo.ListLinksForInvoice(ctx, s.DB, invoiceID, restaurantID)
	if err != nil {
		return err
	}
	held := false
	for _, other := range links {
		if other.DeliveryNoteID == l.DeliveryNoteID &&
			(other.State == domain.LinkStateDetected || other.State == domain.LinkStateConfirmed) {
			held = true
			break
		}
	}
	if !held {
		if err := repo.MarkNoteLinked(ctx, s.DB, l.DeliveryNoteID, restaurantID, false); err != nil {
			log.Error().Err(err).Str("delivery_note_id", l.DeliveryNoteID).Msg("note not unlinked")
		}
	}
	return nil
}

// Links lists the candidate links of an invoice, best score first.
func (s *ReconciliationService) Links(ctx context.Context, restaurantID, invoiceID string) ([]domain.ReconciliationLink, error) {
	if _, err := repo.GetInvoice(ctx, s.DB, invoiceID, restaurantID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return repo.ListLinksForInvoice(ctx, s.DB, invoiceID, restaurantID)
}

func (s *ReconciliationService) loadLink(ctx context.Context, restaurantID, invoiceID, linkID string) (*domain.ReconciliationLink, error) {
	l, err := repo.GetLink(ctx, s.DB, linkID, restaurantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if l.InvoiceID != invoiceID {
		return nil, ErrLinkNotFound
	}
	return l, nil
}

// learnGap upserts the supplier's temporal pattern from the confirmed
// invoice/delivery-note date gap.
func (s *ReconciliationService) learnGap(ctx context.Context, restaurantID, invoiceID, noteID string) {
	inv, err := repo.GetInvoice(ctx, s.DB, invoiceID, restaurantID)
	if err != nil || inv.SupplierID == nil || inv.IssueDate == nil {
		return
	}
	note, err := repo.GetDeliveryNote(ctx, s.DB, noteID, restaurantID)
	if err != nil || note.DeliveryDate == nil {
		return
	}
	gap := int(inv.IssueDate.Sub(*note.DeliveryDate).Hours() / 24)
	if gap < 0 {
		return
	}

	p := &domain.LearnedPattern{
		RestauranteID: restaurantID,
		SupplierID:    *inv.SupplierID,
		WindowDays:    gap,
		ToleranceDays: 2,
		Effectiveness: 1,
		SampleCount:   1,
	}
	existing, err := repo.ListPatternsForSupplier(ctx, s.DB, restaurantID, *inv.SupplierID)
	if err == nil {
		for _, e := range existing {
			if e.WindowDays != gap {
				continue
			}
			// One more confirmed observation of this gap.
			p.ToleranceDays = e.ToleranceDays
			p.SampleCount = e.SampleCount + 1
			p.Effectiveness = (e.Effectiveness*float64(e.SampleCount) + 1) / float64(p.SampleCount)
			break
		}
	}
	if err := repo.UpsertPattern(ctx, s.DB, p); err != nil {
		log.Error().Err(err).Str("supplier_id", *inv.SupplierID).Msg("pattern not updated")
	}
}
