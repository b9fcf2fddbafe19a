// Package domain defines the persistence models for invoices, delivery notes,
// the product catalog, and the learning tables. These types are mapped with
// GORM and form the core data layer of the application.
//
// All state columns use typed string enums with explicit transition tables.
// Free-form status strings are deliberately not accepted: a transition that is
// not listed in the table is rejected with ErrInvalidTransition.
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a state change is not listed in the
// transition table of the corresponding enum.
var ErrInvalidTransition = errors.New("invalid state transition")

// DocumentStatus tracks the processing lifecycle of an uploaded document.
// The phase a document is in is always explicit in its status; it is never
// inferred from the shape of stored extraction data.
type DocumentStatus string

const (
	DocStatusPending     DocumentStatus = "pending"
	DocStatusExtracting  DocumentStatus = "extracting"
	DocStatusExtracted   DocumentStatus = "extracted"
	DocStatusReconciling DocumentStatus = "reconciling"
	DocStatusReconciled  DocumentStatus = "reconciled"
	DocStatusError       DocumentStatus = "error"
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocStatusPending:     {DocStatusExtracting, DocStatusError},
	DocStatusExtracting:  {DocStatusExtracted, DocStatusError},
	DocStatusExtracted:   {DocStatusReconciling, DocStatusError},
	DocStatusReconciling: {DocStatusReconciled, DocStatusExtracted, DocStatusError},
	// Reconciled invoices may be reprocessed when explicitly forced.
	DocStatusReconciled: {DocStatusReconciling},
	DocStatusError:      {DocStatusExtracting},
}

// CanTransition reports whether s → next is an allowed lifecycle step.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	for _, t := range documentTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition returns next if the step is allowed, or ErrInvalidTransition.
func (s DocumentStatus) Transition(next DocumentStatus) (DocumentStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// ReconciliationState describes how an invoice relates to delivery notes.
type ReconciliationState string

const (
	ReconStateUnlinked      ReconciliationState = "unlinked"
	ReconStateAutoLinked    ReconciliationState = "auto_linked"
	ReconStateSuggested     ReconciliationState = "suggested"
	ReconStateManualReview  ReconciliationState = "manual_review"
	ReconStateDirectInvoice ReconciliationState = "direct_invoice"
)

// LinkState is the lifecycle of one invoice/delivery-note candidate link.
// Confirmation and rejection are explicit, human-driven transitions;
// confirmed and rejected are terminal.
type LinkState string

const (
	LinkStateDetected  LinkState = "detected"
	LinkStateSuggested LinkState = "suggested"
	LinkStateConfirmed LinkState = "confirmed"
	LinkStateRejected  LinkState = "rejected"
)

// LinkCreatedByEngine marks links written by the detection engine, as
// opposed to links a user created by hand. Stats queries filter on it.
const LinkCreatedByEngine = "engine"

var linkTransitions = map[LinkState][]LinkState{
	LinkStateDetected:  {LinkStateConfirmed, LinkStateRejected},
	LinkStateSuggested: {LinkStateConfirmed, LinkStateRejected},
}

// CanTransition reports whether s → next is allowed for a link.
func (s LinkState) CanTransition(next LinkState) bool {
	for _, t := range linkTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition returns next if the step is allowed, or ErrInvalidTransition.
func (s LinkState) Transition(next LinkState) (LinkState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// DetectionMethod identifies which strategy produced a candidate link.
type DetectionMethod string

const (
	MethodExplicitRef       DetectionMethod = "explicit_reference"
	MethodTemporalProximity DetectionMethod = "temporal_proximity"
	MethodProductContent    DetectionMethod = "product_content"
	MethodLearnedPattern    DetectionMethod = "learned_pattern"
	MethodOrphanSweep       DetectionMethod = "orphan_sweep"
)

// FeedbackKind tags the provenance of one ingredient-matching decision.
// Values are the wire values expected by the learning backend; automatic
// confirmations are weighted lower than explicit user decisions.
type FeedbackKind string

const (
	FeedbackAutoConfirm        FeedbackKind = "confirmacion_automatica"
	FeedbackUserConfirm        FeedbackKind = "confirmacion_usuario"
	FeedbackUserCorrection     FeedbackKind = "correccion_usuario"
	FeedbackUserRejection      FeedbackKind = "rechazo_usuario"
	FeedbackCategorySuggestion FeedbackKind = "sugerencia_categoria"
)

// OrphanState is the lifecycle of an unlinked delivery note registration.
type OrphanState string

const (
	OrphanPending  OrphanState = "pending"
	OrphanResolved OrphanState = "resolved"
)
