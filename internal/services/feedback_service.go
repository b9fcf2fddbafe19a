// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs ingredient-matching
// feedback. Decisions accumulate in per-restaurant session buffers keyed by
// (dish, ingredient) with last-write-wins semantics; flushing a dish persists
// the surviving decisions and folds each one into the learned-relation table
// (create or strengthen on confirmation, repoint on correction, weaken on
// rejection). A failed flush keeps the buffer intact so nothing is lost.
package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/feedback"
	"github.com/hosteleo/go-invoice-backend/internal/normalize"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
)

// FeedbackService buffers and persists ingredient-matching decisions.
type FeedbackService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	mu      sync.Mutex
	buffers map[string]*feedback.Buffer
}

// NewFeedbackService constructs a FeedbackService with empty buffers.
func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{
		DB:      db,
		buffers: make(map[string]*feedback.Buffer),
	}
}

// buffer returns the restaurant's session buffer, creating it on first use.
func (s *FeedbackService) buffer(restaurantID string) *feedback.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buffers[restaurantID]
	if !ok {
		b = feedback.NewBuffer()
		s.buffers[restaurantID] = b
	}
	return b
}

// Record buffers one decision. Confirmations and corrections require a
// product; rejections require the product being rejected; category
// suggestions require both the product and the proposed category.
func (s *FeedbackService) Record(restaurantID, dish, ingredient string, kind domain.FeedbackKind, productID, previousProductID, suggestedCategory string) error {
	if dish == "" || ingredient == "" {
		return ErrInvalidFeedback
	}
	b := s.buffer(restaurantID)
	switch kind {
	case domain.FeedbackUserConfirm:
		if productID == "" {
			return ErrInvalidFeedback
		}
		b.Confirm(dish, ingredient, productID)
	case domain.FeedbackAutoConfirm:
		if productID == "" {
			return ErrInvalidFeedback
		}
		b.AutoConfirm(dish, ingredient, productID)
	case domain.FeedbackUserCorrection:
		if productID == "" {
			return ErrInvalidFeedback
		}
		b.Correct(dish, ingredient, productID, previousProductID)
	case domain.FeedbackUserRejection:
		if productID == "" {
			return ErrInvalidFeedback
		}
		b.Reject(dish, ingredient, productID)
	case domain.FeedbackCategorySuggestion:
		if productID == "" || suggestedCategory == "" {
			return ErrInvalidFeedback
		}
		b.SuggestCategory(dish, ingredient, productID, suggestedCategory)
	default:
		return ErrInvalidFeedback
	}
	return nil
}

// SeedAutoConfirm pre-seeds the buffer with the cascade's own match for one
// ingredient, so a user who reviews nothing still contributes a weaker
// training signal on flush. A decision the user already recorded for the
// same (dish, ingredient) key is never overwritten.
func (s *FeedbackService) SeedAutoConfirm(restaurantID, dish, ingredient, productID string) error {
	if dish == "" || ingredient == "" || productID == "" {
		return ErrInvalidFeedback
	}
	s.buffer(restaurantID).AutoConfirm(dish, ingredient, productID)
	return nil
}

// Pending returns the buffered decisions for a dish without clearing them.
func (s *FeedbackService) Pending(restaurantID, dish string) []feedback.Entry {
	return s.buffer(restaurantID).Pending(dish)
}

// Flush persists the buffered decisions of one dish and applies each to its
// learned relation. Returns the number of decisions persisted.
func (s *FeedbackService) Flush(ctx context.Context, restaurantID, dish string) (int, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Flush",
		trace.WithAttributes(
			attribute.String("restaurante.id", restaurantID),
			attribute.String("dish", dish),
		),
	)
	defer span.End()

	sink := &relationSink{db: s.DB, restaurantID: restaurantID}
	return s.buffer(restaurantID).Flush(ctx, dish, sink)
}

// relationSink persists one flushed batch: the raw feedback rows first, then
// the learned-relation updates, inside a single transaction so a failure
// leaves the buffer untouched.
type relationSink struct {
	db           *gorm.DB
	restaurantID string
}

func (rs *relationSink) SaveBatch(ctx context.Context, entries []feedback.Entry) error {
	return rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]domain.Feedback, 0, len(entries))
		for _, e := range entries {
			row := domain.Feedback{
				ID:            uuid.NewString(),
				RestauranteID: rs.restaurantID,
				Dish:          e.Dish,
				Ingredient:    e.Ingredient,
				Kind:          e.Kind,
			}
			switch e.Kind {
			case domain.FeedbackUserRejection:
				rejected := e.RejectedProductID
				row.RejectedProductID = &rejected
			default:
				product := e.ProductID
				row.ProductID = &product
				if e.PreviousProductID != "" {
					prev := e.PreviousProductID
					row.PreviousProductID = &prev
				}
				row.SuggestedCategory = e.SuggestedCategory
			}
			rows = append(rows, row)
		}
		if err := repo.SaveFeedback(ctx, tx, rows); err != nil {
			return err
		}
		for _, e := range entries {
			// Category suggestions are curation input, not a match
			// signal; they never touch the learned relation.
			if e.Kind == domain.FeedbackCategorySuggestion {
				continue
			}
			query := normalize.NormalizeProductName(e.Ingredient)
			product := e.ProductID
			if e.Kind == domain.FeedbackUserRejection {
				product = e.RejectedProductID
			}
			if err := repo.ApplyRelationFeedback(ctx, tx, rs.restaurantID, query, product, e.Kind); err != nil {
				return err
			}
		}
		return nil
	})
}
