// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the learning
// side: temporal patterns, learned query relations, and persisted feedback.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// ListPatternsForSupplier returns every learned temporal pattern of one
// supplier, regardless of effectiveness. The reconciliation engine applies
// its own consultation floor.
func ListPatternsForSupplier(ctx context.Context, db *gorm.DB, restaurantID, supplierID string) ([]domain.LearnedPattern, error) {
	var out []domain.LearnedPattern
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND supplier_id = ?", restaurantID, supplierID).
		Find(&out).Error
	return out, err
}

// UpsertPattern creates or refreshes the pattern for (restaurant, supplier,
// window).
func UpsertPattern(ctx context.Context, db *gorm.DB, p *domain.LearnedPattern) error {
	var existing domain.LearnedPattern
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND supplier_id = ? AND window_days = ?",
			p.RestauranteID, p.SupplierID, p.WindowDays).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = time.Now().UTC()
		return db.WithContext(ctx).Create(p).Error
	case err != nil:
		return err
	default:
		existing.ToleranceDays = p.ToleranceDays
		existing.Effectiveness = p.Effectiveness
		existing.SampleCount = p.SampleCount
		return db.WithContext(ctx).Save(&existing).Error
	}
}

// GetRelation returns the learned relation for a normalized query, or
// ErrNotFound.
func GetRelation(ctx context.Context, db *gorm.DB, restaurantID, normalizedQuery string) (*domain.LearnedRelation, error) {
	var r domain.LearnedRelation
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND normalized_query = ?", restaurantID, normalizedQuery).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ApplyRelationFeedback folds one feedback decision into the learned
// relation for its query: confirmations strengthen it, corrections repoint
// it at the corrected product, rejections weaken it. Confidence is the
// confirmed fraction of all votes.
func ApplyRelationFeedback(ctx context.Context, db *gorm.DB, restaurantID, normalizedQuery, productID string, kind domain.FeedbackKind) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r domain.LearnedRelation
		err := tx.Where("restaurante_id = ? AND normalized_query = ?", restaurantID, normalizedQuery).
			First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r = domain.LearnedRelation{
				ID:              uuid.NewString(),
				RestauranteID:   restaurantID,
				NormalizedQuery: normalizedQuery,
				ProductID:       productID,
				CreatedAt:       time.Now().UTC(),
			}
		} else if err != nil {
			return err
		}

		switch kind {
		case domain.FeedbackUserConfirm, domain.FeedbackAutoConfirm:
			r.ConfirmationCount++
		case domain.FeedbackUserCorrection:
			r.ProductID = productID
			r.ConfirmationCount++
		case domain.FeedbackUserRejection:
			r.RejectionCount++
		}
		r.LastFeedback = kind
		if total := r.ConfirmationCount + r.RejectionCount; total > 0 {
			r.Confidence = float64(r.ConfirmationCount) / float64(total)
		}
		return tx.Save(&r).Error
	})
}

// SaveFeedback persists one flushed feedback batch.
func SaveFeedback(ctx context.Context, db *gorm.DB, entries []domain.Feedback) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).Create(&entries).Error
}
