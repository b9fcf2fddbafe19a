// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the orphan
// document registry.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// RegisterOrphan records a document that finished reconciliation with no
// candidates. Re-registering an already pending document refreshes nothing;
// the original deadline stands.
func RegisterOrphan(ctx context.Context, db *gorm.DB, restaurantID, documentID, kind string, deadline time.Time) error {
	var existing domain.OrphanDocument
	err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.WithContext(ctx).Create(&domain.OrphanDocument{
		ID:            uuid.NewString(),
		RestauranteID: restaurantID,
		DocumentID:    documentID,
		DocumentKind:  kind,
		State:         domain.OrphanPending,
		Deadline:      deadline,
		CreatedAt:     time.Now().UTC(),
	}).Error
}

// ResolveOrphan marks a pending registration as resolved.
func ResolveOrphan(ctx context.Context, db *gorm.DB, documentID, restaurantID string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.OrphanDocument{}).
		Where("document_id = ? AND restaurante_id = ? AND state = ?",
			documentID, restaurantID, domain.OrphanPending).
		Updates(map[string]any{"state": domain.OrphanResolved, "resolved_at": now})
	return res.Error
}

// ListPendingOrphans returns pending registrations, soonest deadline first.
func ListPendingOrphans(ctx context.Context, db *gorm.DB, restaurantID string) ([]domain.OrphanDocument, error) {
	var out []domain.OrphanDocument
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND state = ?", restaurantID, domain.OrphanPending).
		Order("deadline ASC").
		Find(&out).Error
	return out, err
}

// ListExpiredOrphans returns pending registrations whose deadline passed.
func ListExpiredOrphans(ctx context.Context, db *gorm.DB, restaurantID string, now time.Time) ([]domain.OrphanDocument, error) {
	var out []domain.OrphanDocument
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND state = ? AND deadline < ?",
			restaurantID, domain.OrphanPending, now).
		Order("deadline ASC").
		Find(&out).Error
	return out, err
}
