// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for
// reconciliation links and the candidate-detection log.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// CreateLink inserts one reconciliation link.
func CreateLink(ctx context.Context, db *gorm.DB, l *domain.ReconciliationLink) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(l).Error
}

// ListLinksForInvoice returns every link of an invoice, best score first.
func ListLinksForInvoice(ctx context.Context, db *gorm.DB, invoiceID, restaurantID string) ([]domain.ReconciliationLink, error) {
	var out []domain.ReconciliationLink
	err := db.WithContext(ctx).
		Where("invoice_id = ? AND restaurante_id = ?", invoiceID, restaurantID).
		Order("score DESC").
		Find(&out).Error
	return out, err
}

// GetLink fetches one link scoped to the restaurant.
func GetLink(ctx context.Context, db *gorm.DB, id, restaurantID string) (*domain.ReconciliationLink, error) {
	var l domain.ReconciliationLink
	err := db.WithContext(ctx).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// HasConfirmedLinks reports whether the invoice already carries at least one
// human-confirmed link. Reprocessing is a no-op in that case unless forced.
func HasConfirmedLinks(ctx context.Context, db *gorm.DB, invoiceID, restaurantID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("invoice_id = ? AND restaurante_id = ? AND state = ?",
			invoiceID, restaurantID, domain.LinkStateConfirmed).
		Count(&n).Error
	return n > 0, err
}

// UpdateLinkState persists a link state transition. Confirmation timestamps
// are set here; transition legality is checked by the service first.
func UpdateLinkState(ctx context.Context, db *gorm.DB, id, restaurantID string, state domain.LinkState) error {
	updates := map[string]any{"state": state}
	if state == domain.LinkStateConfirmed {
		updates["confirmed_at"] = time.Now().UTC()
	}
	res := db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LogCandidates appends detections to the candidate log. The log is
// append-only training input; a partial insert failure is reported but must
// not abort the caller's run.
func LogCandidates(ctx context.Context, db *gorm.DB, detections []domain.CandidateDetection) error {
	if len(detections) == 0 {
		return nil
	}
	for i := range detections {
		if detections[i].ID == "" {
			detections[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).Create(&detections).Error
}

// ListDetectionsForSupplier returns the accepted detection log rows for one
// supplier's invoices, the training input for temporal patterns.
func ListDetectionsForSupplier(ctx context.Context, db *gorm.DB, restaurantID, supplierID string, limit int) ([]domain.CandidateDetection, error) {
	var out []domain.CandidateDetection
	err := db.WithContext(ctx).
		Joins("JOIN invoices ON invoices.id = candidate_detections.invoice_id").
		Where("candidate_detections.restaurante_id = ? AND invoices.supplier_id = ? AND candidate_detections.accepted = ?",
			restaurantID, supplierID, true).
		Order("candidate_detections.created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
