// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for invoices and
// their line items.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Status transition rules live in the
// domain package and are enforced by the service layer before a write.
//
// Error semantics:
//   - When an invoice is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateInvoice inserts a new invoice together with its line items in one
// transaction. Missing IDs are filled with fresh UUIDs.
func CreateInvoice(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	for i := range inv.Lines {
		if inv.Lines[i].ID == "" {
			inv.Lines[i].ID = uuid.NewString()
		}
		inv.Lines[i].InvoiceID = inv.ID
		inv.Lines[i].RestauranteID = inv.RestauranteID
	}
	inv.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(inv).Error
}

// GetInvoice fetches one invoice with its lines, scoped to the restaurant.
func GetInvoice(ctx context.Context, db *gorm.DB, id, restaurantID string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).
		Preload("Lines").
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CountInvoices returns the total number of invoices for a restaurant.
func CountInvoices(ctx context.Context, db *gorm.DB, restaurantID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("restaurante_id = ?", restaurantID).
		Count(&n).Error
	return n, err
}

// ListInvoicesPage returns a page of invoices ordered by creation time
// descending, without lines.
func ListInvoicesPage(ctx context.Context, db *gorm.DB, restaurantID string, offset, limit int) ([]domain.Invoice, error) {
	var out []domain.Invoice
	err := db.WithContext(ctx).
		Where("restaurante_id = ?", restaurantID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateInvoiceStatus persists a document status change.
func UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, id, restaurantID string, status domain.DocumentStatus) error {
	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateInvoiceReconState persists the reconciliation outcome on the
// invoice: reconciliation state, review flag, and final status.
func UpdateInvoiceReconState(ctx context.Context, db *gorm.DB, id, restaurantID string,
	state domain.ReconciliationState, requiresReview bool, status domain.DocumentStatus) error {
	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		Updates(map[string]any{
			"recon_state":     state,
			"requires_review": requiresReview,
			"status":          status,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetInvoiceSupplier stores the resolved supplier on the invoice.
func SetInvoiceSupplier(ctx context.Context, db *gorm.DB, id, restaurantID, supplierID string) error {
	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		Update("supplier_id", supplierID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLineProduct stores the matched catalog product on one line item.
func SetLineProduct(ctx context.Context, db *gorm.DB, lineID, restaurantID, productID string) error {
	res := db.WithContext(ctx).Model(&domain.InvoiceLine{}).
		Where("id = ? AND restaurante_id = ?", lineID, restaurantID).
		Update("producto_maestro_id", productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInvoice removes an invoice and, via FK cascade, its line items and
// reconciliation links. This is the only deletion path for invoices and is
// always an explicit user action.
func DeleteInvoice(ctx context.Context, db *gorm.DB, id, restaurantID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND restaurante_id = ?", id, restaurantID).
			Delete(&domain.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// Soft deletes don't fire FK cascades, so dependents are swept
		// explicitly inside the same transaction.
		if err := tx.Where("invoice_id = ?", id).Delete(&domain.InvoiceLine{}).Error; err != nil {
			return err
		}
		return tx.Where("invoice_id = ?", id).Delete(&domain.ReconciliationLink{}).Error
	})
}
