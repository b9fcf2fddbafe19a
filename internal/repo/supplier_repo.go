// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for supplier
// records.
//
// Suppliers are unique per (restaurante_id, tax_id); rows created from a
// name-only resolution carry a NULL tax ID so partial extractions never
// collide on the unique index. Merging two suppliers is never done here.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// FindSupplierByTaxID does the primary-path lookup.
func FindSupplierByTaxID(ctx context.Context, db *gorm.DB, restaurantID, taxID string) (*domain.Supplier, error) {
	var s domain.Supplier
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND tax_id = ?", restaurantID, taxID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TaxIDUsedByOtherRestaurant reports whether taxID identifies a different
// restaurant, which means the extraction read the buyer's CIF where the
// seller's should be.
func TaxIDUsedByOtherRestaurant(ctx context.Context, db *gorm.DB, restaurantID, taxID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Restaurant{}).
		Where("tax_id = ? AND id <> ?", taxID, restaurantID).
		Count(&n).Error
	return n > 0, err
}

// ListSuppliers returns every supplier of a restaurant, most recently
// invoiced first.
func ListSuppliers(ctx context.Context, db *gorm.DB, restaurantID string) ([]domain.Supplier, error) {
	var out []domain.Supplier
	err := db.WithContext(ctx).
		Where("restaurante_id = ?", restaurantID).
		Order("last_invoice_date DESC").
		Find(&out).Error
	return out, err
}

// CreateSupplier inserts a new supplier row.
func CreateSupplier(ctx context.Context, db *gorm.DB, s *domain.Supplier) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(s).Error
}

// TouchSupplierInvoice increments the invoice counter and advances the
// last-invoice date.
func TouchSupplierInvoice(ctx context.Context, db *gorm.DB, id, restaurantID string, invoiceDate time.Time) error {
	res := db.WithContext(ctx).Model(&domain.Supplier{}).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		Updates(map[string]any{
			"invoice_count":     gorm.Expr("invoice_count + 1"),
			"last_invoice_date": invoiceDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRestaurant fetches one restaurant.
func GetRestaurant(ctx context.Context, db *gorm.DB, id string) (*domain.Restaurant, error) {
	var r domain.Restaurant
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}
