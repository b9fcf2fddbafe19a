// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the product
// catalog and its price history.
//
// The three lookup functions mirror the stages of the matching cascade:
// FindProductByCommercialName (exact, case-sensitive),
// FindProductByNormalizedName (secondary index), and
// SearchProductsByKeywords (LIKE candidates for fuzzy scoring).
//
// RecordPurchase is the per-product read-modify-write for the rolling price
// statistics; it runs in a transaction with the product row locked so two
// invoices hitting the same product concurrently cannot lose updates.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/pricing"
)

// FindProductByCommercialName does the exact, case-sensitive first-stage
// lookup.
func FindProductByCommercialName(ctx context.Context, db *gorm.DB, restaurantID, name string) (*domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND commercial_name = ?", restaurantID, name).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindProductByNormalizedName does the second-stage lookup against the
// normalized-name index.
func FindProductByNormalizedName(ctx context.Context, db *gorm.DB, restaurantID, normalized string) (*domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	err := db.WithContext(ctx).
		Where("restaurante_id = ? AND normalized_name = ?", restaurantID, normalized).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchProductsByKeywords returns candidates whose commercial or normalized
// name contains any of the keywords. The caller scores them.
func SearchProductsByKeywords(ctx context.Context, db *gorm.DB, restaurantID string, keywords []string) ([]domain.CatalogProduct, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	q := db.WithContext(ctx).Where("restaurante_id = ?", restaurantID)

	var conds []string
	var args []any
	for _, kw := range keywords {
		pattern := "%" + strings.ToLower(kw) + "%"
		conds = append(conds, "(LOWER(commercial_name) LIKE ? OR normalized_name LIKE ?)")
		args = append(args, pattern, pattern)
	}
	q = q.Where(strings.Join(conds, " OR "), args...)

	var out []domain.CatalogProduct
	err := q.Limit(50).Find(&out).Error
	return out, err
}

// CreateProduct inserts a new catalog product.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.CatalogProduct) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// GetProduct fetches one catalog product scoped to the restaurant.
func GetProduct(ctx context.Context, db *gorm.DB, id, restaurantID string) (*domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	err := db.WithContext(ctx).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountProducts returns the catalog size for a restaurant.
func CountProducts(ctx context.Context, db *gorm.DB, restaurantID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.CatalogProduct{}).
		Where("restaurante_id = ?", restaurantID).
		Count(&n).Error
	return n, err
}

// ListProductsPage returns a page of the catalog ordered by purchase
// recency.
func ListProductsPage(ctx context.Context, db *gorm.DB, restaurantID string, offset, limit int) ([]domain.CatalogProduct, error) {
	var out []domain.CatalogProduct
	err := db.WithContext(ctx).
		Where("restaurante_id = ?", restaurantID).
		Order("last_purchase_date DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// ListPriceHistory returns a product's purchase log, newest first.
func ListPriceHistory(ctx context.Context, db *gorm.DB, productID, restaurantID string, limit int) ([]domain.PriceHistory, error) {
	var out []domain.PriceHistory
	err := db.WithContext(ctx).
		Where("product_id = ? AND restaurante_id = ?", productID, restaurantID).
		Order("purchase_date DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecordPurchase appends one price-history row and recomputes the product's
// rolling statistics from the trailing window, all inside a transaction
// holding an update lock on the product row.
func RecordPurchase(ctx context.Context, db *gorm.DB, h *domain.PriceHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.CatalogProduct
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND restaurante_id = ?", h.ProductID, h.RestauranteID).
			First(&p).Error; err != nil {
			return err
		}
		if err := tx.Create(h).Error; err != nil {
			return err
		}

		since := h.PurchaseDate.Add(-pricing.StatsWindow)
		var window []domain.PriceHistory
		if err := tx.
			Where("product_id = ? AND purchase_date >= ?", h.ProductID, since).
			Find(&window).Error; err != nil {
			return err
		}
		stats := pricing.ComputeStats(window, h.PurchaseDate)

		p.LastPrice = h.Price
		p.MinPrice = stats.Min
		p.MaxPrice = stats.Max
		p.AvgPrice30 = stats.Avg
		p.Variance30 = stats.Variance
		p.PurchaseCount++
		purchased := h.PurchaseDate
		p.LastPurchaseDate = &purchased
		return tx.Save(&p).Error
	})
}
