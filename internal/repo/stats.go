// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries
// surfaced on the reconciliation dashboard. Each function is context-aware
// and safe to call from services or handlers.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// ReconciliationStats summarizes how reconciliation has performed for one
// restaurant.
type ReconciliationStats struct {
	TotalLinks     int64 `json:"total_links"`
	ConfirmedLinks int64 `json:"confirmed_links"`
	RejectedLinks  int64 `json:"rejected_links"`
	AutoLinks      int64 `json:"auto_links"`
	PendingOrphans int64 `json:"pending_orphans"`
	// Precision is the confirmed fraction of all user-judged links, the
	// historical accuracy of the detection strategies.
	Precision float64 `json:"precision"`
}

// GetReconciliationStats aggregates link and orphan counts for a
// restaurant.
func GetReconciliationStats(ctx context.Context, db *gorm.DB, restaurantID string) (*ReconciliationStats, error) {
	var s ReconciliationStats
	if err := db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("restaurante_id = ?", restaurantID).
		Count(&s.TotalLinks).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("restaurante_id = ? AND state = ?", restaurantID, domain.LinkStateConfirmed).
		Count(&s.ConfirmedLinks).Error; err != nil {
		return nil, err
	}

	rejected := db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("restaurante_id = ? AND state = ?", restaurantID, domain.LinkStateRejected)
	if err := rejected.Count(&s.RejectedLinks).Error; err != nil {
		return nil, err
	}

	auto := db.WithContext(ctx).Model(&domain.ReconciliationLink{}).
		Where("restaurante_id = ? AND created_by = ?", restaurantID, domain.LinkCreatedByEngine)
	if err := auto.Count(&s.AutoLinks).Error; err != nil {
		return nil, err
	}

	orphans := db.WithContext(ctx).Model(&domain.OrphanDocument{}).
		Where("restaurante_id = ? AND state = ?", restaurantID, domain.OrphanPending)
	if err := orphans.Count(&s.PendingOrphans).Error; err != nil {
		return nil, err
	}

	if judged := s.ConfirmedLinks + s.RejectedLinks; judged > 0 {
		s.Precision = float64(s.ConfirmedLinks) / float64(judged)
	}
	return &s, nil
}

// CatalogStats summarizes one restaurant's catalog.
type CatalogStats struct {
	Products     int64 `json:"products"`
	PriceEntries int64 `json:"price_entries"`
	MatchedLines int64 `json:"matched_lines"`
	TotalLines   int64 `json:"total_lines"`
}

// GetCatalogStats aggregates catalog size and line-item match coverage.
func GetCatalogStats(ctx context.Context, db *gorm.DB, restaurantID string) (*CatalogStats, error) {
	var s CatalogStats
	if err := db.WithContext(ctx).Model(&domain.CatalogProduct{}).
		Where("restaurante_id = ?", restaurantID).
		Count(&s.Products).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&domain.PriceHistory{}).
		Where("restaurante_id = ?", restaurantID).
		Count(&s.PriceEntries).Error; err != nil {
		return nil, err
	}
	lines := db.WithContext(ctx).Model(&domain.InvoiceLine{}).
		Where("restaurante_id = ?", restaurantID)
	if err := lines.Count(&s.TotalLines).Error; err != nil {
		return nil, err
	}
	matched := db.WithContext(ctx).Model(&domain.InvoiceLine{}).
		Where("restaurante_id = ? AND producto_maestro_id IS NOT NULL", restaurantID)
	if err := matched.Count(&s.MatchedLines).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
