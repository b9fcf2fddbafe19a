// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for delivery
// notes (albaranes).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// CreateDeliveryNote inserts a note with its lines.
func CreateDeliveryNote(ctx context.Context, db *gorm.DB, n *domain.DeliveryNote) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	for i := range n.Lines {
		if n.Lines[i].ID == "" {
			n.Lines[i].ID = uuid.NewString()
		}
		n.Lines[i].DeliveryNoteID = n.ID
		n.Lines[i].RestauranteID = n.RestauranteID
	}
	n.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(n).Error
}

// GetDeliveryNote fetches one note with its lines, scoped to the restaurant.
func GetDeliveryNote(ctx context.Context, db *gorm.DB, id, restaurantID string) (*domain.DeliveryNote, error) {
	var n domain.DeliveryNote
	err := db.WithContext(ctx).
		Preload("Lines").
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotesForSupplier returns a supplier's delivery notes with lines,
// newest first. It is the candidate universe one reconciliation run reads.
func ListNotesForSupplier(ctx context.Context, db *gorm.DB, restaurantID, supplierID string) ([]domain.DeliveryNote, error) {
	var out []domain.DeliveryNote
	err := db.WithContext(ctx).
		Preload("Lines").
		Where("restaurante_id = ? AND supplier_id = ?", restaurantID, supplierID).
		Order("delivery_date DESC").
		Find(&out).Error
	return out, err
}

// ListNotesPage returns a page of all notes for a restaurant, newest first.
func ListNotesPage(ctx context.Context, db *gorm.DB, restaurantID string, offset, limit int) ([]domain.DeliveryNote, error) {
	var out []domain.DeliveryNote
	err := db.WithContext(ctx).
		Where("restaurante_id = ?", restaurantID).
		Order("delivery_date DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkNoteLinked flips the note's linked flag.
func MarkNoteLinked(ctx context.Context, db *gorm.DB, id, restaurantID string, linked bool) error {
	res := db.WithContext(ctx).Model(&domain.DeliveryNote{}).
		Where("id = ? AND restaurante_id = ?", id, restaurantID).
		Update("linked", linked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDeliveryNote removes a note and its lines. Explicit user action
// only.
func DeleteDeliveryNote(ctx context.Context, db *gorm.DB, id, restaurantID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND restaurante_id = ?", id, restaurantID).
			Delete(&domain.DeliveryNote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("delivery_note_id = ?", id).Delete(&domain.DeliveryNoteLine{}).Error; err != nil {
			return err
		}
		return tx.Where("delivery_note_id = ?", id).Delete(&domain.ReconciliationLink{}).Error
	})
}
