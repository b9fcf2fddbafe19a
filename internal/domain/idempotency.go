package domain

import "time"

// Idempotency records the result of a previously processed upload request,
// keyed by (restaurante_id, key). It lets clients retry POST /documents
// safely: the originally created document is returned instead of ingesting
// the file a second time.
type Idempotency struct {
	ID            string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	RestauranteID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_restaurant_key,priority:1"`
	Key           string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_restaurant_key,priority:2"`
	DocumentID    string    `gorm:"type:TEXT NOT NULL"`
	Status        int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt     time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt     time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
