package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryNote (albarán) is a goods-delivery document, typically preceding
// the invoice it will be reconciled against. Its lifecycle mirrors Invoice;
// a note that remains unlinked past the resolution deadline is tracked in the
// OrphanDocument registry.
type DeliveryNote struct {
	ID            string  `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string  `json:"restaurante_id" gorm:"type:char(36);not null;index:idx_restaurant_notes"`
	SupplierID    *string `json:"supplier_id,omitempty" gorm:"type:char(36);index"`

	SupplierName string     `json:"supplier_name" gorm:"type:varchar(255)"`
	Number       string     `json:"number"        gorm:"type:varchar(64);index"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty" gorm:"index"`

	Total decimal.Decimal `json:"total" gorm:"type:decimal(12,2)"`

	// Linked is set when a confirmed or auto-detected link exists; orphan
	// registration and the last-resort sweep only consider unlinked notes.
	Linked bool           `json:"linked" gorm:"not null;default:false"`
	Status DocumentStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`

	StoragePath string `json:"storage_path" gorm:"type:varchar(512)"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Lines []DeliveryNoteLine `json:"lines,omitempty" gorm:"foreignKey:DeliveryNoteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DeliveryNote.
func (DeliveryNote) TableName() string { return "delivery_notes" }

// DeliveryNoteLine is one line item of a delivery note.
type DeliveryNoteLine struct {
	ID             string `json:"id"               gorm:"type:char(36);primaryKey"`
	DeliveryNoteID string `json:"delivery_note_id" gorm:"type:char(36);not null;index"`
	RestauranteID  string `json:"restaurante_id"   gorm:"type:char(36);not null;index"`

	Description           string          `json:"description"            gorm:"type:text;not null"`
	NormalizedDescription string          `json:"normalized_description" gorm:"type:varchar(255)"`
	Quantity              decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null;default:1"`
	Unit                  string          `json:"unit"     gorm:"type:varchar(16)"`
	Total                 decimal.Decimal `json:"total"    gorm:"type:decimal(12,2)"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	DeliveryNote DeliveryNote `json:"-" gorm:"foreignKey:DeliveryNoteID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DeliveryNoteLine.
func (DeliveryNoteLine) TableName() string { return "delivery_note_lines" }

// OrphanDocument registers a document that finished reconciliation with no
// candidates at all. It carries a resolution deadline (7 days by default)
// after which the pending registration is surfaced for manual handling.
type OrphanDocument struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;index"`
	DocumentID    string `json:"document_id"    gorm:"type:char(36);not null;uniqueIndex:ux_orphan_document"`
	// DocumentKind is "invoice" or "delivery_note".
	DocumentKind string `json:"document_kind" gorm:"type:varchar(16);not null"`

	State    OrphanState `json:"state"    gorm:"type:varchar(16);not null;default:'pending'"`
	Deadline time.Time   `json:"deadline" gorm:"not null;index"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// TableName returns the database table name for OrphanDocument.
func (OrphanDocument) TableName() string { return "orphan_documents" }
