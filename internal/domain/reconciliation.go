package domain

import (
	"time"

	"gorm.io/gorm"
)

// ReconciliationLink is one (invoice, delivery note) candidate pairing with
// the method and score that produced it. Multiple candidate links may exist
// per invoice before one is confirmed; confirmation is always an explicit
// state transition, never implicit.
type ReconciliationLink struct {
	ID             string `json:"id"               gorm:"type:char(36);primaryKey"`
	RestauranteID  string `json:"restaurante_id"   gorm:"type:char(36);not null;index"`
	InvoiceID      string `json:"invoice_id"       gorm:"type:char(36);not null;index:idx_invoice_links"`
	DeliveryNoteID string `json:"delivery_note_id" gorm:"type:char(36);not null;index"`

	Method DetectionMethod `json:"method" gorm:"type:varchar(32);not null"`
	Score  float64         `json:"score"  gorm:"type:decimal(4,3);not null"`
	// Reasons is the human-readable evidence list, stored as a JSON array.
	Reasons string    `json:"reasons" gorm:"type:text"`
	State   LinkState `json:"state"   gorm:"type:varchar(16);not null;default:'detected'"`

	CreatedBy   string     `json:"created_by" gorm:"type:varchar(64)"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Invoice      Invoice      `json:"-" gorm:"foreignKey:InvoiceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	DeliveryNote DeliveryNote `json:"-" gorm:"foreignKey:DeliveryNoteID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReconciliationLink.
func (ReconciliationLink) TableName() string { return "reconciliation_links" }

// CandidateDetection is the append-only log of every candidate produced by
// any strategy, regardless of whether it was good enough to act on. The full
// factor breakdown is retained as training input for the learned-pattern
// strategy.
type CandidateDetection struct {
	ID             string `json:"id"               gorm:"type:char(36);primaryKey"`
	RestauranteID  string `json:"restaurante_id"   gorm:"type:char(36);not null;index"`
	InvoiceID      string `json:"invoice_id"       gorm:"type:char(36);not null;index"`
	DeliveryNoteID string `json:"delivery_note_id" gorm:"type:char(36);not null"`

	Method DetectionMethod `json:"method" gorm:"type:varchar(32);not null"`
	Score  float64         `json:"score"  gorm:"type:decimal(4,3);not null"`
	// Factors is the per-factor score breakdown, stored as a JSON object.
	Factors string `json:"factors" gorm:"type:text"`
	// Category is the bucket the consolidated candidate landed in
	// ("high", "medium", "low"); empty for non-winning duplicates.
	Category string `json:"category" gorm:"type:varchar(8)"`
	// Accepted mirrors whether either a detected or suggested link was
	// actually written for this candidate.
	Accepted bool `json:"accepted" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for CandidateDetection.
func (CandidateDetection) TableName() string { return "candidate_detections" }
