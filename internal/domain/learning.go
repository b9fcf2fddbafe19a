package domain

import (
	"time"

	"gorm.io/gorm"
)

// LearnedPattern is a per-supplier temporal pattern mined from the candidate
// detection log: "supplier X's delivery notes arrive N±M days before the
// invoice". Patterns with effectiveness below the consultation floor are kept
// but not used by the reconciliation engine.
type LearnedPattern struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;index:idx_restaurant_patterns"`
	SupplierID    string `json:"supplier_id"    gorm:"type:char(36);not null;index"`

	// Typical gap between delivery and invoicing, with tolerance, in days.
	WindowDays    int `json:"window_days"    gorm:"not null"`
	ToleranceDays int `json:"tolerance_days" gorm:"not null;default:2"`

	// Effectiveness is the confirmed fraction of links this pattern would
	// have predicted, recomputed from the detection log.
	Effectiveness float64 `json:"effectiveness" gorm:"type:decimal(4,3);not null;default:0"`
	SampleCount   int     `json:"sample_count"  gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for LearnedPattern.
func (LearnedPattern) TableName() string { return "learned_patterns" }

// LearnedRelation maps a normalized ingredient/descriptor query to the
// catalog product users (or the automatic cascade) keep confirming for it.
// Confirmations strengthen the relation; corrections repoint it.
type LearnedRelation struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;uniqueIndex:ux_learned_query,priority:1"`

	NormalizedQuery string `json:"normalized_query" gorm:"type:varchar(255);not null;uniqueIndex:ux_learned_query,priority:2"`
	ProductID       string `json:"product_id"       gorm:"type:char(36);not null;index"`

	ConfirmationCount int     `json:"confirmation_count" gorm:"not null;default:0"`
	RejectionCount    int     `json:"rejection_count"    gorm:"not null;default:0"`
	Confidence        float64 `json:"confidence"         gorm:"type:decimal(4,3);not null;default:0"`

	LastFeedback FeedbackKind `json:"last_feedback" gorm:"type:varchar(32)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for LearnedRelation.
func (LearnedRelation) TableName() string { return "learned_relations" }

// Feedback is one persisted ingredient-matching decision from a flushed
// feedback buffer. ProductID is empty for rejections; PreviousProductID is
// only set for corrections (the product the cascade had suggested).
type Feedback struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;index"`

	Dish       string `json:"dish"       gorm:"type:varchar(255);not null;index:idx_feedback_dish"`
	Ingredient string `json:"ingredient" gorm:"type:varchar(255);not null"`

	Kind              FeedbackKind `json:"kind" gorm:"type:varchar(32);not null"`
	ProductID         *string      `json:"product_id,omitempty"          gorm:"type:char(36);index"`
	PreviousProductID *string      `json:"previous_product_id,omitempty" gorm:"type:char(36)"`
	RejectedProductID *string      `json:"rejected_product_id,omitempty" gorm:"type:char(36)"`
	SuggestedCategory string       `json:"suggested_category,omitempty"  gorm:"type:varchar(64)"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
