package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is one extracted supplier invoice (factura). Rows are created on
// upload + extraction, mutated by the reconciliation engine (state, linked
// delivery notes) and by manual correction, and deleted only by explicit user
// action, which cascades to line items and links.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - RestauranteID: tenant scope; present and indexed on every query.
//   - SupplierID: resolved canonical supplier, nil until resolution ran.
//   - Confidence columns: per-field extraction confidence in [0,1].
//   - RequiresReview: set when reconciliation only found low-confidence
//     candidates, or when extraction confidence is too weak to trust.
type Invoice struct {
	ID            string  `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string  `json:"restaurante_id" gorm:"type:char(36);not null;index:idx_restaurant_invoices"`
	SupplierID    *string `json:"supplier_id,omitempty" gorm:"type:char(36);index"`

	SupplierName  string `json:"supplier_name"   gorm:"type:varchar(255)"`
	SupplierTaxID string `json:"supplier_tax_id" gorm:"type:varchar(32);index"`
	InvoiceNumber string `json:"invoice_number"  gorm:"type:varchar(64);index"`

	IssueDate *time.Time `json:"issue_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	NetBase   decimal.Decimal `json:"net_base"   gorm:"type:decimal(12,2)"`
	TaxAmount decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2)"`
	TaxRate   decimal.Decimal `json:"tax_rate"   gorm:"type:decimal(5,2)"`
	Total     decimal.Decimal `json:"total"      gorm:"type:decimal(12,2)"`

	// Per-field confidence as reported (or derived) by the extraction stage.
	ConfidenceSupplier float64 `json:"confidence_supplier" gorm:"type:decimal(4,3)"`
	ConfidenceNumber   float64 `json:"confidence_number"   gorm:"type:decimal(4,3)"`
	ConfidenceDates    float64 `json:"confidence_dates"    gorm:"type:decimal(4,3)"`
	ConfidenceAmounts  float64 `json:"confidence_amounts"  gorm:"type:decimal(4,3)"`
	ConfidenceGlobal   float64 `json:"confidence_global"   gorm:"type:decimal(4,3)"`

	Status         DocumentStatus      `json:"status"          gorm:"type:varchar(16);not null;default:'pending'"`
	ReconState     ReconciliationState `json:"recon_state"     gorm:"type:varchar(16);not null;default:'unlinked'"`
	RequiresReview bool                `json:"requires_review" gorm:"not null;default:false"`

	// StoragePath is the object-storage key of the source PDF.
	StoragePath string `json:"storage_path" gorm:"type:varchar(512)"`
	// RawText is the full OCR text blob the extraction worked from.
	RawText string `json:"-" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Lines []InvoiceLine `json:"lines,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Invoice.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLine is one extracted line item of an invoice. Price fields are
// completed by the pricing engine; ProductoMaestroID is set by the product
// matching cascade when a catalog product could be resolved.
type InvoiceLine struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	InvoiceID     string `json:"invoice_id"     gorm:"type:char(36);not null;index:idx_invoice_lines"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;index"`

	Description           string  `json:"description"            gorm:"type:text;not null"`
	NormalizedDescription string  `json:"normalized_description" gorm:"type:varchar(255);index"`
	ProductCode           string  `json:"product_code"           gorm:"type:varchar(64)"`
	ProductoMaestroID     *string `json:"producto_maestro_id,omitempty" gorm:"type:char(36);index"`

	Quantity decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null;default:1"`
	Unit     string          `json:"unit"     gorm:"type:varchar(16)"`

	UnitPriceNet   decimal.Decimal `json:"unit_price_net"   gorm:"type:decimal(12,4)"`
	UnitPriceGross decimal.Decimal `json:"unit_price_gross" gorm:"type:decimal(12,4)"`
	TotalNet       decimal.Decimal `json:"total_net"        gorm:"type:decimal(12,2)"`
	TotalGross     decimal.Decimal `json:"total_gross"      gorm:"type:decimal(12,2)"`
	TaxRate        decimal.Decimal `json:"tax_rate"         gorm:"type:decimal(5,2)"`

	// Commercial format as printed on the invoice, e.g. "6x1L" or "5 kg",
	// plus the derived reference price when weight/volume could be parsed.
	Format        string           `json:"format"          gorm:"type:varchar(64)"`
	PricePerKg    *decimal.Decimal `json:"price_per_kg,omitempty"    gorm:"type:decimal(12,4)"`
	PricePerLiter *decimal.Decimal `json:"price_per_liter,omitempty" gorm:"type:decimal(12,4)"`

	Confidence float64 `json:"confidence" gorm:"type:decimal(4,3)"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Invoice Invoice `json:"-" gorm:"foreignKey:InvoiceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for InvoiceLine.
func (InvoiceLine) TableName() string { return "invoice_lines" }
