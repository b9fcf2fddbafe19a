package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Restaurant is the tenant. Every other row carries its ID; tenant isolation
// is enforced at the query layer, not by separate databases.
type Restaurant struct {
	ID    string `json:"id"    gorm:"type:char(36);primaryKey"`
	Name  string `json:"name"  gorm:"type:varchar(255);not null"`
	TaxID string `json:"tax_id" gorm:"type:varchar(32);uniqueIndex"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Restaurant.
func (Restaurant) TableName() string { return "restaurants" }

// Supplier is a canonical supplier record for one restaurant. TaxID may be
// empty when the supplier was created from a name-only resolution; two
// suppliers with different tax IDs are never merged, however similar their
// names are.
type Supplier struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;index:idx_restaurant_suppliers;uniqueIndex:ux_supplier_taxid,priority:1"`
	Name          string `json:"name"           gorm:"type:varchar(255);not null"`
	// NormalizedName folds company-suffix variants (s.l. → sl) for matching.
	NormalizedName string  `json:"normalized_name" gorm:"type:varchar(255);index"`
	TaxID          *string `json:"tax_id,omitempty" gorm:"type:varchar(32);uniqueIndex:ux_supplier_taxid,priority:2"`

	InvoiceCount    int        `json:"invoice_count" gorm:"not null;default:0"`
	LastInvoiceDate *time.Time `json:"last_invoice_date,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Supplier.
func (Supplier) TableName() string { return "suppliers" }

// CatalogProduct (producto maestro) is one canonical product in a
// restaurant's catalog. It is created on the first unmatched purchase and its
// rolling price statistics are recomputed from the trailing 30-day
// PriceHistory window on every subsequent purchase; they are never
// hand-edited.
type CatalogProduct struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;index:idx_restaurant_products"`

	// NormalizedName is the canonical lookup key; CommercialName preserves
	// the descriptor as first seen on an invoice.
	NormalizedName string `json:"normalized_name" gorm:"type:varchar(255);not null;index:idx_product_normalized"`
	CommercialName string `json:"commercial_name" gorm:"type:varchar(255);not null;index:idx_product_commercial"`
	Category       string `json:"category"        gorm:"type:varchar(64)"`
	Unit           string `json:"unit"            gorm:"type:varchar(16)"`

	LastPrice  decimal.Decimal `json:"last_price"  gorm:"type:decimal(12,4)"`
	MinPrice   decimal.Decimal `json:"min_price"   gorm:"type:decimal(12,4)"`
	MaxPrice   decimal.Decimal `json:"max_price"   gorm:"type:decimal(12,4)"`
	AvgPrice30 decimal.Decimal `json:"avg_price_30d" gorm:"type:decimal(12,4)"`
	Variance30 decimal.Decimal `json:"variance_30d"  gorm:"type:decimal(14,6)"`

	PurchaseCount    int        `json:"purchase_count" gorm:"not null;default:0"`
	LastPurchaseDate *time.Time `json:"last_purchase_date,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for CatalogProduct.
func (CatalogProduct) TableName() string { return "catalog_products" }

// PriceHistory is the append-only purchase price log feeding CatalogProduct
// statistics. Rows are immutable once written.
type PriceHistory struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	RestauranteID string `json:"restaurante_id" gorm:"type:char(36);not null;index"`
	ProductID     string `json:"product_id"     gorm:"type:char(36);not null;index:idx_price_history,priority:1"`
	SupplierID    *string `json:"supplier_id,omitempty" gorm:"type:char(36);index"`
	InvoiceID     *string `json:"invoice_id,omitempty"  gorm:"type:char(36);index"`

	Price        decimal.Decimal `json:"price"    gorm:"type:decimal(12,4);not null"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3)"`
	PurchaseDate time.Time       `json:"purchase_date" gorm:"not null;index:idx_price_history,priority:2"`

	CreatedAt time.Time `json:"created_at"`

	Product CatalogProduct `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PriceHistory.
func (PriceHistory) TableName() string { return "price_history" }
