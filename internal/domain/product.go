package domain

import "time"

// DealStatus tracks a product through the sourcing pipeline.
type DealStatus string

const (
	DealStatusSourced  DealStatus = "sourced"
	DealStatusAnalyzed DealStatus = "analyzed"
	DealStatusOrdered  DealStatus = "ordered"
)

// Product is one sourced item, unique per (user, ASIN). Re-processing the
// same catalog upserts into this row rather than creating duplicates.
type Product struct {
	ID         string  `gorm:"type:text;primaryKey" json:"id"`
	UserID     string  `gorm:"type:text;not null;uniqueIndex:idx_products_user_asin" json:"user_id"`
	ASIN       *string `gorm:"type:text;uniqueIndex:idx_products_user_asin" json:"asin,omitempty"`
	UPC        string  `gorm:"type:text;index" json:"upc,omitempty"`
	Title      string  `json:"title"`
	SupplierID string  `gorm:"type:text;index" json:"supplier_id,omitempty"`
	Notes      string  `json:"notes,omitempty"`

	// Sourcing inputs
	BuyCost float64 `json:"buy_cost"`
	MOQ     int     `json:"moq"`

	// Marketplace signals
	SellPrice   float64 `json:"sell_price"`
	FeesTotal   float64 `json:"fees_total"`
	BSR         int     `json:"bsr"`
	ReviewCount int     `json:"review_count"`

	// Computed financials (2-decimal, rounded at each stage)
	InboundShipping float64 `json:"inbound_shipping"`
	PrepCost        float64 `json:"prep_cost"`
	LandedCost      float64 `json:"landed_cost"`
	NetProfit       float64 `json:"net_profit"`
	ROI             float64 `json:"roi"`

	DealStatus     DealStatus `gorm:"default:sourced;index" json:"deal_status"`
	LastEnrichedAt *time.Time `json:"last_enriched_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string {
	return "products"
}
