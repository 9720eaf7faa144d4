package domain

import "time"

// Supplier holds per-supplier defaults used by the profitability calculator.
type Supplier struct {
	ID              string    `gorm:"type:text;primaryKey" json:"id"`
	UserID          string    `gorm:"type:text;not null;index" json:"user_id"`
	Name            string    `gorm:"not null" json:"name"`
	ShipsDirect     bool      `json:"ships_direct"`
	InboundRate     float64   `json:"inbound_rate"`      // per weight unit
	DefaultPrepCost float64   `json:"default_prep_cost"` // per unit
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for Supplier.
func (Supplier) TableName() string {
	return "suppliers"
}
