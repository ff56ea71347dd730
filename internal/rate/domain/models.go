package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Rate is one configured price per complexity unit. The newest row wins.
type Rate struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Value     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	UpdatedAt time.Time       `gorm:"not null;index" json:"updated_at"`
}

func (Rate) TableName() string { return "rates" }

// CurrentRate reports the value in effect. Configured is false when no rate
// row exists; Value is zero in that case.
type CurrentRate struct {
	Value      decimal.Decimal `json:"value"`
	Configured bool            `json:"configured"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

// Snapshot is the price per unit an order is valued at.
// Configured is false when the order has no fixed price and no rate exists yet.
type Snapshot struct {
	PricePerUnit decimal.Decimal
	Configured   bool
	// Fixed is true when this call wrote the snapshot.
	Fixed bool
}
