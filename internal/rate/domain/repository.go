package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rate *Rate) error
	FindLatest(ctx context.Context, db *gorm.DB) (*Rate, error)
	List(ctx context.Context, db *gorm.DB, limit int) ([]Rate, error)

	// FindOrderPrice returns the order's fixed price per unit; found is false
	// when the order does not exist.
	FindOrderPrice(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (price decimal.NullDecimal, found bool, err error)
	// FixOrderPrice writes price only when the order has none yet.
	FixOrderPrice(ctx context.Context, db *gorm.DB, orderID snowflake.ID, price decimal.Decimal) (bool, error)
}
