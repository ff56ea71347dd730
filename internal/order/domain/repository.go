package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	InsertOrder(ctx context.Context, db *gorm.DB, order *Order) error
	FindOrderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	ListOrders(ctx context.Context, db *gorm.DB, filter ListOrderFilter, limit int) ([]*Order, error)
	UpdateOrderStatus(ctx context.Context, db *gorm.DB, order *Order) error
	UpdateOrderCustomer(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID *snowflake.ID, at time.Time) error
	UpdateOrderMarkup(ctx context.Context, db *gorm.DB, id snowflake.ID, markup decimal.Decimal, at time.Time) error
	UpdateOrderTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, totalUnits, totalCost decimal.Decimal, at time.Time) error
	UpdateOrderCompletion(ctx context.Context, db *gorm.DB, order *Order) error
	// DeleteOrder removes the order with its lines, pairs and progress entries.
	DeleteOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	ListOrdersCreatedBetween(ctx context.Context, db *gorm.DB, from, to *time.Time) ([]Order, error)

	InsertProgress(ctx context.Context, db *gorm.DB, progress *Progress) error
	ListProgress(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Progress, error)
	// LatestProgress returns, per order, the newest entry dated on or before day.
	LatestProgress(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID, day time.Time) (map[snowflake.ID]Progress, error)

	InsertItem(ctx context.Context, db *gorm.DB, item *OrderItem) error
	UpdateItem(ctx context.Context, db *gorm.DB, item *OrderItem) error
	UpdateItemMarkup(ctx context.Context, db *gorm.DB, itemID snowflake.ID, markup decimal.NullDecimal, at time.Time) error
	UpdateItemTotals(ctx context.Context, db *gorm.DB, itemID snowflake.ID, effectiveUnits, finalPrice decimal.Decimal) error
	DeleteItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (bool, error)
	FindItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (*OrderItem, error)
	ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderItem, error)

	ReplaceItemProducts(ctx context.Context, db *gorm.DB, itemID snowflake.ID, pairs []OrderItemProduct) error
	ReplaceItemAdditions(ctx context.Context, db *gorm.DB, itemID snowflake.ID, pairs []AdditionItem) error
	ReplaceItemCoefficients(ctx context.Context, db *gorm.DB, itemID snowflake.ID, coefficientIDs []snowflake.ID) error

	// The List*Rows queries fetch every pair of the given items in one round trip each.
	ListProductRows(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) ([]ItemProductRow, error)
	ListAdditionRows(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) ([]ItemAdditionRow, error)
	ListCoefficientRows(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) ([]ItemCoefficientRow, error)
}

type ListOrderFilter struct {
	Status     Status
	WorkType   WorkType
	CustomerID *snowflake.ID
	Search     string

	AfterCreatedAt *time.Time
	AfterID        snowflake.ID
}
