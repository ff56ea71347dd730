package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusCalculation Status = "calculation"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusPostponed   Status = "postponed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCalculation, StatusInProgress, StatusCompleted, StatusPostponed:
		return true
	}
	return false
}

type FinanceStatus string

const (
	FinancePaid            FinanceStatus = "paid"
	FinanceAwaitingPayment FinanceStatus = "awaiting_payment"
	FinanceUnset           FinanceStatus = "-----"
	// FinancePostponed is the creation default.
	FinancePostponed FinanceStatus = "postponed"
)

func (s FinanceStatus) Valid() bool {
	switch s {
	case FinancePaid, FinanceAwaitingPayment, FinanceUnset, FinancePostponed:
		return true
	}
	return false
}

type WorkType string

const (
	WorkTypeProject WorkType = "project"
	WorkTypeRework  WorkType = "rework"
)

func (w WorkType) Valid() bool {
	return w == WorkTypeProject || w == WorkTypeRework
}

type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemDone       ItemStatus = "done"
	ItemCanceled   ItemStatus = "canceled"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemInProgress, ItemDone, ItemCanceled:
		return true
	}
	return false
}

// Order holds the fixed price per unit and the cached totals of its lines.
// PricePerUnit stays NULL until a rate exists; once set it is never rewritten.
type Order struct {
	ID                snowflake.ID        `gorm:"primaryKey" json:"id"`
	OrderNumber       string              `gorm:"size:50;not null;uniqueIndex" json:"order_number"`
	OrderName         string              `gorm:"size:255;not null;default:''" json:"order_name,omitempty"`
	CustomerID        *snowflake.ID       `gorm:"index" json:"customer_id,omitempty"`
	Status            Status              `gorm:"size:20;not null;default:in_progress;index" json:"status"`
	FinanceStatus     FinanceStatus       `gorm:"size:20;not null;default:postponed" json:"finance_status"`
	WorkType          WorkType            `gorm:"size:20;not null;default:project;index" json:"work_type"`
	PricePerUnit      decimal.NullDecimal `gorm:"column:price_per_ks;type:numeric(12,2)" json:"price_per_ks"`
	MarkupPercent     decimal.Decimal     `gorm:"type:numeric(8,2);not null;default:0" json:"markup_percent"`
	TotalUnits        decimal.Decimal     `gorm:"column:total_ks;type:numeric(12,2);not null;default:0" json:"total_ks"`
	TotalCost         decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"total_cost"`
	// CompletionPercent is kept within 0..100; reaching 100 completes the order.
	CompletionPercent int                 `gorm:"not null;default:0" json:"completion_percent"`
	Metadata          datatypes.JSONMap   `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt         time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// Progress is one completion entry. Date is the UTC day the entry was made.
type Progress struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID   snowflake.ID `gorm:"not null;index:idx_order_progress_order,priority:1" json:"order_id"`
	Date      time.Time    `gorm:"column:progress_date;not null;index:idx_order_progress_order,priority:2" json:"date"`
	Percent   int          `gorm:"not null;default:0" json:"percent"`
	Comment   string       `gorm:"type:text;not null;default:''" json:"comment,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Progress) TableName() string { return "order_progress" }

// OrderItem is one line of an order. EffectiveUnits and FinalPrice are
// written by recalculation only.
type OrderItem struct {
	ID             snowflake.ID        `gorm:"primaryKey" json:"id"`
	OrderID        snowflake.ID        `gorm:"not null;index" json:"order_id"`
	Name           string              `gorm:"size:255;not null;default:''" json:"name"`
	Quantity       decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:1" json:"quantity"`
	MarkupPercent  decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"markup_percent"`
	Status         ItemStatus          `gorm:"size:20;not null;default:pending" json:"status"`
	EffectiveUnits decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"effective_units"`
	FinalPrice     decimal.Decimal     `gorm:"type:numeric(12,2);not null;default:0" json:"final_price"`
	CreatedAt      time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"not null" json:"updated_at"`
}

func (OrderItem) TableName() string { return "order_items" }

type OrderItemProduct struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderItemID snowflake.ID    `gorm:"not null;uniqueIndex:uq_order_item_products,priority:1" json:"order_item_id"`
	ProductID   snowflake.ID    `gorm:"not null;uniqueIndex:uq_order_item_products,priority:2" json:"product_id"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:1" json:"quantity"`
}

func (OrderItemProduct) TableName() string { return "order_item_products" }

type AdditionItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderItemID snowflake.ID    `gorm:"not null;index" json:"order_item_id"`
	AdditionID  snowflake.ID    `gorm:"not null" json:"addition_id"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:1" json:"quantity"`
}

func (AdditionItem) TableName() string { return "addition_items" }

type OrderItemCoefficient struct {
	OrderItemID   snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	CoefficientID snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
}

func (OrderItemCoefficient) TableName() string { return "order_item_coefficients" }

// ItemProductRow is a product pair joined to its catalog record.
// CatalogID is nil when the product no longer exists.
type ItemProductRow struct {
	ID          snowflake.ID
	OrderItemID snowflake.ID
	ProductID   snowflake.ID
	Quantity    decimal.Decimal
	CatalogID   *snowflake.ID
	CategoryID  *snowflake.ID
	Name        string
	BaseUnits   float64
}

// ItemAdditionRow is an addition pair joined to its catalog record.
type ItemAdditionRow struct {
	ID          snowflake.ID
	OrderItemID snowflake.ID
	AdditionID  snowflake.ID
	Quantity    decimal.Decimal
	CatalogID   *snowflake.ID
	Name        string
	UnitValue   float64
}

// ItemCoefficientRow is a coefficient link joined to its catalog record.
type ItemCoefficientRow struct {
	OrderItemID   snowflake.ID
	CoefficientID snowflake.ID
	CatalogID     *snowflake.ID
	Name          string
	Value         float64
}

func Models() []any {
	return []any{
		&Order{},
		&OrderItem{},
		&OrderItemProduct{},
		&AdditionItem{},
		&OrderItemCoefficient{},
		&Progress{},
	}
}
