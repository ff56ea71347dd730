package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/doorcalc/internal/customer/domain"
	"github.com/smallbiznis/doorcalc/internal/pricing"
	"github.com/smallbiznis/doorcalc/pkg/db/pagination"
)

// Warning codes attached to an OrderDetail.
const (
	WarningRateNotConfigured = "rate_not_configured"
	WarningMissingReference  = "missing_reference"
)

const (
	BulkScopeAll      = "all"
	BulkScopeSelected = "selected"
	BulkModeAdd       = "add"
	BulkModeReplace   = "replace"
)

type CreateOrderRequest struct {
	OrderNumber   string
	OrderName     string
	CustomerID    string
	MarkupPercent decimal.NullDecimal
	WorkType      string
	Metadata      map[string]any
}

type ListOrderRequest struct {
	PageToken  string
	PageSize   int
	Status     string
	WorkType   string
	CustomerID string
	Search     string
}

type ListOrderResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type UpdateStatusRequest struct {
	OrderID       string
	Status        string
	FinanceStatus string
}

type AssignCustomerRequest struct {
	OrderID string
	// Empty clears the customer.
	CustomerID string
}

type ProductQuantity struct {
	ProductID string
	Quantity  decimal.Decimal
}

type AdditionQuantity struct {
	AdditionID string
	Quantity   decimal.Decimal
}

// ItemRequest describes a line in full. Updates replace every pair and
// coefficient of the line.
type ItemRequest struct {
	Name           string
	Quantity       decimal.Decimal
	Products       []ProductQuantity
	Additions      []AdditionQuantity
	CoefficientIDs []string
	MarkupPercent  decimal.NullDecimal
	// Status is optional; empty keeps the current one (pending for new lines).
	Status string
}

type AddItemRequest struct {
	OrderID string
	ItemRequest
}

type UpdateItemRequest struct {
	OrderID string
	ItemID  string
	ItemRequest
}

type DeleteItemRequest struct {
	OrderID string
	ItemID  string
}

type SetMarkupRequest struct {
	OrderID string
	// OrderMarkup is left unchanged when nil.
	OrderMarkup *decimal.Decimal
	// ItemMarkups touches only the listed items. An invalid NullDecimal
	// clears the override so the line inherits the order markup again.
	ItemMarkups map[string]decimal.NullDecimal
}

type BulkCoefficientsRequest struct {
	OrderID        string
	CoefficientIDs []string
	Scope          string
	ItemIDs        []string
	Mode           string
}

type EvaluateRequest struct {
	OrderID string
	// MarkupOverride replaces the effective markup of every line when set.
	MarkupOverride decimal.NullDecimal
}

type UpdateCompletionRequest struct {
	OrderID string
	// Percent is clamped to 0..100.
	Percent int
	Comment string
}

type ReportRequest struct {
	// StartDate and EndDate are YYYY-MM-DD and bound the creation day,
	// both inclusive. If either fails to parse, both are ignored.
	StartDate string
	EndDate   string
}

// ReportRow is an order with its progress as of the report day.
type ReportRow struct {
	Order    Order `json:"order"`
	Progress int   `json:"progress"`
}

// Report lists orders newest first. Postponed orders are listed apart and
// excluded from TotalValue and AverageProgress.
type Report struct {
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	AsOf            time.Time       `json:"as_of"`
	Rows            []ReportRow     `json:"rows"`
	Active          []ReportRow     `json:"active"`
	Postponed       []ReportRow     `json:"postponed"`
	TotalValue      decimal.Decimal `json:"total_value"`
	AverageProgress decimal.Decimal `json:"average_progress"`
}

type Line struct {
	Item      OrderItem         `json:"item"`
	Valuation pricing.Valuation `json:"valuation"`
}

// OrderDetail is an order with every line valued against its fixed price.
type OrderDetail struct {
	Order      Order                    `json:"order"`
	Customer   *customerdomain.Customer `json:"customer,omitempty"`
	Lines      []Line                   `json:"lines"`
	Totals     pricing.OrderTotals      `json:"totals"`
	Expression string                   `json:"expression"`
	Warnings   []string                 `json:"warnings"`
}

// Valuations returns the line valuations in line order.
func (d OrderDetail) Valuations() []pricing.Valuation {
	out := make([]pricing.Valuation, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, l.Valuation)
	}
	return out
}

type Service interface {
	Create(context.Context, CreateOrderRequest) (OrderDetail, error)
	List(context.Context, ListOrderRequest) (ListOrderResponse, error)
	Get(ctx context.Context, id string) (OrderDetail, error)
	// Evaluate values the order without persisting anything.
	Evaluate(context.Context, EvaluateRequest) (OrderDetail, error)

	UpdateStatus(context.Context, UpdateStatusRequest) (Order, error)
	AssignCustomer(context.Context, AssignCustomerRequest) (Order, error)

	AddItem(context.Context, AddItemRequest) (OrderDetail, error)
	UpdateItem(context.Context, UpdateItemRequest) (OrderDetail, error)
	DeleteItem(context.Context, DeleteItemRequest) (OrderDetail, error)
	SetMarkup(context.Context, SetMarkupRequest) (OrderDetail, error)
	BulkAssignCoefficients(context.Context, BulkCoefficientsRequest) (OrderDetail, error)

	// Recalculate revalues every line and rewrites the cached totals.
	Recalculate(ctx context.Context, id string) (OrderDetail, error)

	Delete(ctx context.Context, id string) error
	UpdateCompletion(context.Context, UpdateCompletionRequest) (Order, error)
	ListProgress(ctx context.Context, id string) ([]Progress, error)
	Report(context.Context, ReportRequest) (Report, error)
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidOrderNumber   = errors.New("invalid_order_number")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidFinanceStatus = errors.New("invalid_finance_status")
	ErrInvalidWorkType      = errors.New("invalid_work_type")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidMarkup        = errors.New("invalid_markup")
	ErrInvalidProduct       = errors.New("invalid_product")
	ErrInvalidAddition      = errors.New("invalid_addition")
	ErrInvalidCoefficient   = errors.New("invalid_coefficient")
	ErrDuplicateProduct     = errors.New("duplicate_product")
	ErrNotApplicable        = errors.New("not_applicable")
	ErrInvalidBulkScope     = errors.New("invalid_bulk_scope")
	ErrInvalidBulkMode      = errors.New("invalid_bulk_mode")
	ErrEmptyUpdate          = errors.New("empty_update")
	ErrOrderExists          = errors.New("order_exists")
	ErrNotFound             = errors.New("not_found")
	ErrItemNotFound         = errors.New("item_not_found")
)
