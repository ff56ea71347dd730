package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/doorcalc/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/doorcalc/internal/catalog/repository"
	catalogsvc "github.com/smallbiznis/doorcalc/internal/catalog/service"
	"github.com/smallbiznis/doorcalc/internal/clock"
	customerdomain "github.com/smallbiznis/doorcalc/internal/customer/domain"
	customerrepo "github.com/smallbiznis/doorcalc/internal/customer/repository"
	customersvc "github.com/smallbiznis/doorcalc/internal/customer/service"
	"github.com/smallbiznis/doorcalc/internal/observability/metrics"
	"github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/internal/order/repository"
	ratedomain "github.com/smallbiznis/doorcalc/internal/rate/domain"
	raterepo "github.com/smallbiznis/doorcalc/internal/rate/repository"
	ratesvc "github.com/smallbiznis/doorcalc/internal/rate/service"
	"github.com/smallbiznis/doorcalc/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	clock     *clock.FakeClock
	registry  *prometheus.Registry
	svc       domain.Service
	catalog   catalogdomain.Service
	customers customerdomain.Service
	rates     ratedomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry, metrics.Config{ServiceName: "doorcalc", Environment: "test"})

	rates := ratesvc.New(ratesvc.Params{DB: conn, Log: log, GenID: node, Clock: fake, Repo: raterepo.Provide()})
	catalog := catalogsvc.New(catalogsvc.Params{DB: conn, Log: log, GenID: node, Clock: fake, Repo: catalogrepo.Provide()})
	customers := customersvc.New(customersvc.Params{DB: conn, Log: log, GenID: node, Clock: fake, Repo: customerrepo.Provide()})

	svc := New(Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Catalog:   catalogrepo.Provide(),
		Customers: customerrepo.Provide(),
		Rates:     rates,
		Metrics:   m,
	})

	return &fixture{
		ctx:       context.Background(),
		db:        conn,
		clock:     fake,
		registry:  registry,
		svc:       svc,
		catalog:   catalog,
		customers: customers,
		rates:     rates,
	}
}

func (f *fixture) setRate(t *testing.T, value string) {
	t.Helper()
	f.clock.Advance(time.Second)
	_, err := f.rates.Set(f.ctx, ratedomain.SetRateRequest{Value: value})
	require.NoError(t, err)
}

func (f *fixture) category(t *testing.T, name string) catalogdomain.Category {
	t.Helper()
	c, err := f.catalog.CreateCategory(f.ctx, catalogdomain.CreateCategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, name string, units float64, category *catalogdomain.Category) catalogdomain.Product {
	t.Helper()
	req := catalogdomain.CreateProductRequest{Name: name, BaseUnits: units}
	if category != nil {
		req.CategoryID = category.ID.String()
	}
	p, err := f.catalog.CreateProduct(f.ctx, req)
	require.NoError(t, err)
	return p
}

func (f *fixture) addition(t *testing.T, name string, value float64, scope catalogdomain.ScopeRequest) catalogdomain.Addition {
	t.Helper()
	a, err := f.catalog.CreateAddition(f.ctx, catalogdomain.CreateAdditionRequest{Name: name, UnitValue: value, Scope: scope})
	require.NoError(t, err)
	return a
}

func (f *fixture) coefficient(t *testing.T, name string, value float64, scope catalogdomain.ScopeRequest) catalogdomain.Coefficient {
	t.Helper()
	c, err := f.catalog.CreateCoefficient(f.ctx, catalogdomain.CreateCoefficientRequest{Name: name, Value: &value, Scope: scope})
	require.NoError(t, err)
	return c
}

func (f *fixture) order(t *testing.T, number string) domain.OrderDetail {
	t.Helper()
	f.clock.Advance(time.Second)
	d, err := f.svc.Create(f.ctx, domain.CreateOrderRequest{OrderNumber: number})
	require.NoError(t, err)
	return d
}

func (f *fixture) stored(t *testing.T, id snowflake.ID) *domain.Order {
	t.Helper()
	o, err := repository.Provide().FindOrderByID(f.ctx, f.db, id)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func fixed(d decimal.Decimal) string { return d.StringFixed(2) }

func oneProduct(p catalogdomain.Product, qty string) []domain.ProductQuantity {
	return []domain.ProductQuantity{{ProductID: p.ID.String(), Quantity: dec(qty)}}
}

func TestCreate_FixesPriceFromCurrentRate(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "120")

	d, err := f.svc.Create(f.ctx, domain.CreateOrderRequest{
		OrderNumber:   " 2025-001 ",
		OrderName:     "Flat 12",
		MarkupPercent: decimal.NewNullDecimal(dec("5")),
		Metadata:      map[string]any{"source": "local"},
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-001", d.Order.OrderNumber)
	assert.Equal(t, domain.StatusInProgress, d.Order.Status)
	assert.Equal(t, domain.FinancePostponed, d.Order.FinanceStatus)
	assert.Equal(t, domain.WorkTypeProject, d.Order.WorkType)
	assert.Empty(t, d.Warnings)
	assert.Equal(t, "0.00", d.Expression)

	stored := f.stored(t, d.Order.ID)
	require.True(t, stored.PricePerUnit.Valid)
	assert.Equal(t, "120.00", fixed(stored.PricePerUnit.Decimal))
	assert.Equal(t, "5.00", fixed(stored.MarkupPercent))
	assert.Equal(t, "local", stored.Metadata["source"])
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	f.order(t, "A-1")

	tests := []struct {
		name string
		req  domain.CreateOrderRequest
		err  error
	}{
		{"missing number", domain.CreateOrderRequest{}, domain.ErrInvalidOrderNumber},
		{"duplicate number", domain.CreateOrderRequest{OrderNumber: "A-1"}, domain.ErrOrderExists},
		{"bad work type", domain.CreateOrderRequest{OrderNumber: "A-2", WorkType: "repair"}, domain.ErrInvalidWorkType},
		{"markup below -100", domain.CreateOrderRequest{OrderNumber: "A-3", MarkupPercent: decimal.NewNullDecimal(dec("-100.01"))}, domain.ErrInvalidMarkup},
		{"unknown customer", domain.CreateOrderRequest{OrderNumber: "A-4", CustomerID: "5"}, domain.ErrInvalidCustomer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestAddItem_SingleLineWithCoefficient(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "100.00")
	door := f.product(t, "Door A", 2.5, nil)
	coef := f.coefficient(t, "Veneer", 1.10, catalogdomain.ScopeRequest{Global: true})
	o := f.order(t, "S-6")

	d, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID: o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{
			Name:           "Double door",
			Quantity:       dec("3"),
			Products:       oneProduct(door, "1"),
			CoefficientIDs: []string{coef.ID.String()},
		},
	})
	require.NoError(t, err)
	require.Len(t, d.Lines, 1)

	v := d.Lines[0].Valuation
	assert.Equal(t, "2.50", fixed(v.ProductsUnitSum))
	assert.Equal(t, "1.10", fixed(v.CoefficientFactor))
	assert.Equal(t, "8.25", fixed(v.EffectiveUnits))
	assert.Equal(t, "825.00", fixed(v.BasePrice))
	assert.Equal(t, "825.00", fixed(v.FinalPrice))
	assert.Equal(t, "8.25", d.Expression)

	stored := f.stored(t, o.Order.ID)
	assert.Equal(t, "8.25", fixed(stored.TotalUnits))
	assert.Equal(t, "825.00", fixed(stored.TotalCost))

	item, err := repository.Provide().FindItem(f.ctx, f.db, o.Order.ID, d.Lines[0].Item.ID)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "8.25", fixed(item.EffectiveUnits))
	assert.Equal(t, "825.00", fixed(item.FinalPrice))
	assert.Equal(t, domain.ItemPending, item.Status)
}

func TestSetMarkup_OverrideAndInherit(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "100.00")
	door := f.product(t, "Door A", 2.5, nil)
	coef := f.coefficient(t, "Veneer", 1.10, catalogdomain.ScopeRequest{Global: true})
	o := f.order(t, "S-7")

	d, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID: o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{
			Quantity:       dec("3"),
			Products:       oneProduct(door, "1"),
			CoefficientIDs: []string{coef.ID.String()},
		},
	})
	require.NoError(t, err)
	itemID := d.Lines[0].Item.ID.String()
	assert.Equal(t, "Item", d.Lines[0].Item.Name)

	orderMarkup := dec("5")
	d, err = f.svc.SetMarkup(f.ctx, domain.SetMarkupRequest{
		OrderID:     o.Order.ID.String(),
		OrderMarkup: &orderMarkup,
		ItemMarkups: map[string]decimal.NullDecimal{itemID: decimal.NewNullDecimal(dec("20"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00", fixed(d.Lines[0].Valuation.EffectiveMarkupPercent))
	assert.Equal(t, "990.00", fixed(d.Lines[0].Valuation.FinalPrice))
	assert.Equal(t, "990.00", fixed(f.stored(t, o.Order.ID).TotalCost))

	d, err = f.svc.SetMarkup(f.ctx, domain.SetMarkupRequest{
		OrderID:     o.Order.ID.String(),
		ItemMarkups: map[string]decimal.NullDecimal{itemID: {}},
	})
	require.NoError(t, err)
	assert.Equal(t, "5.00", fixed(d.Lines[0].Valuation.EffectiveMarkupPercent))
	assert.Equal(t, "866.25", fixed(d.Lines[0].Valuation.FinalPrice))
	assert.Equal(t, "866.25", fixed(f.stored(t, o.Order.ID).TotalCost))

	_, err = f.svc.SetMarkup(f.ctx, domain.SetMarkupRequest{OrderID: o.Order.ID.String()})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)

	_, err = f.svc.SetMarkup(f.ctx, domain.SetMarkupRequest{
		OrderID:     o.Order.ID.String(),
		ItemMarkups: map[string]decimal.NullDecimal{"123": decimal.NewNullDecimal(dec("1"))},
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestAddItem_EmptyLineIsValid(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "100")
	o := f.order(t, "S-8")

	d, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID:     o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{Name: "Empty", Quantity: dec("1")},
	})
	require.NoError(t, err)

	v := d.Lines[0].Valuation
	assert.Equal(t, "0.00", fixed(v.EffectiveUnits))
	assert.Equal(t, "0.00", fixed(v.BasePrice))
	assert.Equal(t, "0.00", fixed(v.FinalPrice))
	assert.Equal(t, "1.00", fixed(v.CoefficientFactor))
}

func TestRecalculate_KeepsFixedPriceAfterRateChange(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "120.00")
	door := f.product(t, "Door", 2, nil)
	o := f.order(t, "R-1")

	before, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID:     o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{Quantity: dec("1"), Products: oneProduct(door, "1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "240.00", fixed(before.Lines[0].Valuation.FinalPrice))

	f.setRate(t, "200.00")
	after, err := f.svc.Recalculate(f.ctx, o.Order.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "120.00", fixed(after.Order.PricePerUnit.Decimal))
	assert.Equal(t, "240.00", fixed(after.Lines[0].Valuation.FinalPrice))
	assert.Equal(t, "120.00", fixed(f.stored(t, o.Order.ID).PricePerUnit.Decimal))

	// New orders pick up the new rate.
	fresh := f.order(t, "R-2")
	assert.Equal(t, "200.00", fixed(fresh.Order.PricePerUnit.Decimal))
}

func TestRecalculate_WithoutRateWarnsUntilConfigured(t *testing.T) {
	f := newFixture(t)
	door := f.product(t, "Door", 2, nil)
	o := f.order(t, "N-1")
	assert.Contains(t, o.Warnings, domain.WarningRateNotConfigured)
	assert.False(t, f.stored(t, o.Order.ID).PricePerUnit.Valid)

	d, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID:     o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{Quantity: dec("2"), Products: oneProduct(door, "1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "4.00", fixed(d.Totals.TotalUnits))
	assert.Equal(t, "0.00", fixed(d.Totals.TotalCost))
	assert.Contains(t, d.Warnings, domain.WarningRateNotConfigured)

	f.setRate(t, "50")
	preview, err := f.svc.Get(f.ctx, o.Order.ID.String())
	require.NoError(t, err)
	assert.Empty(t, preview.Warnings)
	assert.Equal(t, "200.00", fixed(preview.Totals.TotalCost))
	assert.False(t, f.stored(t, o.Order.ID).PricePerUnit.Valid)

	d, err = f.svc.Recalculate(f.ctx, o.Order.ID.String())
	require.NoError(t, err)
	assert.Empty(t, d.Warnings)
	assert.Equal(t, "200.00", fixed(d.Totals.TotalCost))
	assert.Equal(t, "50.00", fixed(f.stored(t, o.Order.ID).PricePerUnit.Decimal))
}

func TestTotals_AreSumOfLines(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "33.33")
	door := f.product(t, "Door", 1.15, nil)
	arch := f.product(t, "Arch", 0.7, nil)
	lock := f.addition(t, "Lock", 0.35, catalogdomain.ScopeRequest{Global: true})
	o := f.order(t, "T-1")
	orderID := o.Order.ID.String()

	requests := []domain.ItemRequest{
		{Quantity: dec("1.5"), Products: oneProduct(door, "2"), MarkupPercent: decimal.NewNullDecimal(dec("7.5"))},
		{Quantity: dec("3"), Products: oneProduct(arch, "1"), Additions: []domain.AdditionQuantity{{AdditionID: lock.ID.String(), Quantity: dec("3")}}},
		{Quantity: dec("0.33"), Products: []domain.ProductQuantity{
			{ProductID: door.ID.String(), Quantity: dec("1")},
			{ProductID: arch.ID.String(), Quantity: dec("2.5")},
		}},
	}
	var d domain.OrderDetail
	for _, req := range requests {
		var err error
		d, err = f.svc.AddItem(f.ctx, domain.AddItemRequest{OrderID: orderID, ItemRequest: req})
		require.NoError(t, err)
	}
	require.Len(t, d.Lines, 3)

	units, cost := decimal.Zero, decimal.Zero
	for _, l := range d.Lines {
		units = units.Add(l.Valuation.EffectiveUnits)
		cost = cost.Add(l.Valuation.FinalPrice)
	}
	stored := f.stored(t, o.Order.ID)
	assert.Equal(t, fixed(units.Round(2)), fixed(stored.TotalUnits))
	assert.Equal(t, fixed(cost.Round(2)), fixed(stored.TotalCost))

	// Removing a line recomputes from what is left.
	d, err := f.svc.DeleteItem(f.ctx, domain.DeleteItemRequest{OrderID: orderID, ItemID: d.Lines[0].Item.ID.String()})
	require.NoError(t, err)
	require.Len(t, d.Lines, 2)
	rest := d.Lines[0].Valuation.FinalPrice.Add(d.Lines[1].Valuation.FinalPrice)
	assert.Equal(t, fixed(rest.Round(2)), fixed(f.stored(t, o.Order.ID).TotalCost))

	_, err = f.svc.DeleteItem(f.ctx, domain.DeleteItemRequest{OrderID: orderID, ItemID: "42"})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestAddItem_RejectsInapplicableAndInvalidInput(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "10")
	interior := f.category(t, "Interior")
	exterior := f.category(t, "Exterior")
	door := f.product(t, "Door", 2.5, &interior)
	outside := f.coefficient(t, "Weatherproof", 1.3, catalogdomain.ScopeRequest{CategoryIDs: []string{exterior.ID.String()}})
	glass := f.addition(t, "Glass", 1, catalogdomain.ScopeRequest{ProductIDs: []string{door.ID.String()}})
	o := f.order(t, "V-1")
	orderID := o.Order.ID.String()

	tests := []struct {
		name string
		req  domain.ItemRequest
		err  error
	}{
		{"zero quantity", domain.ItemRequest{Quantity: dec("0")}, domain.ErrInvalidQuantity},
		{"negative pair quantity", domain.ItemRequest{Quantity: dec("1"), Products: oneProduct(door, "-1")}, domain.ErrInvalidQuantity},
		{"markup below -100", domain.ItemRequest{Quantity: dec("1"), MarkupPercent: decimal.NewNullDecimal(dec("-101"))}, domain.ErrInvalidMarkup},
		{"unknown product", domain.ItemRequest{Quantity: dec("1"), Products: []domain.ProductQuantity{{ProductID: "9", Quantity: dec("1")}}}, domain.ErrInvalidProduct},
		{"duplicate product", domain.ItemRequest{Quantity: dec("1"), Products: append(oneProduct(door, "1"), oneProduct(door, "2")...)}, domain.ErrDuplicateProduct},
		{"coefficient for other category", domain.ItemRequest{Quantity: dec("1"), Products: oneProduct(door, "1"), CoefficientIDs: []string{outside.ID.String()}}, domain.ErrNotApplicable},
		{"addition without its product", domain.ItemRequest{Quantity: dec("1"), Additions: []domain.AdditionQuantity{{AdditionID: glass.ID.String(), Quantity: dec("1")}}}, domain.ErrNotApplicable},
		{"bad status", domain.ItemRequest{Quantity: dec("1"), Status: "lost"}, domain.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{OrderID: orderID, ItemRequest: tt.req})
			assert.ErrorIs(t, err, tt.err)
		})
	}

	d, err := f.svc.Get(f.ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, d.Lines)

	_, err = f.svc.AddItem(f.ctx, domain.AddItemRequest{OrderID: "77", ItemRequest: domain.ItemRequest{Quantity: dec("1")}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateItem_ReplacesPairs(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "10")
	door := f.product(t, "Door", 2, nil)
	arch := f.product(t, "Arch", 3, nil)
	lock := f.addition(t, "Lock", 0.5, catalogdomain.ScopeRequest{Global: true})
	o := f.order(t, "U-1")

	d, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID: o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{
			Quantity:  dec("1"),
			Products:  oneProduct(door, "1"),
			Additions: []domain.AdditionQuantity{{AdditionID: lock.ID.String(), Quantity: dec("2")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "30.00", fixed(d.Totals.TotalCost))

	d, err = f.svc.UpdateItem(f.ctx, domain.UpdateItemRequest{
		OrderID: o.Order.ID.String(),
		ItemID:  d.Lines[0].Item.ID.String(),
		ItemRequest: domain.ItemRequest{
			Name:     "Arch only",
			Quantity: dec("2"),
			Products: oneProduct(arch, "1"),
			Status:   "done",
		},
	})
	require.NoError(t, err)
	require.Len(t, d.Lines, 1)
	assert.Equal(t, "Arch only", d.Lines[0].Item.Name)
	assert.Equal(t, domain.ItemDone, d.Lines[0].Item.Status)
	assert.Empty(t, d.Lines[0].Valuation.Additions)
	assert.Equal(t, "6.00", fixed(d.Lines[0].Valuation.EffectiveUnits))
	assert.Equal(t, "60.00", fixed(f.stored(t, o.Order.ID).TotalCost))

	_, err = f.svc.UpdateItem(f.ctx, domain.UpdateItemRequest{
		OrderID:     o.Order.ID.String(),
		ItemID:      "5",
		ItemRequest: domain.ItemRequest{Quantity: dec("1")},
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestAddItem_RepeatedAdditionIsMerged(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "100.00")
	door := f.product(t, "Door A", 2, nil)
	hinge := f.addition(t, "Hinge", 0.5, catalogdomain.ScopeRequest{Global: true})
	o := f.order(t, "M-1")

	d, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID: o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{
			Quantity: dec("1"),
			Products: oneProduct(door, "1"),
			Additions: []domain.AdditionQuantity{
				{AdditionID: hinge.ID.String(), Quantity: dec("1")},
				{AdditionID: hinge.ID.String(), Quantity: dec("2")},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, d.Lines, 1)

	v := d.Lines[0].Valuation
	require.Len(t, v.Additions, 1)
	assert.Equal(t, "3.00", fixed(v.Additions[0].Quantity))
	assert.Equal(t, "1.50", fixed(v.AdditionsUnitSum))
	assert.Equal(t, "((2.00 × 1) + (0.50 × 3)) × 1", v.Formula.Expression)
	assert.Equal(t, "350.00", fixed(v.FinalPrice))

	var rows int64
	require.NoError(t, f.db.Table("addition_items").Where("order_item_id = ?", d.Lines[0].Item.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestBulkAssignCoefficients(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "10")
	interior := f.category(t, "Interior")
	exterior := f.category(t, "Exterior")
	door := f.product(t, "Door", 2.5, &interior)
	gate := f.product(t, "Gate", 6, &exterior)
	paint := f.coefficient(t, "Paint", 1.1, catalogdomain.ScopeRequest{CategoryIDs: []string{interior.ID.String()}})
	rush := f.coefficient(t, "Rush", 1.5, catalogdomain.ScopeRequest{Global: true})
	o := f.order(t, "B-1")
	orderID := o.Order.ID.String()

	_, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{OrderID: orderID, ItemRequest: domain.ItemRequest{Quantity: dec("1"), Products: oneProduct(door, "1")}})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	d, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{OrderID: orderID, ItemRequest: domain.ItemRequest{Quantity: dec("1"), Products: oneProduct(gate, "1")}})
	require.NoError(t, err)
	gateItem := d.Lines[1].Item.ID.String()

	d, err = f.svc.BulkAssignCoefficients(f.ctx, domain.BulkCoefficientsRequest{
		OrderID:        orderID,
		CoefficientIDs: []string{paint.ID.String()},
		Scope:          domain.BulkScopeAll,
		Mode:           domain.BulkModeAdd,
	})
	require.NoError(t, err)
	assert.Equal(t, "2.75", fixed(d.Lines[0].Valuation.EffectiveUnits))
	assert.Equal(t, "6.00", fixed(d.Lines[1].Valuation.EffectiveUnits))
	assert.Empty(t, d.Lines[1].Valuation.Coefficients)
	assert.Equal(t, "87.50", fixed(f.stored(t, o.Order.ID).TotalCost))

	d, err = f.svc.BulkAssignCoefficients(f.ctx, domain.BulkCoefficientsRequest{
		OrderID:        orderID,
		CoefficientIDs: []string{rush.ID.String()},
		Scope:          domain.BulkScopeSelected,
		ItemIDs:        []string{gateItem},
		Mode:           domain.BulkModeReplace,
	})
	require.NoError(t, err)
	assert.Equal(t, "2.75", fixed(d.Lines[0].Valuation.EffectiveUnits))
	assert.Equal(t, "9.00", fixed(d.Lines[1].Valuation.EffectiveUnits))
	assert.Equal(t, "117.50", fixed(f.stored(t, o.Order.ID).TotalCost))

	// Adding again keeps what is there and does not duplicate.
	d, err = f.svc.BulkAssignCoefficients(f.ctx, domain.BulkCoefficientsRequest{
		OrderID:        orderID,
		CoefficientIDs: []string{rush.ID.String()},
		Mode:           domain.BulkModeAdd,
	})
	require.NoError(t, err)
	assert.Len(t, d.Lines[0].Valuation.Coefficients, 2)
	assert.Len(t, d.Lines[1].Valuation.Coefficients, 1)

	_, err = f.svc.BulkAssignCoefficients(f.ctx, domain.BulkCoefficientsRequest{OrderID: orderID, CoefficientIDs: []string{rush.ID.String()}, Mode: "merge"})
	assert.ErrorIs(t, err, domain.ErrInvalidBulkMode)
	_, err = f.svc.BulkAssignCoefficients(f.ctx, domain.BulkCoefficientsRequest{OrderID: orderID, CoefficientIDs: []string{rush.ID.String()}, Scope: domain.BulkScopeSelected, ItemIDs: []string{"3"}})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	_, err = f.svc.BulkAssignCoefficients(f.ctx, domain.BulkCoefficientsRequest{OrderID: orderID, CoefficientIDs: []string{"3"}})
	assert.ErrorIs(t, err, domain.ErrInvalidCoefficient)
}

func TestGet_MissingCatalogRecordContributesZero(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "10")
	door := f.product(t, "Door", 2, nil)
	arch := f.product(t, "Arch", 3, nil)
	o := f.order(t, "M-1")

	_, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID: o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{Quantity: dec("1"), Products: []domain.ProductQuantity{
			{ProductID: door.ID.String(), Quantity: dec("1")},
			{ProductID: arch.ID.String(), Quantity: dec("1")},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`DELETE FROM products WHERE id = ?`, arch.ID).Error)

	d, err := f.svc.Recalculate(f.ctx, o.Order.ID.String())
	require.NoError(t, err)
	assert.Contains(t, d.Warnings, domain.WarningMissingReference)
	assert.Equal(t, "2.00", fixed(d.Lines[0].Valuation.EffectiveUnits))
	assert.True(t, d.Lines[0].Valuation.Products[1].Missing)
	assert.Equal(t, "20.00", fixed(f.stored(t, o.Order.ID).TotalCost))
}

func TestEvaluate_MarkupOverrideDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "100")
	door := f.product(t, "Door", 1, nil)
	o := f.order(t, "E-1")

	_, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID:     o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{Quantity: dec("1"), Products: oneProduct(door, "1"), MarkupPercent: decimal.NewNullDecimal(dec("50"))},
	})
	require.NoError(t, err)

	d, err := f.svc.Evaluate(f.ctx, domain.EvaluateRequest{
		OrderID:        o.Order.ID.String(),
		MarkupOverride: decimal.NewNullDecimal(dec("10")),
	})
	require.NoError(t, err)
	assert.Equal(t, "110.00", fixed(d.Totals.TotalCost))
	assert.Equal(t, "150.00", fixed(f.stored(t, o.Order.ID).TotalCost))

	_, err = f.svc.Evaluate(f.ctx, domain.EvaluateRequest{OrderID: o.Order.ID.String(), MarkupOverride: decimal.NewNullDecimal(dec("-200"))})
	assert.ErrorIs(t, err, domain.ErrInvalidMarkup)
}

func TestStatusCustomerAndList(t *testing.T) {
	f := newFixture(t)
	first := f.order(t, "L-1")
	second := f.order(t, "L-2")
	third := f.order(t, "L-3")

	updated, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		OrderID:       second.Order.ID.String(),
		Status:        "completed",
		FinanceStatus: "paid",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, domain.FinancePaid, updated.FinanceStatus)

	_, err = f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{OrderID: second.Order.ID.String(), Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{OrderID: second.Order.ID.String()})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)

	customer, err := f.customers.Create(f.ctx, customerdomain.CreateCustomerRequest{Name: "Olena"})
	require.NoError(t, err)
	assigned, err := f.svc.AssignCustomer(f.ctx, domain.AssignCustomerRequest{
		OrderID:    first.Order.ID.String(),
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, assigned.CustomerID)

	d, err := f.svc.Get(f.ctx, first.Order.ID.String())
	require.NoError(t, err)
	require.NotNil(t, d.Customer)
	assert.Equal(t, "Olena", d.Customer.Name)

	page, err := f.svc.List(f.ctx, domain.ListOrderRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, third.Order.ID, page.Orders[0].ID)
	assert.True(t, page.HasMore)

	next, err := f.svc.List(f.ctx, domain.ListOrderRequest{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, first.Order.ID, next.Orders[0].ID)

	completed, err := f.svc.List(f.ctx, domain.ListOrderRequest{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed.Orders, 1)
	assert.Equal(t, second.Order.ID, completed.Orders[0].ID)

	byCustomer, err := f.svc.List(f.ctx, domain.ListOrderRequest{CustomerID: customer.ID.String()})
	require.NoError(t, err)
	require.Len(t, byCustomer.Orders, 1)

	cleared, err := f.svc.AssignCustomer(f.ctx, domain.AssignCustomerRequest{OrderID: first.Order.ID.String()})
	require.NoError(t, err)
	assert.Nil(t, cleared.CustomerID)
}

func TestRecalculate_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "X-1")

	_, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{OrderID: o.Order.ID.String(), ItemRequest: domain.ItemRequest{Quantity: dec("1")}})
	require.NoError(t, err)
	_, err = f.svc.Recalculate(f.ctx, o.Order.ID.String())
	require.NoError(t, err)

	expected := `
# HELP doorcalc_order_recalculations_total Order total recalculations by triggering mutation.
# TYPE doorcalc_order_recalculations_total counter
doorcalc_order_recalculations_total{env="test",service="doorcalc",trigger="item_added"} 1
doorcalc_order_recalculations_total{env="test",service="doorcalc",trigger="manual"} 1
doorcalc_order_recalculations_total{env="test",service="doorcalc",trigger="order_created"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "doorcalc_order_recalculations_total"))

	_, err = f.svc.Recalculate(f.ctx, "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RemovesOrderAndLines(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "100.00")
	door := f.product(t, "Door", 1, nil)
	hinge := f.addition(t, "Hinge", 0.5, catalogdomain.ScopeRequest{Global: true})
	o := f.order(t, "D-1")
	keep := f.order(t, "D-2")

	_, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
		OrderID: o.Order.ID.String(),
		ItemRequest: domain.ItemRequest{
			Name:      "Door",
			Quantity:  dec("1"),
			Products:  oneProduct(door, "1"),
			Additions: []domain.AdditionQuantity{{AdditionID: hinge.ID.String(), Quantity: dec("2")}},
		},
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateCompletion(f.ctx, domain.UpdateCompletionRequest{OrderID: o.Order.ID.String(), Percent: 20})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, o.Order.ID.String()))

	_, err = f.svc.Get(f.ctx, o.Order.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, o.Order.ID.String()), domain.ErrNotFound)

	for _, table := range []string{"order_items", "order_progress"} {
		var n int64
		require.NoError(t, f.db.Table(table).Where("order_id = ?", o.Order.ID).Count(&n).Error)
		assert.Zero(t, n, table)
	}
	var pairs int64
	require.NoError(t, f.db.Table("addition_items").Count(&pairs).Error)
	assert.Zero(t, pairs)

	_, err = f.svc.Get(f.ctx, keep.Order.ID.String())
	assert.NoError(t, err)
}

func TestUpdateCompletion_ClampsAndCompletes(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "P-1")
	id := o.Order.ID.String()

	updated, err := f.svc.UpdateCompletion(f.ctx, domain.UpdateCompletionRequest{OrderID: id, Percent: 40, Comment: " frames cut "})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.CompletionPercent)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	f.clock.Advance(24 * time.Hour)
	updated, err = f.svc.UpdateCompletion(f.ctx, domain.UpdateCompletionRequest{OrderID: id, Percent: 150})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.CompletionPercent)
	assert.Equal(t, domain.StatusCompleted, updated.Status)

	stored := f.stored(t, o.Order.ID)
	assert.Equal(t, 100, stored.CompletionPercent)
	assert.Equal(t, domain.StatusCompleted, stored.Status)

	f.clock.Advance(24 * time.Hour)
	updated, err = f.svc.UpdateCompletion(f.ctx, domain.UpdateCompletionRequest{OrderID: id, Percent: -5})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CompletionPercent)

	entries, err := f.svc.ListProgress(f.ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 0, entries[0].Percent)
	assert.Equal(t, 100, entries[1].Percent)
	assert.Equal(t, 40, entries[2].Percent)
	assert.Equal(t, "frames cut", entries[2].Comment)
	assert.True(t, entries[2].Date.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

	_, err = f.svc.UpdateCompletion(f.ctx, domain.UpdateCompletionRequest{OrderID: "999", Percent: 10})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.ListProgress(f.ctx, "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReport_SplitsActiveAndPostponed(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, "100.00")
	door := f.product(t, "Door", 1, nil)
	withDoors := func(o domain.OrderDetail, qty string) {
		t.Helper()
		_, err := f.svc.AddItem(f.ctx, domain.AddItemRequest{
			OrderID:     o.Order.ID.String(),
			ItemRequest: domain.ItemRequest{Name: "Door", Quantity: dec(qty), Products: oneProduct(door, "1")},
		})
		require.NoError(t, err)
	}
	progress := func(o domain.OrderDetail, percent int) {
		t.Helper()
		_, err := f.svc.UpdateCompletion(f.ctx, domain.UpdateCompletionRequest{OrderID: o.Order.ID.String(), Percent: percent})
		require.NoError(t, err)
	}

	// 2025-03-01
	first := f.order(t, "R-1")
	withDoors(first, "1")

	// 2025-03-03
	f.clock.Advance(48 * time.Hour)
	second := f.order(t, "R-2")
	withDoors(second, "2")
	progress(second, 30)
	third := f.order(t, "R-3")
	withDoors(third, "5")
	_, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{OrderID: third.Order.ID.String(), Status: "postponed"})
	require.NoError(t, err)

	// 2025-03-04
	f.clock.Advance(24 * time.Hour)
	progress(second, 60)

	// 2025-03-11
	f.clock.Advance(7 * 24 * time.Hour)
	f.order(t, "R-4")

	report, err := f.svc.Report(f.ctx, domain.ReportRequest{StartDate: "2025-03-02", EndDate: "2025-03-04"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	require.Len(t, report.Active, 1)
	require.Len(t, report.Postponed, 1)
	assert.Equal(t, second.Order.ID, report.Active[0].Order.ID)
	assert.Equal(t, 60, report.Active[0].Progress)
	assert.Equal(t, third.Order.ID, report.Postponed[0].Order.ID)
	assert.Equal(t, "200.00", fixed(report.TotalValue))
	assert.Equal(t, "60.00", fixed(report.AverageProgress))
	assert.True(t, report.AsOf.Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)))

	report, err = f.svc.Report(f.ctx, domain.ReportRequest{EndDate: "2025-03-03"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	require.Len(t, report.Active, 2)
	assert.Nil(t, report.StartDate)
	assert.Equal(t, "300.00", fixed(report.TotalValue))
	assert.Equal(t, "15.00", fixed(report.AverageProgress))

	report, err = f.svc.Report(f.ctx, domain.ReportRequest{StartDate: "03/02/2025", EndDate: "2025-03-04"})
	require.NoError(t, err)
	assert.Nil(t, report.StartDate)
	assert.Nil(t, report.EndDate)
	require.Len(t, report.Rows, 4)
	require.Len(t, report.Active, 3)
	assert.Equal(t, "300.00", fixed(report.TotalValue))
	assert.Equal(t, "20.00", fixed(report.AverageProgress))
	assert.True(t, report.AsOf.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)))
}
