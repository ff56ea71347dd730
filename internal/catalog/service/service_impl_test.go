package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/doorcalc/internal/catalog/domain"
	"github.com/smallbiznis/doorcalc/internal/catalog/repository"
	"github.com/smallbiznis/doorcalc/internal/clock"
	"github.com/smallbiznis/doorcalc/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    dbtest.Open(t),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func floatPtr(v float64) *float64 { return &v }

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, name(item))
	}
	return out
}

func TestCreateCategory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "  Interior  "})
	require.NoError(t, err)
	assert.Equal(t, "Interior", category.Name)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Interior"})
	assert.ErrorIs(t, err, domain.ErrCategoryExists)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.CreateProductRequest
		err  error
	}{
		{"empty name", domain.CreateProductRequest{Name: "", BaseUnits: 1}, domain.ErrInvalidName},
		{"negative units", domain.CreateProductRequest{Name: "Door", BaseUnits: -1}, domain.ErrInvalidBaseUnits},
		{"bad category id", domain.CreateProductRequest{Name: "Door", CategoryID: "x"}, domain.ErrInvalidCategory},
		{"unknown category", domain.CreateProductRequest{Name: "Door", CategoryID: "42"}, domain.ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestProducts_CreateGetList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	interior, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Interior"})
	require.NoError(t, err)

	door, err := svc.CreateProduct(ctx, domain.CreateProductRequest{
		Name:       "Single door",
		CategoryID: interior.ID.String(),
		BaseUnits:  2.5,
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Arch", BaseUnits: 4})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, door.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.BaseUnits)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, interior.ID, *got.CategoryID)

	_, err = svc.GetProduct(ctx, "123")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := svc.ListProducts(ctx, domain.ListProductRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Arch", "Single door"}, names(all, func(p domain.Product) string { return p.Name }))

	inCategory, err := svc.ListProducts(ctx, domain.ListProductRequest{CategoryID: interior.ID.String()})
	require.NoError(t, err)
	require.Len(t, inCategory, 1)
	assert.Equal(t, door.ID, inCategory[0].ID)

	byName, err := svc.ListProducts(ctx, domain.ListProductRequest{Name: "ARCH"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
}

func TestCreateCoefficient_DefaultsAndValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	coef, err := svc.CreateCoefficient(ctx, domain.CreateCoefficientRequest{
		Name:  "Neutral",
		Scope: domain.ScopeRequest{Global: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, coef.Value)
	assert.True(t, coef.IsGlobal)

	_, err = svc.CreateCoefficient(ctx, domain.CreateCoefficientRequest{Name: "Zero", Value: floatPtr(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = svc.CreateCoefficient(ctx, domain.CreateCoefficientRequest{
		Name:  "Ghost",
		Value: floatPtr(1.2),
		Scope: domain.ScopeRequest{ProductIDs: []string{"99"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestApplicable_ScopesByCategoryAndProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	interior, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Interior"})
	require.NoError(t, err)
	exterior, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Exterior"})
	require.NoError(t, err)

	door, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Door", CategoryID: interior.ID.String(), BaseUnits: 2.5})
	require.NoError(t, err)
	gate, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Gate", CategoryID: exterior.ID.String(), BaseUnits: 6})
	require.NoError(t, err)

	_, err = svc.CreateAddition(ctx, domain.CreateAdditionRequest{Name: "Lock", UnitValue: 0.5, Scope: domain.ScopeRequest{Global: true}})
	require.NoError(t, err)
	_, err = svc.CreateAddition(ctx, domain.CreateAdditionRequest{Name: "Glass", UnitValue: 1.2, Scope: domain.ScopeRequest{CategoryIDs: []string{interior.ID.String()}}})
	require.NoError(t, err)
	_, err = svc.CreateAddition(ctx, domain.CreateAdditionRequest{Name: "Hinge", UnitValue: 0.3, Scope: domain.ScopeRequest{ProductIDs: []string{gate.ID.String()}}})
	require.NoError(t, err)

	_, err = svc.CreateCoefficient(ctx, domain.CreateCoefficientRequest{Name: "Paint", Value: floatPtr(1.1), Scope: domain.ScopeRequest{CategoryIDs: []string{interior.ID.String()}}})
	require.NoError(t, err)
	_, err = svc.CreateCoefficient(ctx, domain.CreateCoefficientRequest{Name: "Orphan", Value: floatPtr(2)})
	require.NoError(t, err)

	additionName := func(a domain.Addition) string { return a.Name }
	coefficientName := func(c domain.Coefficient) string { return c.Name }

	none, err := svc.Applicable(ctx, domain.ApplicableRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lock"}, names(none.Additions, additionName))
	assert.Empty(t, none.Coefficients)

	forDoor, err := svc.Applicable(ctx, domain.ApplicableRequest{ProductIDs: []string{door.ID.String()}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Glass", "Lock"}, names(forDoor.Additions, additionName))
	assert.Equal(t, []string{"Paint"}, names(forDoor.Coefficients, coefficientName))

	forBoth, err := svc.Applicable(ctx, domain.ApplicableRequest{ProductIDs: []string{door.ID.String(), gate.ID.String()}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Glass", "Hinge", "Lock"}, names(forBoth.Additions, additionName))

	_, err = svc.Applicable(ctx, domain.ApplicableRequest{ProductIDs: []string{"nope"}})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestListAdditions_LoadsScopes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	interior, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Interior"})
	require.NoError(t, err)
	created, err := svc.CreateAddition(ctx, domain.CreateAdditionRequest{
		Name:      "Glass",
		UnitValue: 1.2,
		Scope:     domain.ScopeRequest{CategoryIDs: []string{interior.ID.String(), interior.ID.String()}},
	})
	require.NoError(t, err)

	additions, err := svc.ListAdditions(ctx)
	require.NoError(t, err)
	require.Len(t, additions, 1)
	assert.Equal(t, created.ID, additions[0].ID)
	assert.Equal(t, []snowflake.ID{interior.ID}, additions[0].CategoryIDs)
	assert.Empty(t, additions[0].ProductIDs)
}
