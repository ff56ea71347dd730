package domain

import (
	"context"
	"errors"
)

type CreateCategoryRequest struct {
	Name        string
	Description string
}

type CreateProductRequest struct {
	Name       string
	CategoryID string
	BaseUnits  float64
	ImagePath  string
}

type ListProductRequest struct {
	CategoryID string
	Name       string
}

// ScopeRequest carries an applicability rule as submitted by a client.
type ScopeRequest struct {
	Global      bool
	CategoryIDs []string
	ProductIDs  []string
}

type CreateAdditionRequest struct {
	Name      string
	UnitValue float64
	Scope     ScopeRequest
}

type CreateCoefficientRequest struct {
	Name string
	// Value defaults to 1.0 when nil.
	Value *float64
	Scope ScopeRequest
}

type ApplicableRequest struct {
	ProductIDs []string
}

type ApplicableResponse struct {
	Additions    []Addition    `json:"additions"`
	Coefficients []Coefficient `json:"coefficients"`
}

type Service interface {
	CreateCategory(context.Context, CreateCategoryRequest) (Category, error)
	ListCategories(context.Context) ([]Category, error)

	CreateProduct(context.Context, CreateProductRequest) (Product, error)
	ListProducts(context.Context, ListProductRequest) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)

	CreateAddition(context.Context, CreateAdditionRequest) (Addition, error)
	ListAdditions(context.Context) ([]Addition, error)

	CreateCoefficient(context.Context, CreateCoefficientRequest) (Coefficient, error)
	ListCoefficients(context.Context) ([]Coefficient, error)

	// Applicable resolves the additions and coefficients eligible for the
	// given products. Unknown product ids are ignored.
	Applicable(context.Context, ApplicableRequest) (ApplicableResponse, error)
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidProduct   = errors.New("invalid_product")
	ErrInvalidBaseUnits = errors.New("invalid_base_units")
	ErrInvalidUnitValue = errors.New("invalid_unit_value")
	ErrInvalidValue     = errors.New("invalid_value")
	ErrCategoryExists   = errors.New("category_exists")
	ErrNotFound         = errors.New("not_found")
)
