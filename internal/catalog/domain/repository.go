package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCategory(ctx context.Context, db *gorm.DB, category *Category) error
	ListCategories(ctx context.Context, db *gorm.DB) ([]Category, error)
	FindCategoriesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Category, error)

	InsertProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindProductsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Product, error)
	ListProducts(ctx context.Context, db *gorm.DB, filter ListProductFilter) ([]Product, error)

	InsertAddition(ctx context.Context, db *gorm.DB, addition *Addition) error
	ListAdditions(ctx context.Context, db *gorm.DB) ([]Addition, error)
	FindAdditionsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Addition, error)

	InsertCoefficient(ctx context.Context, db *gorm.DB, coefficient *Coefficient) error
	ListCoefficients(ctx context.Context, db *gorm.DB) ([]Coefficient, error)
	FindCoefficientsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Coefficient, error)
}

type ListProductFilter struct {
	CategoryID *snowflake.ID
	Name       string
}
