package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/doorcalc/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO categories (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		category.ID,
		category.Name,
		category.Description,
		category.CreatedAt,
	).Error
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var categories []domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, created_at FROM categories ORDER BY name ASC, id ASC`,
	).Scan(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repo) FindCategoriesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var categories []domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, created_at FROM categories WHERE id IN ?`,
		ids,
	).Scan(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

const productColumns = `id, name, category_id, base_units, image_path, created_at, updated_at`

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.CategoryID,
		product.BaseUnits,
		product.ImagePath,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindProductsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE id IN ?`,
		ids,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if filter.CategoryID != nil {
		stmt = stmt.Where("category_id = ?", *filter.CategoryID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if err := stmt.Order("name asc, id asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) InsertAddition(ctx context.Context, db *gorm.DB, addition *domain.Addition) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO additions (id, name, unit_value, is_global, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		addition.ID,
		addition.Name,
		addition.UnitValue,
		addition.IsGlobal,
		addition.CreatedAt,
		addition.UpdatedAt,
	).Error
	if err != nil {
		return err
	}
	if err := insertScope(ctx, db, "addition_categories", "addition_id", "category_id", addition.ID, addition.CategoryIDs); err != nil {
		return err
	}
	return insertScope(ctx, db, "addition_products", "addition_id", "product_id", addition.ID, addition.ProductIDs)
}

func (r *repo) ListAdditions(ctx context.Context, db *gorm.DB) ([]domain.Addition, error) {
	var additions []domain.Addition
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, unit_value, is_global, created_at, updated_at FROM additions ORDER BY name ASC, id ASC`,
	).Scan(&additions).Error
	if err != nil {
		return nil, err
	}
	return additions, r.attachAdditionScopes(ctx, db, additions)
}

func (r *repo) FindAdditionsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Addition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var additions []domain.Addition
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, unit_value, is_global, created_at, updated_at FROM additions WHERE id IN ?`,
		ids,
	).Scan(&additions).Error
	if err != nil {
		return nil, err
	}
	return additions, r.attachAdditionScopes(ctx, db, additions)
}

func (r *repo) attachAdditionScopes(ctx context.Context, db *gorm.DB, additions []domain.Addition) error {
	if len(additions) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(additions))
	for _, a := range additions {
		ids = append(ids, a.ID)
	}
	categories, err := loadScope(ctx, db, "addition_categories", "addition_id", "category_id", ids)
	if err != nil {
		return err
	}
	products, err := loadScope(ctx, db, "addition_products", "addition_id", "product_id", ids)
	if err != nil {
		return err
	}
	for i := range additions {
		additions[i].CategoryIDs = categories[additions[i].ID]
		additions[i].ProductIDs = products[additions[i].ID]
	}
	return nil
}

func (r *repo) InsertCoefficient(ctx context.Context, db *gorm.DB, coefficient *domain.Coefficient) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO coefficients (id, name, value, is_global, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		coefficient.ID,
		coefficient.Name,
		coefficient.Value,
		coefficient.IsGlobal,
		coefficient.CreatedAt,
		coefficient.UpdatedAt,
	).Error
	if err != nil {
		return err
	}
	if err := insertScope(ctx, db, "coefficient_categories", "coefficient_id", "category_id", coefficient.ID, coefficient.CategoryIDs); err != nil {
		return err
	}
	return insertScope(ctx, db, "coefficient_products", "coefficient_id", "product_id", coefficient.ID, coefficient.ProductIDs)
}

func (r *repo) ListCoefficients(ctx context.Context, db *gorm.DB) ([]domain.Coefficient, error) {
	var coefficients []domain.Coefficient
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, value, is_global, created_at, updated_at FROM coefficients ORDER BY name ASC, id ASC`,
	).Scan(&coefficients).Error
	if err != nil {
		return nil, err
	}
	return coefficients, r.attachCoefficientScopes(ctx, db, coefficients)
}

func (r *repo) FindCoefficientsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Coefficient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var coefficients []domain.Coefficient
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, value, is_global, created_at, updated_at FROM coefficients WHERE id IN ?`,
		ids,
	).Scan(&coefficients).Error
	if err != nil {
		return nil, err
	}
	return coefficients, r.attachCoefficientScopes(ctx, db, coefficients)
}

func (r *repo) attachCoefficientScopes(ctx context.Context, db *gorm.DB, coefficients []domain.Coefficient) error {
	if len(coefficients) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(coefficients))
	for _, c := range coefficients {
		ids = append(ids, c.ID)
	}
	categories, err := loadScope(ctx, db, "coefficient_categories", "coefficient_id", "category_id", ids)
	if err != nil {
		return err
	}
	products, err := loadScope(ctx, db, "coefficient_products", "coefficient_id", "product_id", ids)
	if err != nil {
		return err
	}
	for i := range coefficients {
		coefficients[i].CategoryIDs = categories[coefficients[i].ID]
		coefficients[i].ProductIDs = products[coefficients[i].ID]
	}
	return nil
}

// Table and column names below are package constants, never user input.

func insertScope(ctx context.Context, db *gorm.DB, table, ownerCol, targetCol string, owner snowflake.ID, targets []snowflake.ID) error {
	for _, target := range targets {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO `+table+` (`+ownerCol+`, `+targetCol+`) VALUES (?, ?)`,
			owner,
			target,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func loadScope(ctx context.Context, db *gorm.DB, table, ownerCol, targetCol string, owners []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error) {
	var rows []struct {
		Owner  snowflake.ID
		Target snowflake.ID
	}
	err := db.WithContext(ctx).Raw(
		`SELECT `+ownerCol+` AS owner, `+targetCol+` AS target FROM `+table+` WHERE `+ownerCol+` IN ? ORDER BY `+targetCol+` ASC`,
		owners,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID][]snowflake.ID, len(owners))
	for _, row := range rows {
		out[row.Owner] = append(out[row.Owner], row.Target)
	}
	return out, nil
}
