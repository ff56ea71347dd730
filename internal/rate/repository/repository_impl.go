package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/rate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rate *domain.Rate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rates (id, value, updated_at) VALUES (?, ?, ?)`,
		rate.ID,
		rate.Value,
		rate.UpdatedAt,
	).Error
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB) (*domain.Rate, error) {
	var rate domain.Rate
	err := db.WithContext(ctx).Raw(
		`SELECT id, value, updated_at FROM rates ORDER BY updated_at DESC, id DESC LIMIT 1`,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]domain.Rate, error) {
	var rates []domain.Rate
	err := db.WithContext(ctx).Raw(
		`SELECT id, value, updated_at FROM rates ORDER BY updated_at DESC, id DESC LIMIT ?`,
		limit,
	).Scan(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *repo) FindOrderPrice(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (decimal.NullDecimal, bool, error) {
	var row struct {
		ID         snowflake.ID
		PricePerKs decimal.NullDecimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, price_per_ks FROM orders WHERE id = ?`,
		orderID,
	).Scan(&row).Error
	if err != nil {
		return decimal.NullDecimal{}, false, err
	}
	if row.ID == 0 {
		return decimal.NullDecimal{}, false, nil
	}
	return row.PricePerKs, true, nil
}

func (r *repo) FixOrderPrice(ctx context.Context, db *gorm.DB, orderID snowflake.ID, price decimal.Decimal) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET price_per_ks = ? WHERE id = ? AND price_per_ks IS NULL`,
		price,
		orderID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
