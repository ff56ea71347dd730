package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ratedomain "github.com/smallbiznis/doorcalc/internal/rate/domain"
	"gorm.io/gorm"
)

// EnsureDefaultRate inserts value as the first rate when the rates table is empty.
// An empty value disables seeding; orders are then valued at zero until a rate is set.
func EnsureDefaultRate(db *gorm.DB, node *snowflake.Node, value string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
	if err != nil {
		return err
	}
	if amount.Sign() < 0 {
		return errors.New("default rate must not be negative")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ratedomain.Rate{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		rate := ratedomain.Rate{
			ID:        node.Generate(),
			Value:     amount.Round(2),
			UpdatedAt: time.Now().UTC(),
		}
		return tx.Create(&rate).Error
	})
}
