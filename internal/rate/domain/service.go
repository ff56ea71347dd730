package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SetRateRequest struct {
	Value string
}

type Service interface {
	// Current never fails because a rate is missing; see CurrentRate.Configured.
	Current(ctx context.Context) (CurrentRate, error)
	Set(ctx context.Context, req SetRateRequest) (Rate, error)
	History(ctx context.Context, limit int) ([]Rate, error)

	// SnapshotForOrder fixes the order's price per unit from the current rate
	// if it has none, and returns the fixed value. It runs on db so callers can
	// include it in their transaction.
	SnapshotForOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (Snapshot, error)
}

var (
	ErrInvalidValue  = errors.New("invalid_rate")
	ErrOrderNotFound = errors.New("order_not_found")
)
