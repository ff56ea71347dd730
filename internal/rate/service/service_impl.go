package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/clock"
	"github.com/smallbiznis/doorcalc/internal/pricing"
	"github.com/smallbiznis/doorcalc/internal/rate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxHistory = 100

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rate.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Current(ctx context.Context) (domain.CurrentRate, error) {
	return s.current(ctx, s.db)
}

func (s *Service) current(ctx context.Context, db *gorm.DB) (domain.CurrentRate, error) {
	latest, err := s.repo.FindLatest(ctx, db)
	if err != nil {
		return domain.CurrentRate{}, err
	}
	if latest == nil {
		return domain.CurrentRate{Value: decimal.Zero}, nil
	}
	updatedAt := latest.UpdatedAt
	return domain.CurrentRate{
		Value:      pricing.Round2(latest.Value),
		Configured: true,
		UpdatedAt:  &updatedAt,
	}, nil
}

func (s *Service) Set(ctx context.Context, req domain.SetRateRequest) (domain.Rate, error) {
	value, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(req.Value), ",", "."))
	if err != nil {
		return domain.Rate{}, domain.ErrInvalidValue
	}
	if err := pricing.CheckAmount(value); err != nil {
		return domain.Rate{}, domain.ErrInvalidValue
	}

	rate := domain.Rate{
		ID:        s.genID.Generate(),
		Value:     pricing.Round2(value),
		UpdatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &rate); err != nil {
		return domain.Rate{}, err
	}

	s.log.Info("rate updated", zap.String("value", pricing.Fixed2(rate.Value)))
	return rate, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]domain.Rate, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	return s.repo.List(ctx, s.db, limit)
}

func (s *Service) SnapshotForOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (domain.Snapshot, error) {
	if db == nil {
		db = s.db
	}

	price, found, err := s.repo.FindOrderPrice(ctx, db, orderID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !found {
		return domain.Snapshot{}, domain.ErrOrderNotFound
	}
	if price.Valid {
		return domain.Snapshot{PricePerUnit: price.Decimal, Configured: true}, nil
	}

	current, err := s.current(ctx, db)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !current.Configured {
		// Left unfixed so the order picks up the first rate that gets configured.
		s.log.Warn("rate not configured", zap.String("order_id", orderID.String()))
		return domain.Snapshot{PricePerUnit: decimal.Zero}, nil
	}

	fixed, err := s.repo.FixOrderPrice(ctx, db, orderID, current.Value)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !fixed {
		// Another writer fixed it first; theirs stands.
		price, _, err := s.repo.FindOrderPrice(ctx, db, orderID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		return domain.Snapshot{PricePerUnit: price.Decimal, Configured: true}, nil
	}

	s.log.Info("order price fixed",
		zap.String("order_id", orderID.String()),
		zap.String("price_per_ks", pricing.Fixed2(current.Value)),
	)
	return domain.Snapshot{PricePerUnit: current.Value, Configured: true, Fixed: true}, nil
}
