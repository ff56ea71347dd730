package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/doorcalc/internal/catalog/domain"
	"github.com/smallbiznis/doorcalc/internal/clock"
	"github.com/smallbiznis/doorcalc/internal/pricing"
	"github.com/smallbiznis/doorcalc/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxCategoryName = 100
	maxName         = 255
)

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
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (domain.Category, error) {
	name, err := normalizeName(req.Name, maxCategoryName)
	if err != nil {
		return domain.Category{}, err
	}

	category := domain.Category{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertCategory(ctx, s.db, &category); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Category{}, domain.ErrCategoryExists
		}
		return domain.Category{}, err
	}
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, s.db)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name, err := normalizeName(req.Name, maxName)
	if err != nil {
		return domain.Product{}, err
	}
	if err := pricing.CheckUnitValue(req.BaseUnits); err != nil {
		return domain.Product{}, domain.ErrInvalidBaseUnits
	}

	var categoryID *snowflake.ID
	if raw := strings.TrimSpace(req.CategoryID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.Product{}, domain.ErrInvalidCategory
		}
		if err := s.ensureCategories(ctx, []snowflake.ID{id}); err != nil {
			return domain.Product{}, err
		}
		categoryID = &id
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:         s.genID.Generate(),
		Name:       name,
		CategoryID: categoryID,
		BaseUnits:  req.BaseUnits,
		ImagePath:  strings.TrimSpace(req.ImagePath),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertProduct(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context, req domain.ListProductRequest) ([]domain.Product, error) {
	filter := domain.ListProductFilter{Name: req.Name}
	if raw := strings.TrimSpace(req.CategoryID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidCategory
		}
		filter.CategoryID = &id
	}
	return s.repo.ListProducts(ctx, s.db, filter)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, domain.ErrInvalidID
	}
	product, err := s.repo.FindProductByID(ctx, s.db, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) CreateAddition(ctx context.Context, req domain.CreateAdditionRequest) (domain.Addition, error) {
	name, err := normalizeName(req.Name, maxName)
	if err != nil {
		return domain.Addition{}, err
	}
	if err := pricing.CheckUnitValue(req.UnitValue); err != nil {
		return domain.Addition{}, domain.ErrInvalidUnitValue
	}
	scope, err := s.resolveScope(ctx, req.Scope)
	if err != nil {
		return domain.Addition{}, err
	}

	now := s.clock.Now()
	addition := domain.Addition{
		ID:          s.genID.Generate(),
		Name:        name,
		UnitValue:   req.UnitValue,
		IsGlobal:    scope.Global,
		CategoryIDs: scope.CategoryIDs,
		ProductIDs:  scope.ProductIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.InsertAddition(ctx, tx, &addition)
	})
	if err != nil {
		return domain.Addition{}, err
	}

	s.log.Info("addition created",
		zap.String("addition_id", addition.ID.String()),
		zap.String("scope", string(addition.Scope().Kind())),
	)
	return addition, nil
}

func (s *Service) ListAdditions(ctx context.Context) ([]domain.Addition, error) {
	return s.repo.ListAdditions(ctx, s.db)
}

func (s *Service) CreateCoefficient(ctx context.Context, req domain.CreateCoefficientRequest) (domain.Coefficient, error) {
	name, err := normalizeName(req.Name, maxName)
	if err != nil {
		return domain.Coefficient{}, err
	}
	value := 1.0
	if req.Value != nil {
		value = *req.Value
	}
	if err := pricing.CheckCoefficientValue(value); err != nil {
		return domain.Coefficient{}, domain.ErrInvalidValue
	}
	scope, err := s.resolveScope(ctx, req.Scope)
	if err != nil {
		return domain.Coefficient{}, err
	}

	now := s.clock.Now()
	coefficient := domain.Coefficient{
		ID:          s.genID.Generate(),
		Name:        name,
		Value:       value,
		IsGlobal:    scope.Global,
		CategoryIDs: scope.CategoryIDs,
		ProductIDs:  scope.ProductIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.InsertCoefficient(ctx, tx, &coefficient)
	})
	if err != nil {
		return domain.Coefficient{}, err
	}

	s.log.Info("coefficient created",
		zap.String("coefficient_id", coefficient.ID.String()),
		zap.String("scope", string(coefficient.Scope().Kind())),
	)
	return coefficient, nil
}

func (s *Service) ListCoefficients(ctx context.Context) ([]domain.Coefficient, error) {
	return s.repo.ListCoefficients(ctx, s.db)
}

func (s *Service) Applicable(ctx context.Context, req domain.ApplicableRequest) (domain.ApplicableResponse, error) {
	ids := make([]snowflake.ID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return domain.ApplicableResponse{}, domain.ErrInvalidProduct
		}
		ids = append(ids, id)
	}

	products, err := s.repo.FindProductsByIDs(ctx, s.db, ids)
	if err != nil {
		return domain.ApplicableResponse{}, err
	}
	selected := make([]pricing.SelectedProduct, 0, len(products))
	for _, p := range products {
		selected = append(selected, p.Selected())
	}

	additions, err := s.repo.ListAdditions(ctx, s.db)
	if err != nil {
		return domain.ApplicableResponse{}, err
	}
	coefficients, err := s.repo.ListCoefficients(ctx, s.db)
	if err != nil {
		return domain.ApplicableResponse{}, err
	}

	return domain.ApplicableResponse{
		Additions:    ApplicableAdditions(additions, selected),
		Coefficients: ApplicableCoefficients(coefficients, selected),
	}, nil
}

// ApplicableAdditions narrows additions to the ones eligible for selected.
func ApplicableAdditions(additions []domain.Addition, selected []pricing.SelectedProduct) []domain.Addition {
	return pricing.Applicable(additions, selected,
		func(a domain.Addition) snowflake.ID { return a.ID },
		func(a domain.Addition) string { return a.Name },
		domain.Addition.Scope,
	)
}

// ApplicableCoefficients narrows coefficients to the ones eligible for selected.
func ApplicableCoefficients(coefficients []domain.Coefficient, selected []pricing.SelectedProduct) []domain.Coefficient {
	return pricing.Applicable(coefficients, selected,
		func(c domain.Coefficient) snowflake.ID { return c.ID },
		func(c domain.Coefficient) string { return c.Name },
		domain.Coefficient.Scope,
	)
}

func (s *Service) resolveScope(ctx context.Context, req domain.ScopeRequest) (pricing.Scope, error) {
	if req.Global {
		return pricing.Scope{Global: true}, nil
	}

	categoryIDs, err := parseIDs(req.CategoryIDs, domain.ErrInvalidCategory)
	if err != nil {
		return pricing.Scope{}, err
	}
	productIDs, err := parseIDs(req.ProductIDs, domain.ErrInvalidProduct)
	if err != nil {
		return pricing.Scope{}, err
	}
	if err := s.ensureCategories(ctx, categoryIDs); err != nil {
		return pricing.Scope{}, err
	}
	if len(productIDs) > 0 {
		products, err := s.repo.FindProductsByIDs(ctx, s.db, productIDs)
		if err != nil {
			return pricing.Scope{}, err
		}
		if len(products) != len(productIDs) {
			return pricing.Scope{}, domain.ErrInvalidProduct
		}
	}

	return pricing.Scope{CategoryIDs: categoryIDs, ProductIDs: productIDs}, nil
}

func (s *Service) ensureCategories(ctx context.Context, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	categories, err := s.repo.FindCategoriesByIDs(ctx, s.db, ids)
	if err != nil {
		return err
	}
	if len(categories) != len(ids) {
		return domain.ErrInvalidCategory
	}
	return nil
}

func normalizeName(raw string, max int) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > max {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

// parseIDs parses and dedupes ids, keeping first-seen order.
func parseIDs(raw []string, invalid error) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[snowflake.ID]struct{}, len(raw))
	ids := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil {
			return nil, invalid
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
