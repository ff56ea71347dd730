package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/doorcalc/internal/catalog/domain"
	"github.com/smallbiznis/doorcalc/internal/clock"
	customerdomain "github.com/smallbiznis/doorcalc/internal/customer/domain"
	"github.com/smallbiznis/doorcalc/internal/observability/metrics"
	"github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/internal/pricing"
	ratedomain "github.com/smallbiznis/doorcalc/internal/rate/domain"
	"github.com/smallbiznis/doorcalc/pkg/db"
	"github.com/smallbiznis/doorcalc/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultItemName = "Item"
	maxOrderNumber  = 50
	maxName         = 255
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Catalog   catalogdomain.Repository
	Customers customerdomain.Repository
	Rates     ratedomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	catalog   catalogdomain.Repository
	customers customerdomain.Repository
	rates     ratedomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		catalog:   p.Catalog,
		customers: p.Customers,
		rates:     p.Rates,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.OrderDetail, error) {
	number := strings.TrimSpace(req.OrderNumber)
	if number == "" || len(number) > maxOrderNumber {
		return domain.OrderDetail{}, domain.ErrInvalidOrderNumber
	}
	name := strings.TrimSpace(req.OrderName)
	if len(name) > maxName {
		return domain.OrderDetail{}, domain.ErrInvalidName
	}
	workType := domain.WorkType(strings.TrimSpace(req.WorkType))
	if workType == "" {
		workType = domain.WorkTypeProject
	}
	if !workType.Valid() {
		return domain.OrderDetail{}, domain.ErrInvalidWorkType
	}
	markup := decimal.Zero
	if req.MarkupPercent.Valid {
		if err := pricing.CheckMarkup(req.MarkupPercent.Decimal); err != nil {
			return domain.OrderDetail{}, domain.ErrInvalidMarkup
		}
		markup = pricing.Round2(req.MarkupPercent.Decimal)
	}
	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:            s.genID.Generate(),
		OrderNumber:   number,
		OrderName:     name,
		Status:        domain.StatusInProgress,
		FinanceStatus: domain.FinancePostponed,
		WorkType:      workType,
		MarkupPercent: markup,
		TotalUnits:    decimal.Zero,
		TotalCost:     decimal.Zero,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var detail domain.OrderDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if raw := strings.TrimSpace(req.CustomerID); raw != "" {
			customerID, err := s.resolveCustomer(ctx, tx, raw)
			if err != nil {
				return err
			}
			order.CustomerID = &customerID
		}

		if err := s.repo.InsertOrder(ctx, tx, &order); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrOrderExists
			}
			return err
		}

		var err error
		detail, err = s.recalculate(ctx, tx, order.ID, metrics.TriggerOrderCreated)
		return err
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
	)
	return detail, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrderRequest) (domain.ListOrderResponse, error) {
	filter := domain.ListOrderFilter{
		Status:   domain.Status(strings.TrimSpace(req.Status)),
		WorkType: domain.WorkType(strings.TrimSpace(req.WorkType)),
		Search:   req.Search,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ListOrderResponse{}, domain.ErrInvalidStatus
	}
	if filter.WorkType != "" && !filter.WorkType.Valid() {
		return domain.ListOrderResponse{}, domain.ErrInvalidWorkType
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListOrderResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = &id
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListOrderResponse{}, err
		}
		createdAt, err := cursor.CreatedAtTime()
		if err != nil {
			return domain.ListOrderResponse{}, pagination.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListOrderResponse{}, pagination.ErrInvalidPageToken
		}
		filter.AfterCreatedAt = &createdAt
		filter.AfterID = id
	}

	limit := pagination.Pagination{PageSize: req.PageSize}.Limit()
	items, err := s.repo.ListOrders(ctx, s.db, filter, limit)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(order *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        order.ID.String(),
			CreatedAt: order.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > limit {
		items = items[:limit]
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}

	return domain.ListOrderResponse{PageInfo: *pageInfo, Orders: orders}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.OrderDetail, error) {
	return s.Evaluate(ctx, domain.EvaluateRequest{OrderID: id})
}

func (s *Service) Evaluate(ctx context.Context, req domain.EvaluateRequest) (domain.OrderDetail, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if req.MarkupOverride.Valid {
		if err := pricing.CheckMarkup(req.MarkupOverride.Decimal); err != nil {
			return domain.OrderDetail{}, domain.ErrInvalidMarkup
		}
	}

	order, err := s.findOrder(ctx, s.db, orderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	// An unfixed price previews the current rate; the next recalculation fixes it.
	terms := pricing.OrderTerms{PricePerUnit: order.PricePerUnit.Decimal, MarkupPercent: order.MarkupPercent}
	configured := order.PricePerUnit.Valid
	if !configured {
		current, err := s.rates.Current(ctx)
		if err != nil {
			return domain.OrderDetail{}, err
		}
		terms.PricePerUnit = current.Value
		configured = current.Configured
	}

	items, lines, missing, err := s.loadLines(ctx, s.db, order.ID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if req.MarkupOverride.Valid {
		override := pricing.Round2(req.MarkupOverride.Decimal)
		terms.MarkupPercent = override
		for i := range lines {
			lines[i].MarkupPercent = decimal.NewNullDecimal(override)
		}
	}

	valuations := pricing.ValueAll(lines, terms)
	return s.buildDetail(ctx, s.db, *order, items, valuations, configured, missing)
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Order, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	status := domain.Status(strings.TrimSpace(req.Status))
	finance := domain.FinanceStatus(strings.TrimSpace(req.FinanceStatus))
	if status == "" && finance == "" {
		return domain.Order{}, domain.ErrEmptyUpdate
	}
	if status != "" && !status.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}
	if finance != "" && !finance.Valid() {
		return domain.Order{}, domain.ErrInvalidFinanceStatus
	}

	var updated domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if status != "" {
			order.Status = status
		}
		if finance != "" {
			order.FinanceStatus = finance
		}
		order.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateOrderStatus(ctx, tx, order); err != nil {
			return err
		}
		updated = *order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order status updated",
		zap.String("order_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
		zap.String("finance_status", string(updated.FinanceStatus)),
	)
	return updated, nil
}

func (s *Service) AssignCustomer(ctx context.Context, req domain.AssignCustomerRequest) (domain.Order, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}

	var updated domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		var customerID *snowflake.ID
		if raw := strings.TrimSpace(req.CustomerID); raw != "" {
			id, err := s.resolveCustomer(ctx, tx, raw)
			if err != nil {
				return err
			}
			customerID = &id
		}

		order.CustomerID = customerID
		order.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateOrderCustomer(ctx, tx, order.ID, customerID, order.UpdatedAt); err != nil {
			return err
		}
		updated = *order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

func (s *Service) AddItem(ctx context.Context, req domain.AddItemRequest) (domain.OrderDetail, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	var detail domain.OrderDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOrder(ctx, tx, orderID); err != nil {
			return err
		}

		now := s.clock.Now()
		item := domain.OrderItem{
			ID:             s.genID.Generate(),
			OrderID:        orderID,
			Status:         domain.ItemPending,
			EffectiveUnits: decimal.Zero,
			FinalPrice:     decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		parts, err := s.resolveItem(ctx, tx, &item, req.ItemRequest)
		if err != nil {
			return err
		}
		if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
			return err
		}
		if err := s.writeParts(ctx, tx, item.ID, parts); err != nil {
			return err
		}

		detail, err = s.recalculate(ctx, tx, orderID, metrics.TriggerItemAdded)
		return err
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

func (s *Service) UpdateItem(ctx context.Context, req domain.UpdateItemRequest) (domain.OrderDetail, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	var detail domain.OrderDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOrder(ctx, tx, orderID); err != nil {
			return err
		}
		item, err := s.repo.FindItem(ctx, tx, orderID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}

		parts, err := s.resolveItem(ctx, tx, item, req.ItemRequest)
		if err != nil {
			return err
		}
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		if err := s.writeParts(ctx, tx, item.ID, parts); err != nil {
			return err
		}

		detail, err = s.recalculate(ctx, tx, orderID, metrics.TriggerItemUpdated)
		return err
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

func (s *Service) DeleteItem(ctx context.Context, req domain.DeleteItemRequest) (domain.OrderDetail, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	var detail domain.OrderDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOrder(ctx, tx, orderID); err != nil {
			return err
		}
		deleted, err := s.repo.DeleteItem(ctx, tx, orderID, itemID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrItemNotFound
		}

		detail, err = s.recalculate(ctx, tx, orderID, metrics.TriggerItemDeleted)
		return err
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

func (s *Service) SetMarkup(ctx context.Context, req domain.SetMarkupRequest) (domain.OrderDetail, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if req.OrderMarkup == nil && len(req.ItemMarkups) == 0 {
		return domain.OrderDetail{}, domain.ErrEmptyUpdate
	}
	if req.OrderMarkup != nil {
		if err := pricing.CheckMarkup(*req.OrderMarkup); err != nil {
			return domain.OrderDetail{}, domain.ErrInvalidMarkup
		}
	}

	type itemMarkup struct {
		id     snowflake.ID
		markup decimal.NullDecimal
	}
	overrides := make([]itemMarkup, 0, len(req.ItemMarkups))
	for raw, markup := range req.ItemMarkups {
		id, err := parseID(raw)
		if err != nil {
			return domain.OrderDetail{}, domain.ErrItemNotFound
		}
		if markup.Valid {
			if err := pricing.CheckMarkup(markup.Decimal); err != nil {
				return domain.OrderDetail{}, domain.ErrInvalidMarkup
			}
			markup = decimal.NewNullDecimal(pricing.Round2(markup.Decimal))
		}
		overrides = append(overrides, itemMarkup{id: id, markup: markup})
	}
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].id < overrides[j].id })

	var detail domain.OrderDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOrder(ctx, tx, orderID); err != nil {
			return err
		}
		now := s.clock.Now()
		if req.OrderMarkup != nil {
			if err := s.repo.UpdateOrderMarkup(ctx, tx, orderID, pricing.Round2(*req.OrderMarkup), now); err != nil {
				return err
			}
		}
		for _, o := range overrides {
			item, err := s.repo.FindItem(ctx, tx, orderID, o.id)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrItemNotFound
			}
			if err := s.repo.UpdateItemMarkup(ctx, tx, o.id, o.markup, now); err != nil {
				return err
			}
		}

		var err error
		detail, err = s.recalculate(ctx, tx, orderID, metrics.TriggerMarkup)
		return err
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

func (s *Service) BulkAssignCoefficients(ctx context.Context, req domain.BulkCoefficientsRequest) (domain.OrderDetail, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	scope := strings.TrimSpace(req.Scope)
	if scope == "" {
		scope = domain.BulkScopeAll
	}
	if scope != domain.BulkScopeAll && scope != domain.BulkScopeSelected {
		return domain.OrderDetail{}, domain.ErrInvalidBulkScope
	}
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = domain.BulkModeAdd
	}
	if mode != domain.BulkModeAdd && mode != domain.BulkModeReplace {
		return domain.OrderDetail{}, domain.ErrInvalidBulkMode
	}
	coefficientIDs, err := parseIDs(req.CoefficientIDs, domain.ErrInvalidCoefficient)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if len(coefficientIDs) == 0 && mode == domain.BulkModeAdd {
		return domain.OrderDetail{}, domain.ErrEmptyUpdate
	}
	selectedIDs, err := parseIDs(req.ItemIDs, domain.ErrItemNotFound)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if scope == domain.BulkScopeSelected && len(selectedIDs) == 0 {
		return domain.OrderDetail{}, domain.ErrEmptyUpdate
	}

	var detail domain.OrderDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOrder(ctx, tx, orderID); err != nil {
			return err
		}

		coefficients, err := s.catalog.FindCoefficientsByIDs(ctx, tx, coefficientIDs)
		if err != nil {
			return err
		}
		if len(coefficients) != len(coefficientIDs) {
			return domain.ErrInvalidCoefficient
		}
		sort.Slice(coefficients, func(i, j int) bool { return coefficients[i].ID < coefficients[j].ID })

		items, err := s.repo.ListItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		targets, err := selectTargets(items, scope, selectedIDs)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			detail, err = s.recalculate(ctx, tx, orderID, metrics.TriggerBulkCoefficient)
			return err
		}

		productRows, err := s.repo.ListProductRows(ctx, tx, targets)
		if err != nil {
			return err
		}
		coefficientRows, err := s.repo.ListCoefficientRows(ctx, tx, targets)
		if err != nil {
			return err
		}
		selections := make(map[snowflake.ID][]pricing.SelectedProduct, len(targets))
		for _, row := range productRows {
			if row.CatalogID == nil {
				continue
			}
			selections[row.OrderItemID] = append(selections[row.OrderItemID], pricing.SelectedProduct{
				ID:         row.ProductID,
				CategoryID: row.CategoryID,
			})
		}
		existing := make(map[snowflake.ID][]snowflake.ID, len(targets))
		for _, row := range coefficientRows {
			existing[row.OrderItemID] = append(existing[row.OrderItemID], row.CoefficientID)
		}

		skipped := 0
		for _, itemID := range targets {
			sel := pricing.NewSelection(selections[itemID])
			var next []snowflake.ID
			seen := make(map[snowflake.ID]struct{})
			if mode == domain.BulkModeAdd {
				for _, id := range existing[itemID] {
					seen[id] = struct{}{}
					next = append(next, id)
				}
			}
			for _, c := range coefficients {
				if !c.Scope().Matches(sel) {
					skipped++
					continue
				}
				if _, dup := seen[c.ID]; dup {
					continue
				}
				seen[c.ID] = struct{}{}
				next = append(next, c.ID)
			}
			if err := s.repo.ReplaceItemCoefficients(ctx, tx, itemID, next); err != nil {
				return err
			}
		}

		s.log.Info("coefficients assigned",
			zap.String("order_id", orderID.String()),
			zap.String("mode", mode),
			zap.Int("items", len(targets)),
			zap.Int("skipped_not_applicable", skipped),
		)

		detail, err = s.recalculate(ctx, tx, orderID, metrics.TriggerBulkCoefficient)
		return err
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

func (s *Service) Recalculate(ctx context.Context, id string) (domain.OrderDetail, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	var detail domain.OrderDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		detail, err = s.recalculate(ctx, tx, orderID, metrics.TriggerManual)
		return err
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return detail, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orderID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.DeleteOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("order deleted", zap.String("order_id", orderID.String()))
	return nil
}

// UpdateCompletion stores the completion percent and logs a progress entry
// for today. Reaching 100 moves the order to completed.
func (s *Service) UpdateCompletion(ctx context.Context, req domain.UpdateCompletionRequest) (domain.Order, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	percent := clampPercent(req.Percent)

	var updated domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		order.CompletionPercent = percent
		if percent == 100 {
			order.Status = domain.StatusCompleted
		}
		order.UpdatedAt = now
		if err := s.repo.UpdateOrderCompletion(ctx, tx, order); err != nil {
			return err
		}
		if err := s.repo.InsertProgress(ctx, tx, &domain.Progress{
			ID:        s.genID.Generate(),
			OrderID:   orderID,
			Date:      startOfDay(now),
			Percent:   percent,
			Comment:   strings.TrimSpace(req.Comment),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated = *order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order completion updated",
		zap.String("order_id", updated.ID.String()),
		zap.Int("completion_percent", updated.CompletionPercent),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

func (s *Service) ListProgress(ctx context.Context, id string) ([]domain.Progress, error) {
	orderID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.findOrder(ctx, s.db, orderID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListProgress(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.Progress{}
	}
	return entries, nil
}

// recalculate fixes the order price if needed, revalues every current line,
// and writes the per-line and order totals. It always reads lines from tx.
func (s *Service) recalculate(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, trigger string) (domain.OrderDetail, error) {
	start := time.Now()

	snapshot, err := s.rates.SnapshotForOrder(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, ratedomain.ErrOrderNotFound) {
			return domain.OrderDetail{}, domain.ErrNotFound
		}
		return domain.OrderDetail{}, err
	}
	order, err := s.findOrder(ctx, tx, orderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	items, lines, missing, err := s.loadLines(ctx, tx, orderID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	valuations := pricing.ValueAll(lines, pricing.OrderTerms{
		PricePerUnit:  snapshot.PricePerUnit,
		MarkupPercent: order.MarkupPercent,
	})
	for i, v := range valuations {
		if err := s.repo.UpdateItemTotals(ctx, tx, items[i].ID, v.EffectiveUnits, v.FinalPrice); err != nil {
			return domain.OrderDetail{}, err
		}
		items[i].EffectiveUnits = v.EffectiveUnits
		items[i].FinalPrice = v.FinalPrice
	}

	totals := pricing.Aggregate(valuations)
	now := s.clock.Now()
	if err := s.repo.UpdateOrderTotals(ctx, tx, orderID, totals.TotalUnits, totals.TotalCost, now); err != nil {
		return domain.OrderDetail{}, err
	}
	order.TotalUnits = totals.TotalUnits
	order.TotalCost = totals.TotalCost
	order.UpdatedAt = now

	s.metrics.ObserveRecalculation(trigger, time.Since(start))
	s.log.Debug("order recalculated",
		zap.String("order_id", orderID.String()),
		zap.String("trigger", trigger),
		zap.String("total_ks", pricing.Fixed2(totals.TotalUnits)),
		zap.String("total_cost", pricing.Fixed2(totals.TotalCost)),
	)

	return s.buildDetail(ctx, tx, *order, items, valuations, snapshot.Configured, missing)
}

func (s *Service) buildDetail(
	ctx context.Context,
	db *gorm.DB,
	order domain.Order,
	items []domain.OrderItem,
	valuations []pricing.Valuation,
	configured bool,
	missing bool,
) (domain.OrderDetail, error) {
	detail := domain.OrderDetail{
		Order:      order,
		Lines:      make([]domain.Line, 0, len(items)),
		Totals:     pricing.Aggregate(valuations),
		Expression: pricing.FormatOrderExpression(valuations),
		Warnings:   []string{},
	}
	for i := range items {
		detail.Lines = append(detail.Lines, domain.Line{Item: items[i], Valuation: valuations[i]})
	}
	if !configured {
		detail.Warnings = append(detail.Warnings, domain.WarningRateNotConfigured)
	}
	if missing {
		detail.Warnings = append(detail.Warnings, domain.WarningMissingReference)
	}

	if order.CustomerID != nil {
		customer, err := s.customers.FindByID(ctx, db, *order.CustomerID)
		if err != nil {
			return domain.OrderDetail{}, err
		}
		detail.Customer = customer
	}
	return detail, nil
}

// loadLines reads the items of an order and their pairs in four queries and
// turns them into valuator input. Pairs whose catalog record is gone are
// flagged Missing so they contribute nothing.
func (s *Service) loadLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, []pricing.LineInput, bool, error) {
	items, err := s.repo.ListItems(ctx, db, orderID)
	if err != nil {
		return nil, nil, false, err
	}
	if len(items) == 0 {
		return items, []pricing.LineInput{}, false, nil
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	productRows, err := s.repo.ListProductRows(ctx, db, ids)
	if err != nil {
		return nil, nil, false, err
	}
	additionRows, err := s.repo.ListAdditionRows(ctx, db, ids)
	if err != nil {
		return nil, nil, false, err
	}
	coefficientRows, err := s.repo.ListCoefficientRows(ctx, db, ids)
	if err != nil {
		return nil, nil, false, err
	}

	missing := false
	products := make(map[snowflake.ID][]pricing.ProductLine, len(items))
	for _, row := range productRows {
		gone := row.CatalogID == nil
		if gone {
			missing = true
			s.warnMissing(orderID, row.OrderItemID, "product", row.ProductID)
		}
		products[row.OrderItemID] = append(products[row.OrderItemID], pricing.ProductLine{
			ProductID: row.ProductID,
			Name:      row.Name,
			UnitValue: pricing.FromFloat(row.BaseUnits),
			Quantity:  row.Quantity,
			Missing:   gone,
		})
	}
	additions := make(map[snowflake.ID][]pricing.AdditionLine, len(items))
	for _, row := range additionRows {
		gone := row.CatalogID == nil
		if gone {
			missing = true
			s.warnMissing(orderID, row.OrderItemID, "addition", row.AdditionID)
		}
		additions[row.OrderItemID] = append(additions[row.OrderItemID], pricing.AdditionLine{
			AdditionID: row.AdditionID,
			Name:       row.Name,
			UnitValue:  pricing.FromFloat(row.UnitValue),
			Quantity:   row.Quantity,
			Missing:    gone,
		})
	}
	coefficients := make(map[snowflake.ID][]pricing.CoefficientLine, len(items))
	for _, row := range coefficientRows {
		gone := row.CatalogID == nil
		if gone {
			missing = true
			s.warnMissing(orderID, row.OrderItemID, "coefficient", row.CoefficientID)
		}
		coefficients[row.OrderItemID] = append(coefficients[row.OrderItemID], pricing.CoefficientLine{
			CoefficientID: row.CoefficientID,
			Name:          row.Name,
			Value:         pricing.FromFloat(row.Value),
			Missing:       gone,
		})
	}

	lines := make([]pricing.LineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.LineInput{
			ItemID:        item.ID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			Products:      products[item.ID],
			Additions:     additions[item.ID],
			Coefficients:  coefficients[item.ID],
			MarkupPercent: item.MarkupPercent,
		})
	}
	return items, lines, missing, nil
}

func (s *Service) warnMissing(orderID, itemID snowflake.ID, kind string, refID snowflake.ID) {
	s.log.Warn("line references a deleted catalog record",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("kind", kind),
		zap.String("ref_id", refID.String()),
	)
}

type itemParts struct {
	products       []domain.OrderItemProduct
	additions      []domain.AdditionItem
	coefficientIDs []snowflake.ID
}

// resolveItem validates a line request against the catalog and copies the
// scalar fields onto item. Additions and coefficients must be applicable to
// the line's products.
func (s *Service) resolveItem(ctx context.Context, tx *gorm.DB, item *domain.OrderItem, req domain.ItemRequest) (itemParts, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultItemName
	}
	if len(name) > maxName {
		return itemParts{}, domain.ErrInvalidName
	}
	quantity := pricing.Round2(req.Quantity)
	if err := pricing.CheckQuantity(quantity); err != nil {
		return itemParts{}, domain.ErrInvalidQuantity
	}
	markup := req.MarkupPercent
	if markup.Valid {
		if err := pricing.CheckMarkup(markup.Decimal); err != nil {
			return itemParts{}, domain.ErrInvalidMarkup
		}
		markup = decimal.NewNullDecimal(pricing.Round2(markup.Decimal))
	}
	status := item.Status
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.ItemStatus(raw)
		if !status.Valid() {
			return itemParts{}, domain.ErrInvalidStatus
		}
	}

	var parts itemParts

	productIDs := make([]snowflake.ID, 0, len(req.Products))
	seenProducts := make(map[snowflake.ID]struct{}, len(req.Products))
	for _, p := range req.Products {
		id, err := snowflake.ParseString(strings.TrimSpace(p.ProductID))
		if err != nil {
			return itemParts{}, domain.ErrInvalidProduct
		}
		if _, dup := seenProducts[id]; dup {
			return itemParts{}, domain.ErrDuplicateProduct
		}
		qty := pricing.Round2(p.Quantity)
		if err := pricing.CheckQuantity(qty); err != nil {
			return itemParts{}, domain.ErrInvalidQuantity
		}
		seenProducts[id] = struct{}{}
		productIDs = append(productIDs, id)
		parts.products = append(parts.products, domain.OrderItemProduct{
			ID:        s.genID.Generate(),
			ProductID: id,
			Quantity:  qty,
		})
	}
	catalogProducts, err := s.catalog.FindProductsByIDs(ctx, tx, productIDs)
	if err != nil {
		return itemParts{}, err
	}
	if len(catalogProducts) != len(productIDs) {
		return itemParts{}, domain.ErrInvalidProduct
	}
	selected := make([]pricing.SelectedProduct, 0, len(catalogProducts))
	for _, p := range catalogProducts {
		selected = append(selected, p.Selected())
	}
	sel := pricing.NewSelection(selected)

	// A repeated addition becomes one pair carrying the summed quantity.
	additionIDs := make([]snowflake.ID, 0, len(req.Additions))
	additionIndex := make(map[snowflake.ID]int, len(req.Additions))
	for _, a := range req.Additions {
		id, err := snowflake.ParseString(strings.TrimSpace(a.AdditionID))
		if err != nil {
			return itemParts{}, domain.ErrInvalidAddition
		}
		qty := pricing.Round2(a.Quantity)
		if err := pricing.CheckQuantity(qty); err != nil {
			return itemParts{}, domain.ErrInvalidQuantity
		}
		if i, dup := additionIndex[id]; dup {
			parts.additions[i].Quantity = parts.additions[i].Quantity.Add(qty)
			continue
		}
		additionIndex[id] = len(parts.additions)
		additionIDs = append(additionIDs, id)
		parts.additions = append(parts.additions, domain.AdditionItem{
			ID:         s.genID.Generate(),
			AdditionID: id,
			Quantity:   qty,
		})
	}
	if len(additionIDs) > 0 {
		found, err := s.catalog.FindAdditionsByIDs(ctx, tx, additionIDs)
		if err != nil {
			return itemParts{}, err
		}
		byID := make(map[snowflake.ID]catalogdomain.Addition, len(found))
		for _, a := range found {
			byID[a.ID] = a
		}
		for _, id := range additionIDs {
			a, ok := byID[id]
			if !ok {
				return itemParts{}, domain.ErrInvalidAddition
			}
			if !a.Scope().Matches(sel) {
				return itemParts{}, domain.ErrNotApplicable
			}
		}
	}

	coefficientIDs, err := parseIDs(req.CoefficientIDs, domain.ErrInvalidCoefficient)
	if err != nil {
		return itemParts{}, err
	}
	if len(coefficientIDs) > 0 {
		found, err := s.catalog.FindCoefficientsByIDs(ctx, tx, coefficientIDs)
		if err != nil {
			return itemParts{}, err
		}
		if len(found) != len(coefficientIDs) {
			return itemParts{}, domain.ErrInvalidCoefficient
		}
		for _, c := range found {
			if !c.Scope().Matches(sel) {
				return itemParts{}, domain.ErrNotApplicable
			}
		}
	}
	parts.coefficientIDs = coefficientIDs

	item.Name = name
	item.Quantity = quantity
	item.MarkupPercent = markup
	item.Status = status
	return parts, nil
}

func (s *Service) writeParts(ctx context.Context, tx *gorm.DB, itemID snowflake.ID, parts itemParts) error {
	for i := range parts.products {
		parts.products[i].OrderItemID = itemID
	}
	for i := range parts.additions {
		parts.additions[i].OrderItemID = itemID
	}
	if err := s.repo.ReplaceItemProducts(ctx, tx, itemID, parts.products); err != nil {
		return err
	}
	if err := s.repo.ReplaceItemAdditions(ctx, tx, itemID, parts.additions); err != nil {
		return err
	}
	return s.repo.ReplaceItemCoefficients(ctx, tx, itemID, parts.coefficientIDs)
}

func (s *Service) findOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) resolveCustomer(ctx context.Context, tx *gorm.DB, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidCustomer
	}
	customer, err := s.customers.FindByID(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if customer == nil {
		return 0, domain.ErrInvalidCustomer
	}
	return id, nil
}

func selectTargets(items []domain.OrderItem, scope string, selected []snowflake.ID) ([]snowflake.ID, error) {
	if scope == domain.BulkScopeAll {
		out := make([]snowflake.ID, 0, len(items))
		for _, item := range items {
			out = append(out, item.ID)
		}
		return out, nil
	}

	owned := make(map[snowflake.ID]struct{}, len(items))
	for _, item := range items {
		owned[item.ID] = struct{}{}
	}
	for _, id := range selected {
		if _, ok := owned[id]; !ok {
			return nil, domain.ErrItemNotFound
		}
	}
	return selected, nil
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// parseIDs parses and dedupes ids, keeping first-seen order.
func parseIDs(raw []string, invalid error) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(raw))
	seen := make(map[snowflake.ID]struct{}, len(raw))
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
