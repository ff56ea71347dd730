package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const orderColumns = `id, order_number, order_name, customer_id, status, finance_status, work_type,
	price_per_ks, markup_percent, total_ks, total_cost, completion_percent, metadata, created_at, updated_at`

func (r *repo) InsertOrder(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.OrderNumber,
		order.OrderName,
		order.CustomerID,
		order.Status,
		order.FinanceStatus,
		order.WorkType,
		order.PricePerUnit,
		order.MarkupPercent,
		order.TotalUnits,
		order.TotalCost,
		order.CompletionPercent,
		order.Metadata,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindOrderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListOrders(ctx context.Context, db *gorm.DB, filter domain.ListOrderFilter, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.WorkType != "" {
		stmt = stmt.Where("work_type = ?", filter.WorkType)
	}
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("(LOWER(order_number) LIKE ? OR LOWER(order_name) LIKE ?)", like, like)
	}
	if filter.AfterCreatedAt != nil {
		stmt = stmt.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			*filter.AfterCreatedAt, *filter.AfterCreatedAt, filter.AfterID)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) UpdateOrderStatus(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, finance_status = ?, updated_at = ? WHERE id = ?`,
		order.Status,
		order.FinanceStatus,
		order.UpdatedAt,
		order.ID,
	).Error
}

func (r *repo) UpdateOrderCustomer(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID *snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET customer_id = ?, updated_at = ? WHERE id = ?`,
		customerID,
		at,
		id,
	).Error
}

func (r *repo) UpdateOrderMarkup(ctx context.Context, db *gorm.DB, id snowflake.ID, markup decimal.Decimal, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET markup_percent = ?, updated_at = ? WHERE id = ?`,
		markup,
		at,
		id,
	).Error
}

func (r *repo) UpdateOrderTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, totalUnits, totalCost decimal.Decimal, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET total_ks = ?, total_cost = ?, updated_at = ? WHERE id = ?`,
		totalUnits,
		totalCost,
		at,
		id,
	).Error
}

func (r *repo) UpdateOrderCompletion(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET completion_percent = ?, status = ?, updated_at = ? WHERE id = ?`,
		order.CompletionPercent,
		order.Status,
		order.UpdatedAt,
		order.ID,
	).Error
}

func (r *repo) DeleteOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	// Children go explicitly; not every dialect enforces the cascade.
	for _, table := range []string{"order_item_products", "addition_items", "order_item_coefficients"} {
		err := db.WithContext(ctx).Exec(
			`DELETE FROM `+table+` WHERE order_item_id IN (SELECT id FROM order_items WHERE order_id = ?)`,
			id,
		).Error
		if err != nil {
			return false, err
		}
	}
	for _, table := range []string{"order_items", "order_progress"} {
		if err := db.WithContext(ctx).Exec(`DELETE FROM `+table+` WHERE order_id = ?`, id).Error; err != nil {
			return false, err
		}
	}

	res := db.WithContext(ctx).Exec(`DELETE FROM orders WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListOrdersCreatedBetween(ctx context.Context, db *gorm.DB, from, to *time.Time) ([]domain.Order, error) {
	var orders []domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if from != nil {
		stmt = stmt.Where("created_at >= ?", *from)
	}
	if to != nil {
		stmt = stmt.Where("created_at < ?", *to)
	}
	if err := stmt.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

const progressColumns = `id, order_id, progress_date, percent, comment, created_at`

func (r *repo) InsertProgress(ctx context.Context, db *gorm.DB, progress *domain.Progress) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		progress.ID,
		progress.OrderID,
		progress.Date,
		progress.Percent,
		progress.Comment,
		progress.CreatedAt,
	).Error
}

func (r *repo) ListProgress(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Progress, error) {
	var entries []domain.Progress
	err := db.WithContext(ctx).Raw(
		`SELECT `+progressColumns+` FROM order_progress
		 WHERE order_id = ?
		 ORDER BY progress_date DESC, created_at DESC, id DESC`,
		orderID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) LatestProgress(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID, day time.Time) (map[snowflake.ID]domain.Progress, error) {
	out := make(map[snowflake.ID]domain.Progress, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var entries []domain.Progress
	err := db.WithContext(ctx).Raw(
		`SELECT `+progressColumns+` FROM order_progress
		 WHERE order_id IN ? AND progress_date <= ?
		 ORDER BY order_id ASC, progress_date DESC, created_at DESC, id DESC`,
		orderIDs,
		day,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, seen := out[e.OrderID]; !seen {
			out[e.OrderID] = e
		}
	}
	return out, nil
}

const itemColumns = `id, order_id, name, quantity, markup_percent, status, effective_units, final_price, created_at, updated_at`

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.OrderItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OrderID,
		item.Name,
		item.Quantity,
		item.MarkupPercent,
		item.Status,
		item.EffectiveUnits,
		item.FinalPrice,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, item *domain.OrderItem) error {
	return db.WithContext(ctx).Exec(
		`UPDATE order_items SET name = ?, quantity = ?, markup_percent = ?, status = ?, updated_at = ?
		 WHERE id = ? AND order_id = ?`,
		item.Name,
		item.Quantity,
		item.MarkupPercent,
		item.Status,
		item.UpdatedAt,
		item.ID,
		item.OrderID,
	).Error
}

func (r *repo) UpdateItemMarkup(ctx context.Context, db *gorm.DB, itemID snowflake.ID, markup decimal.NullDecimal, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE order_items SET markup_percent = ?, updated_at = ? WHERE id = ?`,
		markup,
		at,
		itemID,
	).Error
}

func (r *repo) UpdateItemTotals(ctx context.Context, db *gorm.DB, itemID snowflake.ID, effectiveUnits, finalPrice decimal.Decimal) error {
	return db.WithContext(ctx).Exec(
		`UPDATE order_items SET effective_units = ?, final_price = ? WHERE id = ?`,
		effectiveUnits,
		finalPrice,
		itemID,
	).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM order_items WHERE id = ? AND order_id = ?`,
		itemID,
		orderID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	// Children go explicitly; not every dialect enforces the cascade.
	for _, table := range []string{"order_item_products", "addition_items", "order_item_coefficients"} {
		if err := db.WithContext(ctx).Exec(`DELETE FROM `+table+` WHERE order_item_id = ?`, itemID).Error; err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM order_items WHERE id = ? AND order_id = ?`,
		itemID,
		orderID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ReplaceItemProducts(ctx context.Context, db *gorm.DB, itemID snowflake.ID, pairs []domain.OrderItemProduct) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM order_item_products WHERE order_item_id = ?`, itemID).Error; err != nil {
		return err
	}
	for _, pair := range pairs {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_item_products (id, order_item_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
			pair.ID,
			itemID,
			pair.ProductID,
			pair.Quantity,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ReplaceItemAdditions(ctx context.Context, db *gorm.DB, itemID snowflake.ID, pairs []domain.AdditionItem) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM addition_items WHERE order_item_id = ?`, itemID).Error; err != nil {
		return err
	}
	for _, pair := range pairs {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO addition_items (id, order_item_id, addition_id, quantity) VALUES (?, ?, ?, ?)`,
			pair.ID,
			itemID,
			pair.AdditionID,
			pair.Quantity,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ReplaceItemCoefficients(ctx context.Context, db *gorm.DB, itemID snowflake.ID, coefficientIDs []snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM order_item_coefficients WHERE order_item_id = ?`, itemID).Error; err != nil {
		return err
	}
	for _, id := range coefficientIDs {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_item_coefficients (order_item_id, coefficient_id) VALUES (?, ?)`,
			itemID,
			id,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListProductRows(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) ([]domain.ItemProductRow, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var rows []domain.ItemProductRow
	err := db.WithContext(ctx).Raw(
		`SELECT oip.id, oip.order_item_id, oip.product_id, oip.quantity,
		        p.id AS catalog_id, p.category_id,
		        COALESCE(p.name, '') AS name, COALESCE(p.base_units, 0) AS base_units
		 FROM order_item_products oip
		 LEFT JOIN products p ON p.id = oip.product_id
		 WHERE oip.order_item_id IN ?
		 ORDER BY oip.order_item_id ASC, oip.id ASC`,
		itemIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListAdditionRows(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) ([]domain.ItemAdditionRow, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var rows []domain.ItemAdditionRow
	err := db.WithContext(ctx).Raw(
		`SELECT ai.id, ai.order_item_id, ai.addition_id, ai.quantity,
		        a.id AS catalog_id,
		        COALESCE(a.name, '') AS name, COALESCE(a.unit_value, 0) AS unit_value
		 FROM addition_items ai
		 LEFT JOIN additions a ON a.id = ai.addition_id
		 WHERE ai.order_item_id IN ?
		 ORDER BY ai.order_item_id ASC, ai.id ASC`,
		itemIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListCoefficientRows(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) ([]domain.ItemCoefficientRow, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var rows []domain.ItemCoefficientRow
	err := db.WithContext(ctx).Raw(
		`SELECT oic.order_item_id, oic.coefficient_id,
		        c.id AS catalog_id,
		        COALESCE(c.name, '') AS name, COALESCE(c.value, 1) AS value
		 FROM order_item_coefficients oic
		 LEFT JOIN coefficients c ON c.id = oic.coefficient_id
		 WHERE oic.order_item_id IN ?
		 ORDER BY oic.order_item_id ASC, COALESCE(c.name, '') ASC, oic.coefficient_id ASC`,
		itemIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
