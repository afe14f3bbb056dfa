package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) AccumulateGroup(ctx context.Context, g *Group, amount decimal.Decimal) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO order_groups (id, user_id, group_number, total_amount, payment_status)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE
		SET total_amount = order_groups.total_amount + EXCLUDED.total_amount, updated_at = NOW()`,
		g.ID, g.UserID, g.GroupNumber, amount, g.PaymentStatus)
	if err != nil {
		return fmt.Errorf("accumulate order group: %w", err)
	}
	return nil
}

// CreateOrder inserts the order and its items on the caller's transaction.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}

	conn := database.Conn(ctx, r.db)
	_, err = conn.ExecContext(ctx, `
		INSERT INTO orders
		  (id, group_id, user_id, store_id, order_number, status,
		   subtotal, tax, shipping, discount, total, shipping_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.GroupID, o.UserID, o.StoreID, o.OrderNumber, o.Status,
		o.Subtotal, o.Tax, o.Shipping, o.Discount, o.Total, addr)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = conn.ExecContext(ctx, `
			INSERT INTO order_items
			  (id, order_id, product_id, product_name, sku, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			item.ID, o.ID, item.ProductID, item.ProductName, item.SKU,
			item.Quantity, item.UnitPrice, item.LineTotal)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}
	return nil
}

func (r *postgresRepo) GetGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	g := &Group{}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, user_id, group_number, total_amount, payment_status, created_at, updated_at
		FROM order_groups WHERE id=$1`, id,
	).Scan(&g.ID, &g.UserID, &g.GroupNumber, &g.TotalAmount, &g.PaymentStatus, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("order group %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order group: %w", err)
	}
	return g, nil
}

const orderColumns = `id, group_id, user_id, store_id, order_number, status,
	subtotal, tax, shipping, discount, total, shipping_address, created_at, updated_at`

func (r *postgresRepo) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *postgresRepo) LockOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (r *postgresRepo) ListOrdersByGroup(ctx context.Context, groupID uuid.UUID) ([]*Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE group_id=$1 ORDER BY store_id`, groupID)
}

func (r *postgresRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepo) ListOrdersByStore(ctx context.Context, storeID uuid.UUID, status OrderStatus) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE store_id=$1`
	args := []interface{}{storeID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, args...)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("order %s not found", id)
	}
	return nil
}

func (r *postgresRepo) SetPaymentStatus(ctx context.Context, groupID uuid.UUID, status PaymentStatus) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE order_groups SET payment_status=$1, updated_at=NOW() WHERE id=$2`, status, groupID)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("order group %s not found", groupID)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type scanner interface{ Scan(dest ...any) error }

func scanOrder(row scanner) (*Order, error) {
	o := &Order{}
	var addr []byte
	err := row.Scan(
		&o.ID, &o.GroupID, &o.UserID, &o.StoreID, &o.OrderNumber, &o.Status,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Discount, &o.Total, &addr,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return o, nil
}

func (r *postgresRepo) getOrder(ctx context.Context, query string, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.Items, err = r.listItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*Order, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Items, err = r.listItems(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]*Item, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, sku, quantity, unit_price, line_total, created_at
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.SKU,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
