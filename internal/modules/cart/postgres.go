package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) UpsertItem(ctx context.Context, item *Item) error {
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, quantity, created_at, updated_at`,
		item.ID, item.UserID, item.ProductID, item.Quantity,
	).Scan(&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetItem(ctx context.Context, userID, productID uuid.UUID) (*Item, error) {
	item := &Item{}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, user_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("product %s is not in the cart", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return item, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE cart_items SET quantity=$3, updated_at=NOW()
		WHERE user_id=$1 AND product_id=$2`, userID, productID, qty)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("product %s is not in the cart", productID)
	}
	return nil
}

func (r *postgresRepo) DeleteItem(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

const lineSelect = `
	SELECT ci.id, ci.product_id, p.store_id, ci.quantity, p.name, p.price, p.is_active, s.status
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	JOIN stores s ON s.id = p.store_id`

func (r *postgresRepo) ListLines(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	return r.queryLines(ctx, lineSelect+`
		WHERE ci.user_id=$1
		ORDER BY p.store_id, ci.product_id`, userID)
}

func (r *postgresRepo) LockStoreLines(ctx context.Context, userID, storeID uuid.UUID) ([]Line, error) {
	return r.queryLines(ctx, lineSelect+`
		WHERE ci.user_id=$1 AND p.store_id=$2
		ORDER BY ci.product_id
		FOR UPDATE OF ci`, userID, storeID)
}

func (r *postgresRepo) DeleteItems(ctx context.Context, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = id.String()
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

func (r *postgresRepo) queryLines(ctx context.Context, query string, args ...any) ([]Line, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ItemID, &l.ProductID, &l.StoreID, &l.Quantity, &l.ProductName,
			&l.UnitPrice, &l.ProductActive, &l.StoreStatus); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
