package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) LockProduct(ctx context.Context, productID uuid.UUID) (*product.Product, error) {
	p := &product.Product{}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, store_id, sku, name, price, stock_quantity, is_active
		FROM products WHERE id=$1
		FOR UPDATE`, productID,
	).Scan(&p.ID, &p.StoreID, &p.SKU, &p.Name, &p.Price, &p.StockQuantity, &p.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("product %s not found", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (r *postgresRepo) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (int, bool, error) {
	conn := database.Conn(ctx, r.db)
	var remaining int
	err := conn.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2
		RETURNING stock_quantity`, productID, qty,
	).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("decrement stock: %w", err)
	}

	err = conn.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id=$1`, productID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, apperror.NotFound("product %s not found", productID)
	}
	if err != nil {
		return 0, false, fmt.Errorf("read stock: %w", err)
	}
	return remaining, false, nil
}

func (r *postgresRepo) Increment(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	var remaining int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING stock_quantity`, productID, qty,
	).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperror.NotFound("product %s not found", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("release stock: %w", err)
	}
	return remaining, nil
}
