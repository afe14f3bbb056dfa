package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const productColumns = `id, store_id, sku, name, description, price, stock_quantity, is_active, created_at, updated_at`

func (r *postgresRepo) CreateProduct(ctx context.Context, p *Product) error {
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO products (id, store_id, sku, name, description, price, stock_quantity, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		p.ID, p.StoreID, p.SKU, p.Name, p.Description, p.Price, p.StockQuantity, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperror.Conflict("sku %q already exists in store %s", p.SKU, p.StoreID)
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("product %s not found", id)
	}
	return p, err
}

func (r *postgresRepo) UpdateProduct(ctx context.Context, p *Product) error {
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE products
		SET name=$2, description=$3, price=$4, stock_quantity=$5, is_active=$6, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.IsActive,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("product %s not found", p.ID)
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *postgresRepo) ListProducts(ctx context.Context, storeID uuid.UUID, activeOnly bool) ([]*Product, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE store_id=$1 AND (is_active OR NOT $2)
		ORDER BY name, id`, storeID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanProduct(row scanner) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.StoreID, &p.SKU, &p.Name, &p.Description, &p.Price,
		&p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}
