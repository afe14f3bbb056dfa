package product

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines product data storage.
type Repository interface {
	// CreateProduct inserts a product; a SKU already used in the store yields a Conflict.
	CreateProduct(ctx context.Context, p *Product) error

	// GetProduct returns NotFound for an unknown ID.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// UpdateProduct persists name, description, price, stock and the active flag.
	UpdateProduct(ctx context.Context, p *Product) error

	// ListProducts returns the store's products ordered by name.
	ListProducts(ctx context.Context, storeID uuid.UUID, activeOnly bool) ([]*Product, error)
}
