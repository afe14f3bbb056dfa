package cart

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines cart storage.
type Repository interface {
	// UpsertItem inserts the row or adds its quantity to the existing (user, product) row.
	UpsertItem(ctx context.Context, item *Item) error

	// GetItem returns NotFound when the product is not in the cart.
	GetItem(ctx context.Context, userID, productID uuid.UUID) (*Item, error)

	SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	DeleteItem(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error

	// ListLines returns every cart row of the user joined to product and store.
	ListLines(ctx context.Context, userID uuid.UUID) ([]Line, error)

	// LockStoreLines returns the user's rows for one store and locks them until
	// the surrounding transaction ends.
	LockStoreLines(ctx context.Context, userID, storeID uuid.UUID) ([]Line, error)

	// DeleteItems removes exactly the given cart rows.
	DeleteItems(ctx context.Context, itemIDs []uuid.UUID) error
}
