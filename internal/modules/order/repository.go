package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines data access for order groups and orders.
type Repository interface {
	// AccumulateGroup inserts the group on first use and adds amount to its
	// total. Each store's transaction calls it, so the stored total only ever
	// reflects committed orders.
	AccumulateGroup(ctx context.Context, g *Group, amount decimal.Decimal) error

	// CreateOrder persists an order and all its items.
	CreateOrder(ctx context.Context, o *Order) error

	// GetGroup retrieves a group without its orders.
	GetGroup(ctx context.Context, id uuid.UUID) (*Group, error)

	// GetOrder retrieves an order with its items.
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)

	// LockOrder is GetOrder holding a row lock until the transaction ends.
	LockOrder(ctx context.Context, id uuid.UUID) (*Order, error)

	ListOrdersByGroup(ctx context.Context, groupID uuid.UUID) ([]*Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// ListOrdersByStore returns a store's orders, optionally filtered by status.
	ListOrdersByStore(ctx context.Context, storeID uuid.UUID, status OrderStatus) ([]*Order, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
	SetPaymentStatus(ctx context.Context, groupID uuid.UUID, status PaymentStatus) error
}
