// Package inventory is the stock ledger: the only code path that changes a
// product's stock during settlement.
package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
	"github.com/georgemunganga/markethub-backend/internal/platform/metrics"
)

// Reservation is a successful decrement. UnitPrice is the price read under the
// row lock and is what the order line records.
type Reservation struct {
	ProductID uuid.UUID       `json:"product_id"`
	StoreID   uuid.UUID       `json:"store_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Remaining int             `json:"remaining"`
}

// Repository defines the row-locked stock operations.
type Repository interface {
	// LockProduct reads the product row and holds a row lock until the
	// surrounding transaction ends.
	LockProduct(ctx context.Context, productID uuid.UUID) (*product.Product, error)

	// DecrementIfAvailable subtracts qty only when stock >= qty. ok is false when
	// it did not; remaining is the stock after the statement either way.
	DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (remaining int, ok bool, err error)

	// Increment adds qty back and returns the new stock.
	Increment(ctx context.Context, productID uuid.UUID, qty int) (int, error)
}

type Ledger struct {
	repo    Repository
	tx      database.TxManager
	metrics *metrics.Metrics
}

func NewLedger(repo Repository, tx database.TxManager, m *metrics.Metrics) *Ledger {
	return &Ledger{repo: repo, tx: tx, metrics: m}
}

// ReserveAndDecrement takes qty units of productID. It joins the caller's
// transaction when ctx carries one, so a later failure in the same store rolls
// the decrement back.
func (l *Ledger) ReserveAndDecrement(ctx context.Context, productID uuid.UUID, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, apperror.Invalid("quantity must be positive, got %d", qty)
	}

	var res Reservation
	err := l.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := l.repo.LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return apperror.InvalidState("product %s is no longer available", productID)
		}
		if p.StockQuantity < qty {
			return apperror.InsufficientStock(productID.String(), p.StockQuantity)
		}

		remaining, ok, err := l.repo.DecrementIfAvailable(ctx, productID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.InsufficientStock(productID.String(), remaining)
		}

		res = Reservation{
			ProductID: p.ID,
			StoreID:   p.StoreID,
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  qty,
			UnitPrice: p.Price,
			Remaining: remaining,
		}
		return nil
	})

	switch {
	case err == nil:
		l.metrics.StockDecrement("ok")
	case errors.Is(err, apperror.ErrInsufficientStock):
		l.metrics.StockDecrement("insufficient")
	default:
		l.metrics.StockDecrement("error")
	}
	if err != nil {
		return Reservation{}, err
	}
	return res, nil
}

// Release returns qty units to stock, used when an order is cancelled.
func (l *Ledger) Release(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return apperror.Invalid("quantity must be positive, got %d", qty)
	}
	remaining, err := l.repo.Increment(ctx, productID, qty)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Debug("stock_released",
		zap.String("product_id", productID.String()),
		zap.Int("quantity", qty),
		zap.Int("remaining", remaining),
	)
	return nil
}
