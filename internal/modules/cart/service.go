package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

// Authorizer checks a capability and returns a Denied error when it is absent.
type Authorizer interface {
	Authorize(ctx context.Context, userID, storeID uuid.UUID, c permission.Capability) error
}

// Service defines cart mutations and the grouped cart view.
type Service interface {
	// AddItem adds qty of a product, merging with an existing row.
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*Item, error)

	// UpdateQuantity sets the quantity; zero or less removes the row.
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error

	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error

	View(ctx context.Context, userID uuid.UUID) (*Grouped, error)
}

type service struct {
	repo       Repository
	aggregator *Aggregator
	products   product.Repository
	stores     store.Repository
	authz      Authorizer
	tx         database.TxManager
}

// NewService creates a new cart service.
func NewService(repo Repository, aggregator *Aggregator, products product.Repository, stores store.Repository,
	authz Authorizer, tx database.TxManager) Service {
	return &service{repo: repo, aggregator: aggregator, products: products, stores: stores, authz: authz, tx: tx}
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*Item, error) {
	if qty <= 0 {
		return nil, apperror.Invalid("quantity must be positive, got %d", qty)
	}

	item := &Item{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: qty}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.purchasable(ctx, userID, productID)
		if err != nil {
			return err
		}

		inCart := 0
		existing, err := s.repo.GetItem(ctx, userID, productID)
		switch {
		case err == nil:
			inCart = existing.Quantity
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}
		if inCart+qty > p.StockQuantity {
			return apperror.InsufficientStock(productID.String(), p.StockQuantity)
		}
		return s.repo.UpsertItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.purchasable(ctx, userID, productID)
		if err != nil {
			return err
		}
		if qty > p.StockQuantity {
			return apperror.InsufficientStock(productID.String(), p.StockQuantity)
		}
		return s.repo.SetQuantity(ctx, userID, productID, qty)
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return s.repo.DeleteItem(ctx, userID, productID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.repo.Clear(ctx, userID)
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*Grouped, error) {
	return s.aggregator.GroupByStore(ctx, userID)
}

// purchasable loads the product and checks that it can go into the cart.
func (s *service) purchasable(ctx context.Context, userID, productID uuid.UUID) (*product.Product, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	st, err := s.stores.GetStore(ctx, p.StoreID)
	if err != nil {
		return nil, err
	}
	if st.Status != store.StatusActive {
		return nil, apperror.InvalidState("store %s is %s", st.ID, st.Status)
	}
	if !p.IsActive {
		return nil, apperror.InvalidState("product %s is no longer available", productID)
	}
	if err := s.authz.Authorize(ctx, userID, p.StoreID, permission.AddToCart); err != nil {
		return nil, err
	}
	return p, nil
}
