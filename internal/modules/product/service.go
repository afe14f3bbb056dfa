package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
)

// Authorizer checks a capability and returns a Denied error when it is absent.
type Authorizer interface {
	Authorize(ctx context.Context, userID, storeID uuid.UUID, c permission.Capability) error
}

// Service defines product listing business logic.
type Service interface {
	CreateProduct(ctx context.Context, actorID, storeID uuid.UUID, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, actorID, id uuid.UUID) (*Product, error)
	// ListProducts lists active products; includeInactive additionally requires EditProducts.
	ListProducts(ctx context.Context, actorID, storeID uuid.UUID, includeInactive bool) ([]*Product, error)

	// UpdateProduct changes a listing. Price changes never touch existing order items.
	UpdateProduct(ctx context.Context, actorID, id uuid.UUID, req UpdateProductRequest) (*Product, error)

	// DeleteProduct deactivates the listing; the row stays for order history.
	DeleteProduct(ctx context.Context, actorID, id uuid.UUID) error
}

type service struct {
	repo  Repository
	authz Authorizer
	tx    database.TxManager
}

// NewService creates a new product service.
func NewService(repo Repository, authz Authorizer, tx database.TxManager) Service {
	return &service{repo: repo, authz: authz, tx: tx}
}

func (s *service) CreateProduct(ctx context.Context, actorID, storeID uuid.UUID, req CreateProductRequest) (*Product, error) {
	sku := strings.TrimSpace(req.SKU)
	name := strings.TrimSpace(req.Name)
	if sku == "" || name == "" {
		return nil, apperror.Invalid("sku and name are required")
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if req.StockQuantity < 0 {
		return nil, apperror.Invalid("stock_quantity must not be negative")
	}

	p := &Product{
		ID:            uuid.New(),
		StoreID:       storeID,
		SKU:           sku,
		Name:          name,
		Description:   req.Description,
		Price:         req.Price.Round(2),
		StockQuantity: req.StockQuantity,
		IsActive:      true,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.authz.Authorize(ctx, actorID, storeID, permission.CreateProducts); err != nil {
			return err
		}
		return s.repo.CreateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("product_created",
		zap.String("product_id", p.ID.String()),
		zap.String("store_id", storeID.String()),
	)
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, actorID, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actorID, p.StoreID, permission.ViewProducts); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) ListProducts(ctx context.Context, actorID, storeID uuid.UUID, includeInactive bool) ([]*Product, error) {
	required := permission.ViewProducts
	if includeInactive {
		required = permission.EditProducts
	}
	if err := s.authz.Authorize(ctx, actorID, storeID, required); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, storeID, !includeInactive)
}

func (s *service) UpdateProduct(ctx context.Context, actorID, id uuid.UUID, req UpdateProductRequest) (*Product, error) {
	var p *Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.repo.GetProduct(ctx, id); err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, actorID, p.StoreID, permission.EditProducts); err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Invalid("name must not be empty")
			}
			p.Name = name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Price != nil {
			if err := validatePrice(*req.Price); err != nil {
				return err
			}
			p.Price = req.Price.Round(2)
		}
		if req.StockQuantity != nil {
			if *req.StockQuantity < 0 {
				return apperror.Invalid("stock_quantity must not be negative")
			}
			p.StockQuantity = *req.StockQuantity
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		return s.repo.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, actorID, id uuid.UUID) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, actorID, p.StoreID, permission.DeleteProducts); err != nil {
			return err
		}
		if !p.IsActive {
			return nil
		}
		p.IsActive = false
		return s.repo.UpdateProduct(ctx, p)
	})
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperror.Invalid("price must be positive")
	}
	if !price.Equal(price.Round(2)) {
		return apperror.Invalid("price %s has more than two decimal places", price)
	}
	return nil
}
