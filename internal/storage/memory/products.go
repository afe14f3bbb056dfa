package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/inventory"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
)

var (
	_ product.Repository   = (*Store)(nil)
	_ inventory.Repository = (*Store)(nil)
)

func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	for _, r := range s.t.products {
		if r.val.StoreID == p.StoreID && r.val.SKU == p.SKU {
			return apperror.Conflict("sku %q already exists in store %s", p.SKU, p.StoreID)
		}
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.t.products[p.ID] = record[product.Product]{seq: s.next(), val: *p}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.product(id)
}

func (s *Store) UpdateProduct(ctx context.Context, p *product.Product) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	r, ok := s.t.products[p.ID]
	if !ok {
		return apperror.NotFound("product %s not found", p.ID)
	}
	p.UpdatedAt = s.now()
	r.val.Name = p.Name
	r.val.Description = p.Description
	r.val.Price = p.Price
	r.val.StockQuantity = p.StockQuantity
	r.val.IsActive = p.IsActive
	r.val.UpdatedAt = p.UpdatedAt
	s.t.products[p.ID] = r
	return nil
}

// ListProducts returns the store's products ordered by name, then ID.
func (s *Store) ListProducts(ctx context.Context, storeID uuid.UUID, activeOnly bool) ([]*product.Product, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []*product.Product
	for _, r := range s.t.products {
		if r.val.StoreID != storeID || (activeOnly && !r.val.IsActive) {
			continue
		}
		p := r.val
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

// ── stock ────────────────────────────────────────────────────────────────────

// LockProduct reads the product. Inside a transaction the store lock already
// excludes every other writer.
func (s *Store) LockProduct(ctx context.Context, productID uuid.UUID) (*product.Product, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.product(productID)
}

func (s *Store) DecrementIfAvailable(ctx context.Context, productID uuid.UUID, qty int) (int, bool, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return 0, false, err
	}
	defer release()

	r, ok := s.t.products[productID]
	if !ok {
		return 0, false, apperror.NotFound("product %s not found", productID)
	}
	if r.val.StockQuantity < qty {
		return r.val.StockQuantity, false, nil
	}
	r.val.StockQuantity -= qty
	r.val.UpdatedAt = s.now()
	s.t.products[productID] = r
	return r.val.StockQuantity, true, nil
}

func (s *Store) Increment(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	r, ok := s.t.products[productID]
	if !ok {
		return 0, apperror.NotFound("product %s not found", productID)
	}
	r.val.StockQuantity += qty
	r.val.UpdatedAt = s.now()
	s.t.products[productID] = r
	return r.val.StockQuantity, nil
}

func (s *Store) product(id uuid.UUID) (*product.Product, error) {
	r, ok := s.t.products[id]
	if !ok {
		return nil, apperror.NotFound("product %s not found", id)
	}
	p := r.val
	return &p, nil
}
