package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/cart"
)

var _ cart.Repository = (*Store)(nil)

// UpsertItem merges into the existing (user, product) row and writes the
// stored row back into item.
func (s *Store) UpsertItem(ctx context.Context, item *cart.Item) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	now := s.now()
	if id, ok := s.cartItemID(item.UserID, item.ProductID); ok {
		r := s.t.cartItems[id]
		r.val.Quantity += item.Quantity
		r.val.UpdatedAt = now
		s.t.cartItems[id] = r
		*item = r.val
		return nil
	}
	item.CreatedAt, item.UpdatedAt = now, now
	s.t.cartItems[item.ID] = record[cart.Item]{seq: s.next(), val: *item}
	return nil
}

func (s *Store) GetItem(ctx context.Context, userID, productID uuid.UUID) (*cart.Item, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	id, ok := s.cartItemID(userID, productID)
	if !ok {
		return nil, apperror.NotFound("product %s is not in the cart", productID)
	}
	item := s.t.cartItems[id].val
	return &item, nil
}

func (s *Store) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	id, ok := s.cartItemID(userID, productID)
	if !ok {
		return apperror.NotFound("product %s is not in the cart", productID)
	}
	r := s.t.cartItems[id]
	r.val.Quantity = qty
	r.val.UpdatedAt = s.now()
	s.t.cartItems[id] = r
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, userID, productID uuid.UUID) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if id, ok := s.cartItemID(userID, productID); ok {
		delete(s.t.cartItems, id)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	for id, r := range s.t.cartItems {
		if r.val.UserID == userID {
			delete(s.t.cartItems, id)
		}
	}
	return nil
}

// ListLines joins the user's rows to product and store, ordered by store then product.
func (s *Store) ListLines(ctx context.Context, userID uuid.UUID) ([]cart.Line, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	lines := s.lines(userID, nil)
	cart.SortLines(lines)
	return lines, nil
}

func (s *Store) LockStoreLines(ctx context.Context, userID, storeID uuid.UUID) ([]cart.Line, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	lines := s.lines(userID, &storeID)
	cart.SortLines(lines)
	return lines, nil
}

func (s *Store) DeleteItems(ctx context.Context, itemIDs []uuid.UUID) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	for _, id := range itemIDs {
		delete(s.t.cartItems, id)
	}
	return nil
}

func (s *Store) cartItemID(userID, productID uuid.UUID) (uuid.UUID, bool) {
	for id, r := range s.t.cartItems {
		if r.val.UserID == userID && r.val.ProductID == productID {
			return id, true
		}
	}
	return uuid.Nil, false
}

// lines is the inner join of cart_items, products and stores, optionally for one store.
func (s *Store) lines(userID uuid.UUID, storeID *uuid.UUID) []cart.Line {
	var rows []record[cart.Item]
	for _, r := range s.t.cartItems {
		if r.val.UserID == userID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	var lines []cart.Line
	for _, r := range rows {
		p, ok := s.t.products[r.val.ProductID]
		if !ok {
			continue
		}
		if storeID != nil && p.val.StoreID != *storeID {
			continue
		}
		st, ok := s.t.stores[p.val.StoreID]
		if !ok {
			continue
		}
		lines = append(lines, cart.Line{
			ItemID:        r.val.ID,
			ProductID:     p.val.ID,
			StoreID:       p.val.StoreID,
			Quantity:      r.val.Quantity,
			ProductName:   p.val.Name,
			UnitPrice:     p.val.Price,
			ProductActive: p.val.IsActive,
			StoreStatus:   st.val.Status,
		})
	}
	return lines
}
