package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/order"
)

var _ order.Repository = (*Store)(nil)

// AccumulateGroup inserts the group on first use and adds amount to the stored
// total. g itself is not modified.
func (s *Store) AccumulateGroup(ctx context.Context, g *order.Group, amount decimal.Decimal) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	now := s.now()
	if r, ok := s.t.groups[g.ID]; ok {
		r.val.TotalAmount = r.val.TotalAmount.Add(amount)
		r.val.UpdatedAt = now
		s.t.groups[g.ID] = r
		return nil
	}
	for _, r := range s.t.groups {
		if r.val.GroupNumber == g.GroupNumber {
			return apperror.Conflict("group number %s already exists", g.GroupNumber)
		}
	}
	row := *g
	row.Orders = nil
	row.TotalAmount = amount
	row.CreatedAt, row.UpdatedAt = now, now
	s.t.groups[g.ID] = record[order.Group]{seq: s.next(), val: row}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	for _, r := range s.t.orders {
		if r.val.OrderNumber == o.OrderNumber {
			return apperror.Conflict("order number %s already exists", o.OrderNumber)
		}
	}
	row := *o
	row.Items = nil
	s.t.orders[o.ID] = record[order.Order]{seq: s.next(), val: row}

	items := make([]order.Item, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return lessID(items[i].ProductID, items[j].ProductID) })
	s.t.orderItems[o.ID] = items
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (*order.Group, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := s.t.groups[id]
	if !ok {
		return nil, apperror.NotFound("order group %s not found", id)
	}
	g := r.val
	return &g, nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.order(id)
}

func (s *Store) LockOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.GetOrder(ctx, id)
}

// ListOrdersByGroup returns the group's orders in ascending store ID order.
func (s *Store) ListOrdersByGroup(ctx context.Context, groupID uuid.UUID) ([]*order.Order, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	out := s.filterOrders(func(o order.Order) bool { return o.GroupID == groupID })
	sort.SliceStable(out, func(i, j int) bool { return lessID(out[i].StoreID, out[j].StoreID) })
	return out, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*order.Order, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.filterOrders(func(o order.Order) bool { return o.UserID == userID }), nil
}

func (s *Store) ListOrdersByStore(ctx context.Context, storeID uuid.UUID, status order.OrderStatus) ([]*order.Order, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.filterOrders(func(o order.Order) bool {
		return o.StoreID == storeID && (status == "" || o.Status == status)
	}), nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status order.OrderStatus) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	r, ok := s.t.orders[id]
	if !ok {
		return apperror.NotFound("order %s not found", id)
	}
	r.val.Status = status
	r.val.UpdatedAt = s.now()
	s.t.orders[id] = r
	return nil
}

func (s *Store) SetPaymentStatus(ctx context.Context, groupID uuid.UUID, status order.PaymentStatus) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	r, ok := s.t.groups[groupID]
	if !ok {
		return apperror.NotFound("order group %s not found", groupID)
	}
	r.val.PaymentStatus = status
	r.val.UpdatedAt = s.now()
	s.t.groups[groupID] = r
	return nil
}

func (s *Store) order(id uuid.UUID) (*order.Order, error) {
	r, ok := s.t.orders[id]
	if !ok {
		return nil, apperror.NotFound("order %s not found", id)
	}
	return s.withItems(r.val), nil
}

func (s *Store) withItems(o order.Order) *order.Order {
	for _, item := range s.t.orderItems[o.ID] {
		item := item
		o.Items = append(o.Items, &item)
	}
	return &o
}

// filterOrders returns matching orders newest first.
func (s *Store) filterOrders(match func(order.Order) bool) []*order.Order {
	var rows []record[order.Order]
	for _, r := range s.t.orders {
		if match(r.val) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]*order.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.withItems(r.val))
	}
	return out
}
