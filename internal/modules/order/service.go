package order

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
)

// Service defines order reads and post-checkout lifecycle changes.
type Service interface {
	// GetOrder returns an order to its buyer or to anyone with VIEW_ORDERS on its store.
	GetOrder(ctx context.Context, actorID, id uuid.UUID) (*Order, error)

	// GetGroup returns the buyer's group with every order it produced.
	GetGroup(ctx context.Context, actorID, id uuid.UUID) (*Group, error)

	ListMyOrders(ctx context.Context, actorID uuid.UUID) ([]*Order, error)

	// ListStoreOrders returns a store's orders, optionally filtered by status.
	ListStoreOrders(ctx context.Context, actorID, storeID uuid.UUID, status string) ([]*Order, error)

	// UpdateStatus advances an order along the fulfilment state machine.
	UpdateStatus(ctx context.Context, actorID, id uuid.UUID, req UpdateStatusRequest) (*Order, error)

	// CancelOrder cancels a PENDING or CONFIRMED order and returns its stock.
	CancelOrder(ctx context.Context, actorID, id uuid.UUID) (*Order, error)

	// SetPaymentStatus records a payment outcome on a group.
	SetPaymentStatus(ctx context.Context, actorID, groupID uuid.UUID, status string) (*Group, error)
}

type service struct {
	repo   Repository
	authz  Authorizer
	ledger StockLedger
	tx     database.TxManager
}

// NewService creates a new order service.
func NewService(repo Repository, authz Authorizer, ledger StockLedger, tx database.TxManager) Service {
	return &service{repo: repo, authz: authz, ledger: ledger, tx: tx}
}

// validTransitions defines the allowed status state machine. Cancellation goes
// through CancelOrder so stock is released.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed},
	StatusConfirmed:  {StatusProcessing},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentFailed:   {PaymentPaid},
	PaymentPaid:     {PaymentRefunded},
	PaymentRefunded: {},
}

func (s *service) GetOrder(ctx context.Context, actorID, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == actorID {
		return o, nil
	}
	if err := s.authz.Authorize(ctx, actorID, o.StoreID, permission.ViewOrders); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) GetGroup(ctx context.Context, actorID, id uuid.UUID) (*Group, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	// Another buyer's group is reported as missing rather than forbidden.
	if g.UserID != actorID {
		return nil, apperror.NotFound("order group %s not found", id)
	}
	if g.Orders, err = s.repo.ListOrdersByGroup(ctx, id); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *service) ListMyOrders(ctx context.Context, actorID uuid.UUID) ([]*Order, error) {
	return s.repo.ListOrdersByUser(ctx, actorID)
}

func (s *service) ListStoreOrders(ctx context.Context, actorID, storeID uuid.UUID, status string) ([]*Order, error) {
	var filter OrderStatus
	if status != "" {
		filter = OrderStatus(status)
		if _, ok := validTransitions[filter]; !ok {
			return nil, apperror.Invalid("unknown order status %q", status)
		}
	}
	if err := s.authz.Authorize(ctx, actorID, storeID, permission.ViewOrders); err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByStore(ctx, storeID, filter)
}

func (s *service) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, req UpdateStatusRequest) (*Order, error) {
	next := OrderStatus(req.Status)
	if _, ok := validTransitions[next]; !ok {
		return nil, apperror.Invalid("unknown order status %q", req.Status)
	}
	if next == StatusCancelled {
		return s.CancelOrder(ctx, actorID, id)
	}

	var updated *Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, actorID, o.StoreID, permission.ProcessOrders); err != nil {
			return err
		}
		if !canTransition(o.Status, next) {
			return apperror.InvalidState("cannot transition order from %s to %s", o.Status, next)
		}
		if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
			return err
		}
		o.Status = next
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_status_changed",
		zap.String("order_id", id.String()),
		zap.String("status", string(next)),
	)
	return updated, nil
}

func (s *service) CancelOrder(ctx context.Context, actorID, id uuid.UUID) (*Order, error) {
	var cancelled *Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, actorID, o.StoreID, permission.CancelOrders); err != nil {
			return err
		}
		if o.Status != StatusPending && o.Status != StatusConfirmed {
			return apperror.InvalidState("only PENDING or CONFIRMED orders can be cancelled, order is %s", o.Status)
		}
		for _, item := range o.Items {
			if err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		o.Status = StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_cancelled",
		zap.String("order_id", id.String()),
		zap.Int("items_released", len(cancelled.Items)),
	)
	return cancelled, nil
}

func (s *service) SetPaymentStatus(ctx context.Context, actorID, groupID uuid.UUID, status string) (*Group, error) {
	next := PaymentStatus(status)
	if _, ok := paymentTransitions[next]; !ok {
		return nil, apperror.Invalid("unknown payment status %q", status)
	}

	var updated *Group
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		g, err := s.repo.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		orders, err := s.repo.ListOrdersByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		// A group spans stores, so the actor must process orders on every one of them.
		for _, o := range orders {
			if err := s.authz.Authorize(ctx, actorID, o.StoreID, permission.ProcessOrders); err != nil {
				return err
			}
		}
		if !canPay(g.PaymentStatus, next) {
			return apperror.InvalidState("cannot transition payment from %s to %s", g.PaymentStatus, next)
		}
		if err := s.repo.SetPaymentStatus(ctx, groupID, next); err != nil {
			return err
		}
		g.PaymentStatus = next
		g.Orders = orders
		updated = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("payment_status_changed",
		zap.String("group_id", groupID.String()),
		zap.String("payment_status", string(next)),
	)
	return updated, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func canTransition(from, to OrderStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func canPay(from, to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
