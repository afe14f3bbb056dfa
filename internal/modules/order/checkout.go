package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/cart"
	"github.com/georgemunganga/markethub-backend/internal/modules/inventory"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
	"github.com/georgemunganga/markethub-backend/internal/platform/metrics"
)

// Authorizer checks a capability and returns a Denied error when it is absent.
type Authorizer interface {
	Authorize(ctx context.Context, userID, storeID uuid.UUID, c permission.Capability) error
}

// StockLedger is the conditional stock decrement used inside each store transaction.
type StockLedger interface {
	ReserveAndDecrement(ctx context.Context, productID uuid.UUID, qty int) (inventory.Reservation, error)
	Release(ctx context.Context, productID uuid.UUID, qty int) error
}

type CheckoutRequest struct {
	// StoreIDs limits checkout to these stores; empty means every store in the cart.
	StoreIDs        []uuid.UUID `json:"store_ids"`
	ShippingAddress Address     `json:"shipping_address"`
}

type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "CREATED"
	OutcomeFailed  OutcomeStatus = "FAILED"
)

// StoreOutcome reports what happened to one targeted store.
type StoreOutcome struct {
	StoreID uuid.UUID       `json:"store_id"`
	Status  OutcomeStatus   `json:"status"`
	Order   *Order          `json:"order,omitempty"`
	Error   *apperror.Error `json:"error,omitempty"`
}

type CheckoutResult struct {
	// Group is nil when no store could be checked out.
	Group    *Group         `json:"group,omitempty"`
	Outcomes []StoreOutcome `json:"outcomes"`
	// Unavailable lists targeted cart lines left in the cart because their
	// product is inactive or their store is closed.
	Unavailable []cart.UnavailableLine `json:"unavailable"`
}

// Orchestrator settles a cart into per-store orders. Each store runs in its own
// transaction, so one store's failure never rolls back another's order.
type Orchestrator struct {
	aggregator   *cart.Aggregator
	carts        cart.Repository
	stores       store.Repository
	authz        Authorizer
	ledger       StockLedger
	orders       Repository
	factory      *Factory
	pricing      Calculator
	tx           database.TxManager
	storeTimeout time.Duration
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

type OrchestratorConfig struct {
	Aggregator   *cart.Aggregator
	Carts        cart.Repository
	Stores       store.Repository
	Authorizer   Authorizer
	Ledger       StockLedger
	Orders       Repository
	Factory      *Factory
	Pricing      Calculator
	Tx           database.TxManager
	StoreTimeout time.Duration
	Metrics      *metrics.Metrics
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	pricing := cfg.Pricing
	if pricing == nil {
		pricing = ZeroCalculator{}
	}
	return &Orchestrator{
		aggregator:   cfg.Aggregator,
		carts:        cfg.Carts,
		stores:       cfg.Stores,
		authz:        cfg.Authorizer,
		ledger:       cfg.Ledger,
		orders:       cfg.Orders,
		factory:      cfg.Factory,
		pricing:      pricing,
		tx:           cfg.Tx,
		storeTimeout: cfg.StoreTimeout,
		metrics:      cfg.Metrics,
		tracer:       otel.Tracer("markethub/order"),
	}
}

// Checkout converts the user's cart into one order per targeted store. It fails
// as a whole only for an empty cart or when no store succeeded; in the latter
// case the result still carries every store's outcome.
func (o *Orchestrator) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (_ *CheckoutResult, err error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.Int("checkout.requested_stores", len(req.StoreIDs)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
		o.metrics.CheckoutDuration(start)
	}()

	logger := logging.FromContext(ctx).With(zap.String("user_id", userID.String()))

	grouped, err := o.aggregator.GroupByStore(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("group cart: %w", err)
	}
	if grouped.Empty() {
		return nil, apperror.EmptyCart()
	}

	targets := targetStores(req.StoreIDs, grouped)
	group := o.factory.NewGroup(userID)
	result := &CheckoutResult{
		Outcomes:    make([]StoreOutcome, 0, len(targets)),
		Unavailable: []cart.UnavailableLine{},
	}
	reported := map[uuid.UUID]bool{}
	report := func(lines []cart.UnavailableLine) {
		for _, l := range lines {
			if !reported[l.ItemID] {
				reported[l.ItemID] = true
				result.Unavailable = append(result.Unavailable, l)
			}
		}
	}

	var created []*Order
	var firstErr error
	for _, storeID := range targets {
		report(grouped.UnavailableFor(storeID))
		order, skipped, storeErr := o.checkoutStore(ctx, userID, storeID, grouped, group, req.ShippingAddress)
		if storeErr != nil {
			appErr := asAppError(storeErr)
			if firstErr == nil {
				firstErr = appErr
			}
			result.Outcomes = append(result.Outcomes, StoreOutcome{StoreID: storeID, Status: OutcomeFailed, Error: appErr})
			o.metrics.CheckoutStore(string(appErr.Kind))
			logger.Warn("checkout_store_failed",
				zap.String("store_id", storeID.String()),
				zap.String("kind", string(appErr.Kind)),
				zap.Error(storeErr),
			)
			continue
		}
		report(skipped)
		created = append(created, order)
		result.Outcomes = append(result.Outcomes, StoreOutcome{StoreID: storeID, Status: OutcomeCreated, Order: order})
		o.metrics.CheckoutStore("created")
	}

	if len(created) == 0 {
		return result, fmt.Errorf("checkout failed for every store: %w", firstErr)
	}

	result.Group = o.factory.Assemble(group, created)
	span.SetAttributes(attribute.Int("checkout.orders_created", len(created)))
	logger.Info("checkout_completed",
		zap.String("group_id", group.ID.String()),
		zap.String("group_number", group.GroupNumber),
		zap.Int("orders", len(created)),
		zap.Int("failed_stores", len(targets)-len(created)),
		zap.String("total", group.TotalAmount.StringFixed(2)),
	)
	return result, nil
}

// checkoutStore runs steps for one store inside a single transaction. Any
// error rolls back the store's stock decrements, order rows and cart deletions.
// skipped holds locked lines whose product was inactive at lock time.
func (o *Orchestrator) checkoutStore(ctx context.Context, userID, storeID uuid.UUID, grouped *cart.Grouped,
	group *Group, addr Address) (_ *Order, skipped []cart.UnavailableLine, err error) {
	ctx, span := o.tracer.Start(ctx, "order.CheckoutStore",
		trace.WithAttributes(attribute.String("store.id", storeID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if _, ok := grouped.Store(storeID); !ok {
		if unavailable := grouped.UnavailableFor(storeID); len(unavailable) > 0 {
			return nil, nil, apperror.InvalidState("no purchasable items for store %s: %s", storeID, unavailable[0].Reason)
		}
		return nil, nil, apperror.NotFound("cart has no items for store %s", storeID)
	}

	if o.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.storeTimeout)
		defer cancel()
	}

	var created *Order
	err = o.tx.WithTransaction(ctx, func(ctx context.Context) error {
		created, skipped = nil, nil

		st, err := o.stores.GetStore(ctx, storeID)
		if err != nil {
			return err
		}
		if st.Status != store.StatusActive {
			return apperror.InvalidState("store %s is %s", storeID, st.Status)
		}
		// Grants are read through this transaction, so a revoke committed
		// before this point blocks the purchase.
		if err := o.authz.Authorize(ctx, userID, storeID, permission.PlaceOrder); err != nil {
			return err
		}

		lines, err := o.carts.LockStoreLines(ctx, userID, storeID)
		if err != nil {
			return err
		}
		cart.SortLines(lines)

		var itemIDs []uuid.UUID
		var reservations []inventory.Reservation
		for _, l := range lines {
			if !l.ProductActive {
				skipped = append(skipped, cart.UnavailableLine{Line: l, Reason: cart.ReasonProductInactive})
				continue
			}
			res, err := o.ledger.ReserveAndDecrement(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			reservations = append(reservations, res)
			itemIDs = append(itemIDs, l.ItemID)
		}
		if len(reservations) == 0 {
			return apperror.InvalidState("no purchasable items for store %s", storeID)
		}

		charges, err := o.pricing.Calculate(ctx, storeID, Subtotal(reservations))
		if err != nil {
			return fmt.Errorf("calculate charges: %w", err)
		}
		order := o.factory.NewOrder(group, storeID, reservations, charges, addr)

		if err := o.orders.AccumulateGroup(ctx, group, order.Total); err != nil {
			return err
		}
		if err := o.orders.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := o.carts.DeleteItems(ctx, itemIDs); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, nil, database.Classify(err)
	}
	span.SetAttributes(attribute.String("order.number", created.OrderNumber))
	return created, skipped, nil
}

// targetStores resolves the requested store set in ascending ID order, the
// order in which store transactions run.
func targetStores(requested []uuid.UUID, grouped *cart.Grouped) []uuid.UUID {
	if len(requested) == 0 {
		return grouped.StoreIDs()
	}
	seen := make(map[uuid.UUID]bool, len(requested))
	ids := make([]uuid.UUID, 0, len(requested))
	for _, id := range requested {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	cart.SortIDs(ids)
	return ids
}

// asAppError gives every store failure a kind. Unclassified storage failures
// are reported as Unavailable so the caller may retry that store.
func asAppError(err error) *apperror.Error {
	if e, ok := apperror.As(err); ok {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Unavailable(err, "store checkout timed out")
	}
	return apperror.Unavailable(err, "store checkout failed")
}
