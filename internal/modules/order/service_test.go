package order_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/order"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
)

type placed struct {
	seller, buyer, staff, manager, admin *user.User
	store                                *store.Store
	productID                            uuid.UUID
	order                                *order.Order
	group                                *order.Group
}

func placeOrder(t *testing.T, h *harness) placed {
	t.Helper()
	p := placed{seller: h.User(), buyer: h.User(), staff: h.User(), manager: h.User(), admin: h.User()}
	p.store = h.Store(p.seller.ID, store.VisibilityPublic)
	h.Member(p.store.ID, p.staff.ID, permission.RoleStaff)
	h.Member(p.store.ID, p.manager.ID, permission.RoleManager)
	h.Member(p.store.ID, p.admin.ID, permission.RoleAdmin)

	prod := h.Product(p.store.ID, "4.00", 10)
	p.productID = prod.ID
	h.CartItem(p.buyer.ID, prod.ID, 3)

	res, err := h.orchestrator.Checkout(h.Ctx, p.buyer.ID, order.CheckoutRequest{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	p.order = res.Outcomes[0].Order
	p.group = res.Group
	return p
}

func TestService_Visibility(t *testing.T) {
	h := newHarness(t, nil)
	p := placeOrder(t, h)
	stranger := h.User()

	if _, err := h.service.GetOrder(h.Ctx, p.buyer.ID, p.order.ID); err != nil {
		t.Fatalf("buyer reads own order: %v", err)
	}
	if _, err := h.service.GetOrder(h.Ctx, p.staff.ID, p.order.ID); err != nil {
		t.Fatalf("staff reads store order: %v", err)
	}
	if _, err := h.service.GetOrder(h.Ctx, stranger.ID, p.order.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("stranger: expected Denied, got %v", err)
	}

	g, err := h.service.GetGroup(h.Ctx, p.buyer.ID, p.group.ID)
	if err != nil || len(g.Orders) != 1 || !g.TotalAmount.Equal(dec("12.00")) {
		t.Fatalf("group %+v err %v", g, err)
	}
	if _, err := h.service.GetGroup(h.Ctx, stranger.ID, p.group.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("foreign group: expected NotFound, got %v", err)
	}

	mine, err := h.service.ListMyOrders(h.Ctx, p.buyer.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("my orders %d err %v", len(mine), err)
	}
	if _, err := h.service.ListStoreOrders(h.Ctx, stranger.ID, p.store.ID, ""); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("stranger listing store orders: %v", err)
	}
	pending, err := h.service.ListStoreOrders(h.Ctx, p.staff.ID, p.store.ID, "PENDING")
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending %d err %v", len(pending), err)
	}
	if _, err := h.service.ListStoreOrders(h.Ctx, p.staff.ID, p.store.ID, "LOST"); !errors.Is(err, apperror.ErrInvalid) {
		t.Fatalf("unknown status filter: %v", err)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	h := newHarness(t, nil)
	p := placeOrder(t, h)

	tests := []struct {
		name  string
		actor *user.User
		to    string
		want  error
	}{
		{"staff cannot process", p.staff, "CONFIRMED", apperror.ErrDenied},
		{"cannot skip states", p.manager, "SHIPPED", apperror.ErrInvalidState},
		{"unknown status", p.manager, "LOST", apperror.ErrInvalid},
		{"pending to confirmed", p.manager, "CONFIRMED", nil},
		{"confirmed to processing", p.manager, "PROCESSING", nil},
		{"no going back", p.manager, "CONFIRMED", apperror.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.UpdateStatus(h.Ctx, tt.actor.ID, p.order.ID, order.UpdateStatusRequest{Status: tt.to})
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	o, _ := h.service.GetOrder(h.Ctx, p.buyer.ID, p.order.ID)
	if o.Status != order.StatusProcessing {
		t.Fatalf("status = %s", o.Status)
	}
	if _, err := h.service.CancelOrder(h.Ctx, p.admin.ID, p.order.ID); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("processing order cannot be cancelled, got %v", err)
	}
}

func TestService_CancelReleasesStock(t *testing.T) {
	h := newHarness(t, nil)
	p := placeOrder(t, h)

	if got := h.Stock(p.productID); got != 7 {
		t.Fatalf("stock after checkout = %d", got)
	}
	if _, err := h.service.CancelOrder(h.Ctx, p.manager.ID, p.order.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("manager lacks CANCEL_ORDERS, got %v", err)
	}

	o, err := h.service.UpdateStatus(h.Ctx, p.admin.ID, p.order.ID, order.UpdateStatusRequest{Status: "CANCELLED"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if o.Status != order.StatusCancelled {
		t.Fatalf("status = %s", o.Status)
	}
	if got := h.Stock(p.productID); got != 10 {
		t.Fatalf("stock after cancel = %d, want 10", got)
	}
	if _, err := h.service.CancelOrder(h.Ctx, p.admin.ID, p.order.ID); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("second cancel: %v", err)
	}
	if got := h.Stock(p.productID); got != 10 {
		t.Fatalf("second cancel must not release again, stock = %d", got)
	}
}

func TestService_SetPaymentStatus(t *testing.T) {
	h := newHarness(t, nil)
	p := placeOrder(t, h)

	tests := []struct {
		name   string
		actor  *user.User
		status string
		want   error
	}{
		{"buyer cannot mark paid", p.buyer, "PAID", apperror.ErrDenied},
		{"unknown status", p.seller, "SETTLED", apperror.ErrInvalid},
		{"pending to failed", p.seller, "FAILED", nil},
		{"failed to paid", p.seller, "PAID", nil},
		{"paid cannot fail", p.seller, "FAILED", apperror.ErrInvalidState},
		{"paid to refunded", p.seller, "REFUNDED", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.SetPaymentStatus(h.Ctx, tt.actor.ID, p.group.ID, tt.status)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	g, _ := h.Mem.GetGroup(h.Ctx, p.group.ID)
	if g.PaymentStatus != order.PaymentRefunded {
		t.Fatalf("payment status = %s", g.PaymentStatus)
	}
}
