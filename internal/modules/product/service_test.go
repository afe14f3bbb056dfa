package product_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/access"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/testkit"
)

func TestService_CreateProduct(t *testing.T) {
	f := testkit.New(t)
	svc := product.NewService(f.Mem, access.NewResolver(f.Mem, f.Mem, f.Mem, f.Mem, f.Clock, nil), f.Mem)
	owner, staff := f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPublic)
	f.Member(st.ID, staff.ID, permission.RoleStaff)

	valid := product.CreateProductRequest{SKU: "MUG-1", Name: "Mug", Price: decimal.RequireFromString("9.50"), StockQuantity: 4}

	tests := []struct {
		name  string
		actor uuid.UUID
		req   product.CreateProductRequest
		want  error
	}{
		{"staff cannot create", staff.ID, valid, apperror.ErrDenied},
		{"zero price", owner.ID, withPrice(valid, "0"), apperror.ErrInvalid},
		{"sub-cent price", owner.ID, withPrice(valid, "1.005"), apperror.ErrInvalid},
		{"negative stock", owner.ID, product.CreateProductRequest{SKU: "A", Name: "A", Price: decimal.NewFromInt(1), StockQuantity: -1}, apperror.ErrInvalid},
		{"owner creates", owner.ID, valid, nil},
		{"duplicate sku", owner.ID, valid, apperror.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(f.Ctx, tt.actor, st.ID, tt.req)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestService_Lifecycle(t *testing.T) {
	f := testkit.New(t)
	svc := product.NewService(f.Mem, access.NewResolver(f.Mem, f.Mem, f.Mem, f.Mem, f.Clock, nil), f.Mem)
	owner, manager, buyer, outsider := f.User(), f.User(), f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPublic)
	private := f.Store(owner.ID, store.VisibilityPrivate)
	f.Member(st.ID, manager.ID, permission.RoleManager)

	p := f.Product(st.ID, "3.00", 5)
	hidden := f.Product(private.ID, "3.00", 5)

	if _, err := svc.GetProduct(f.Ctx, buyer.ID, p.ID); err != nil {
		t.Fatalf("public product: %v", err)
	}
	if _, err := svc.GetProduct(f.Ctx, outsider.ID, hidden.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("private product: %v", err)
	}

	price := decimal.RequireFromString("4.25")
	updated, err := svc.UpdateProduct(f.Ctx, manager.ID, p.ID, product.UpdateProductRequest{Price: &price})
	if err != nil || !updated.Price.Equal(price) {
		t.Fatalf("update = %+v err %v", updated, err)
	}
	if _, err := svc.UpdateProduct(f.Ctx, buyer.ID, p.ID, product.UpdateProductRequest{Price: &price}); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("buyer update: %v", err)
	}

	if err := svc.DeleteProduct(f.Ctx, manager.ID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteProduct(f.Ctx, manager.ID, p.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	listed, err := svc.ListProducts(f.Ctx, buyer.ID, st.ID, false)
	if err != nil || len(listed) != 0 {
		t.Fatalf("active listing = %d err %v", len(listed), err)
	}
	if _, err := svc.ListProducts(f.Ctx, buyer.ID, st.ID, true); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("buyer listing inactive: %v", err)
	}
	if listed, err = svc.ListProducts(f.Ctx, manager.ID, st.ID, true); err != nil || len(listed) != 1 || listed[0].IsActive {
		t.Fatalf("full listing = %+v err %v", listed, err)
	}
}

func withPrice(req product.CreateProductRequest, price string) product.CreateProductRequest {
	req.Price = decimal.RequireFromString(price)
	return req
}
