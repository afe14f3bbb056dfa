// Package testkit seeds an in-memory store for package tests. Rows are written
// straight through the repositories, skipping service-level authorization.
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/modules/cart"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
	"github.com/georgemunganga/markethub-backend/internal/storage/memory"
)

// Epoch is the fixture clock's starting time.
var Epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type Fixture struct {
	t     *testing.T
	Ctx   context.Context
	Clock *clock.Fixed
	Mem   *memory.Store
}

func New(t *testing.T) *Fixture {
	t.Helper()
	clk := clock.NewFixed(Epoch)
	return &Fixture{t: t, Ctx: context.Background(), Clock: clk, Mem: memory.New(clk)}
}

func (f *Fixture) must(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("seed: %v", err)
	}
}

// User creates an active user.
func (f *Fixture) User() *user.User {
	f.t.Helper()
	id := uuid.New()
	u := &user.User{ID: id, Email: id.String() + "@example.com", PasswordHash: "x", IsActive: true}
	f.must(f.Mem.CreateUser(f.Ctx, u))
	return u
}

// Store creates an Active store owned by ownerID together with its Owner membership.
func (f *Fixture) Store(ownerID uuid.UUID, vis store.Visibility) *store.Store {
	f.t.Helper()
	id := uuid.New()
	st := &store.Store{
		ID:         id,
		OwnerID:    ownerID,
		Name:       "store " + id.String()[:8],
		Slug:       "store-" + id.String()[:8],
		Visibility: vis,
		Status:     store.StatusActive,
	}
	f.must(f.Mem.CreateStore(f.Ctx, st))
	f.must(f.Mem.CreateMember(f.Ctx, &store.Member{
		ID: uuid.New(), StoreID: id, UserID: ownerID, Role: permission.RoleOwner, IsActive: true,
	}))
	return st
}

func (f *Fixture) SetStoreStatus(st *store.Store, status store.Status) {
	f.t.Helper()
	st.Status = status
	f.must(f.Mem.UpdateStore(f.Ctx, st))
}

func (f *Fixture) Member(storeID, userID uuid.UUID, role permission.Role, custom ...permission.Capability) *store.Member {
	f.t.Helper()
	m := &store.Member{
		ID:          uuid.New(),
		StoreID:     storeID,
		UserID:      userID,
		Role:        role,
		Permissions: permission.NewSet(custom...),
		IsActive:    true,
	}
	f.must(f.Mem.CreateMember(f.Ctx, m))
	return m
}

// Grant stores an access grant; a nil expiry never expires.
func (f *Fixture) Grant(storeID, userID, grantedBy uuid.UUID, level permission.AccessLevel, expiresAt *time.Time) *store.AccessGrant {
	f.t.Helper()
	g := &store.AccessGrant{
		ID:        uuid.New(),
		StoreID:   storeID,
		UserID:    userID,
		GrantedBy: grantedBy,
		Level:     level,
		ExpiresAt: expiresAt,
	}
	f.must(f.Mem.CreateGrant(f.Ctx, g))
	return g
}

// Product creates an active product with the given decimal price.
func (f *Fixture) Product(storeID uuid.UUID, price string, stock int) *product.Product {
	f.t.Helper()
	id := uuid.New()
	p := &product.Product{
		ID:            id,
		StoreID:       storeID,
		SKU:           "SKU-" + id.String()[:8],
		Name:          "product " + id.String()[:8],
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	f.must(f.Mem.CreateProduct(f.Ctx, p))
	return p
}

func (f *Fixture) UpdateProduct(p *product.Product) {
	f.t.Helper()
	f.must(f.Mem.UpdateProduct(f.Ctx, p))
}

// Stock returns the product's current stock.
func (f *Fixture) Stock(productID uuid.UUID) int {
	f.t.Helper()
	p, err := f.Mem.GetProduct(f.Ctx, productID)
	f.must(err)
	return p.StockQuantity
}

func (f *Fixture) CartItem(userID, productID uuid.UUID, qty int) {
	f.t.Helper()
	f.must(f.Mem.UpsertItem(f.Ctx, &cart.Item{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: qty}))
}

// CartLines returns the user's cart rows joined to products and stores.
func (f *Fixture) CartLines(userID uuid.UUID) []cart.Line {
	f.t.Helper()
	lines, err := f.Mem.ListLines(f.Ctx, userID)
	f.must(err)
	return lines
}

func (f *Fixture) Deactivate(userID uuid.UUID) {
	f.t.Helper()
	f.must(f.Mem.Deactivate(f.Ctx, userID))
}
