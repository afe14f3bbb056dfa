package order_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/access"
	"github.com/georgemunganga/markethub-backend/internal/modules/cart"
	"github.com/georgemunganga/markethub-backend/internal/modules/inventory"
	"github.com/georgemunganga/markethub-backend/internal/modules/order"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

// openTestDB connects to TEST_DATABASE_URL and applies the schema. Rows are
// keyed by fresh UUIDs so repeated runs share one database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Open(context.Background(), dsn, database.PoolConfig{MaxOpenConns: 10})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../../migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

type pgEnv struct {
	ctx          context.Context
	users        user.Repository
	stores       store.Repository
	members      store.MemberRepository
	products     product.Repository
	carts        cart.Repository
	orchestrator *order.Orchestrator
}

func newPgEnv(t *testing.T) *pgEnv {
	db := openTestDB(t)
	tx := database.NewTxManager(db, database.TxOptions{
		Isolation:   sql.LevelSerializable,
		LockTimeout: 2 * time.Second,
		MaxRetries:  5,
	})
	clk := clock.System()

	e := &pgEnv{
		ctx:      context.Background(),
		users:    user.NewPostgresRepository(db),
		stores:   store.NewPostgresRepository(db),
		members:  store.NewMemberPostgresRepository(db),
		products: product.NewPostgresRepository(db),
		carts:    cart.NewPostgresRepository(db),
	}
	resolver := access.NewResolver(e.stores, e.members, store.NewGrantPostgresRepository(db), e.users, clk, nil)
	e.orchestrator = order.NewOrchestrator(order.OrchestratorConfig{
		Aggregator:   cart.NewAggregator(e.carts),
		Carts:        e.carts,
		Stores:       e.stores,
		Authorizer:   resolver,
		Ledger:       inventory.NewLedger(inventory.NewPostgresRepository(db), tx, nil),
		Orders:       order.NewPostgresRepository(db),
		Factory:      order.NewFactory(clk),
		Tx:           tx,
		StoreTimeout: 5 * time.Second,
	})
	return e
}

func (e *pgEnv) user(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := e.users.CreateUser(e.ctx, &user.User{ID: id, Email: id.String() + "@example.com", PasswordHash: "x", IsActive: true}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func (e *pgEnv) store(t *testing.T, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	st := &store.Store{ID: id, OwnerID: ownerID, Name: "pg store", Slug: "pg-" + id.String(),
		Visibility: store.VisibilityPublic, Status: store.StatusActive}
	if err := e.stores.CreateStore(e.ctx, st); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := e.members.CreateMember(e.ctx, &store.Member{ID: uuid.New(), StoreID: id, UserID: ownerID,
		Role: permission.RoleOwner, IsActive: true}); err != nil {
		t.Fatalf("seed owner membership: %v", err)
	}
	return id
}

func (e *pgEnv) product(t *testing.T, storeID uuid.UUID, price string, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	p := &product.Product{ID: id, StoreID: storeID, SKU: "SKU-" + id.String()[:8], Name: "pg product",
		Price: decimal.RequireFromString(price), StockQuantity: stock, IsActive: true}
	if err := e.products.CreateProduct(e.ctx, p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func (e *pgEnv) addToCart(t *testing.T, userID, productID uuid.UUID, qty int) {
	t.Helper()
	if err := e.carts.UpsertItem(e.ctx, &cart.Item{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: qty}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func TestPostgres_CheckoutPartialSuccess(t *testing.T) {
	e := newPgEnv(t)
	buyer := e.user(t)
	a := e.store(t, e.user(t))
	b := e.store(t, e.user(t))
	pa := e.product(t, a, "5.25", 3)
	pb := e.product(t, b, "2.00", 0)
	e.addToCart(t, buyer, pa, 2)
	e.addToCart(t, buyer, pb, 1)

	res, err := e.orchestrator.Checkout(e.ctx, buyer, order.CheckoutRequest{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !res.Group.TotalAmount.Equal(decimal.RequireFromString("10.50")) {
		t.Fatalf("group total = %s", res.Group.TotalAmount)
	}
	for _, o := range res.Outcomes {
		switch o.StoreID {
		case a:
			if o.Status != order.OutcomeCreated {
				t.Errorf("store A: %+v", o)
			}
		case b:
			if o.Status != order.OutcomeFailed || !errors.Is(o.Error, apperror.ErrInsufficientStock) {
				t.Errorf("store B: %+v", o)
			}
		}
	}

	p, err := e.products.GetProduct(e.ctx, pa)
	if err != nil || p.StockQuantity != 1 {
		t.Fatalf("stock A = %+v err %v", p, err)
	}
	lines, err := e.carts.ListLines(e.ctx, buyer)
	if err != nil || len(lines) != 1 || lines[0].ProductID != pb {
		t.Fatalf("remaining cart = %+v err %v", lines, err)
	}
}

func TestPostgres_ConcurrentCheckoutNeverOversells(t *testing.T) {
	e := newPgEnv(t)
	st := e.store(t, e.user(t))
	p := e.product(t, st, "1.00", 2)

	const buyers = 6
	ids := make([]uuid.UUID, buyers)
	for i := range ids {
		ids[i] = e.user(t)
		e.addToCart(t, ids[i], p, 1)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(buyer uuid.UUID) {
			defer wg.Done()
			res, err := e.orchestrator.Checkout(e.ctx, buyer, order.CheckoutRequest{})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			// Losers see either the exhausted stock or a lock they could not win.
			k := apperror.KindOf(res.Outcomes[0].Error)
			if k != apperror.KindInsufficientStock && k != apperror.KindUnavailable {
				t.Errorf("buyer %s: unexpected failure %v", buyer, err)
			}
		}(id)
	}
	wg.Wait()

	got, err := e.products.GetProduct(e.ctx, p)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if created+got.StockQuantity != 2 || got.StockQuantity < 0 {
		t.Fatalf("created %d orders, stock left %d", created, got.StockQuantity)
	}
	if created == 0 {
		t.Fatal("no buyer succeeded")
	}
}
