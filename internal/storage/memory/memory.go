// Package memory is an in-process implementation of every repository and of
// database.TxManager. A transaction holds the store's single lock for its
// whole duration and restores a snapshot of all tables when it fails, so it
// gives the same all-or-nothing and serial behaviour the Postgres adapters rely on.
package memory

import (
	"bytes"
	"context"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/cart"
	"github.com/georgemunganga/markethub-backend/internal/modules/order"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

// record keeps insertion order next to a row so equal timestamps still sort deterministically.
type record[T any] struct {
	seq uint64
	val T
}

type tables struct {
	users      map[uuid.UUID]record[user.User]
	stores     map[uuid.UUID]record[store.Store]
	members    map[uuid.UUID]record[store.Member]
	grants     map[uuid.UUID]record[store.AccessGrant]
	products   map[uuid.UUID]record[product.Product]
	cartItems  map[uuid.UUID]record[cart.Item]
	groups     map[uuid.UUID]record[order.Group]
	orders     map[uuid.UUID]record[order.Order]
	orderItems map[uuid.UUID][]order.Item
}

func newTables() *tables {
	return &tables{
		users:      make(map[uuid.UUID]record[user.User]),
		stores:     make(map[uuid.UUID]record[store.Store]),
		members:    make(map[uuid.UUID]record[store.Member]),
		grants:     make(map[uuid.UUID]record[store.AccessGrant]),
		products:   make(map[uuid.UUID]record[product.Product]),
		cartItems:  make(map[uuid.UUID]record[cart.Item]),
		groups:     make(map[uuid.UUID]record[order.Group]),
		orders:     make(map[uuid.UUID]record[order.Order]),
		orderItems: make(map[uuid.UUID][]order.Item),
	}
}

// clone copies every table. Rows are values and slices are replaced, never
// edited in place, so a shallow map copy is a full snapshot.
func (t *tables) clone() *tables {
	return &tables{
		users:      maps.Clone(t.users),
		stores:     maps.Clone(t.stores),
		members:    maps.Clone(t.members),
		grants:     maps.Clone(t.grants),
		products:   maps.Clone(t.products),
		cartItems:  maps.Clone(t.cartItems),
		groups:     maps.Clone(t.groups),
		orders:     maps.Clone(t.orders),
		orderItems: maps.Clone(t.orderItems),
	}
}

// Store holds all tables behind one lock.
type Store struct {
	sem   chan struct{}
	clock clock.Clock
	seq   uint64
	t     *tables
}

func New(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.System()
	}
	return &Store{sem: make(chan struct{}, 1), clock: clk, t: newTables()}
}

var _ database.TxManager = (*Store)(nil)

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// acquire takes the lock unless ctx already runs inside one of this store's
// transactions. Waiting gives up when ctx is done, like a lock timeout.
func (s *Store) acquire(ctx context.Context) (func(), error) {
	if s.inTx(ctx) {
		return func() {}, nil
	}
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return nil, apperror.Unavailable(ctx.Err(), "lock wait timed out")
	}
}

// WithTransaction runs fn holding the lock. A nested call joins the outer
// transaction. Any error, panic or expired ctx restores the snapshot.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	snapshot := s.t.clone()
	committed := false
	defer func() {
		if !committed {
			s.t = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperror.Unavailable(err, "deadline reached")
	}
	committed = true
	return nil
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) now() time.Time { return s.clock.Now() }

// ── helpers ──────────────────────────────────────────────────────────────────

func lessID(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }
