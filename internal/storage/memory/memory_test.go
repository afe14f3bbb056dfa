package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/product"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
)

func seedProduct(t *testing.T, s *Store, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		ID:            uuid.New(),
		StoreID:       uuid.New(),
		SKU:           "SKU-" + uuid.NewString()[:8],
		Name:          "widget",
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := s.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("error rolls back every write", func(t *testing.T) {
		s := New(clock.NewFixed(time.Now()))
		p := seedProduct(t, s, 5)

		boom := errors.New("boom")
		err := s.WithTransaction(ctx, func(ctx context.Context) error {
			if _, ok, err := s.DecrementIfAvailable(ctx, p.ID, 3); err != nil || !ok {
				t.Fatalf("decrement: ok=%v err=%v", ok, err)
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		got, _ := s.GetProduct(ctx, p.ID)
		if got.StockQuantity != 5 {
			t.Fatalf("stock = %d, want 5 after rollback", got.StockQuantity)
		}
	})

	t.Run("commit keeps writes and nested calls join", func(t *testing.T) {
		s := New(clock.NewFixed(time.Now()))
		p := seedProduct(t, s, 5)

		err := s.WithTransaction(ctx, func(ctx context.Context) error {
			return s.WithTransaction(ctx, func(ctx context.Context) error {
				_, _, err := s.DecrementIfAvailable(ctx, p.ID, 2)
				return err
			})
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := s.GetProduct(ctx, p.ID)
		if got.StockQuantity != 3 {
			t.Fatalf("stock = %d, want 3", got.StockQuantity)
		}
	})

	t.Run("waiting for the lock honours the deadline", func(t *testing.T) {
		s := New(clock.NewFixed(time.Now()))
		held := make(chan struct{})
		done := make(chan struct{})
		go func() {
			_ = s.WithTransaction(ctx, func(ctx context.Context) error {
				close(held)
				<-done
				return nil
			})
		}()
		<-held
		defer close(done)

		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := s.WithTransaction(tctx, func(context.Context) error { return nil })
		if !errors.Is(err, apperror.ErrUnavailable) {
			t.Fatalf("expected Unavailable, got %v", err)
		}
	})
}

func TestUniqueKeys(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	p := seedProduct(t, s, 1)

	dup := *p
	dup.ID = uuid.New()
	if err := s.CreateProduct(ctx, &dup); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected Conflict for duplicate sku, got %v", err)
	}

	_, ok, err := s.DecrementIfAvailable(ctx, p.ID, 2)
	if err != nil || ok {
		t.Fatalf("decrement beyond stock: ok=%v err=%v", ok, err)
	}
}
