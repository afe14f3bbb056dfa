package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	t.Run("errors.Is matches sentinel of same kind", func(t *testing.T) {
		err := fmt.Errorf("checkout: %w", InsufficientStock("p1", 0))
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected match, got %v", err)
		}
		if errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected match with conflict")
		}
	})

	t.Run("available count survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("store a: %w", InsufficientStock("p1", 3))
		e, ok := As(err)
		if !ok || e.Available == nil || *e.Available != 3 {
			t.Fatalf("expected available=3, got %+v", e)
		}
	})

	t.Run("denied carries capability", func(t *testing.T) {
		e, _ := As(Denied("PLACE_ORDER"))
		if e.Capability != "PLACE_ORDER" {
			t.Fatalf("got %q", e.Capability)
		}
	})
}

func TestRetryable(t *testing.T) {
	if !Retryable(Unavailable(context.DeadlineExceeded, "store busy")) {
		t.Fatalf("unavailable must be retryable")
	}
	for _, err := range []error{Denied("X"), Conflict("dup"), NotFound("x"), EmptyCart(), errors.New("boom")} {
		if Retryable(err) {
			t.Fatalf("%v must not be retryable", err)
		}
	}
	if !errors.Is(Unavailable(context.DeadlineExceeded, "busy"), context.DeadlineExceeded) {
		t.Fatalf("cause must stay reachable")
	}
}
