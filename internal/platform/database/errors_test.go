package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Kind
	}{
		{"unique violation", &pq.Error{Code: "23505"}, apperror.KindConflict},
		{"serialization failure", fmt.Errorf("insert order: %w", &pq.Error{Code: "40001"}), apperror.KindUnavailable},
		{"deadlock", &pq.Error{Code: "40P01"}, apperror.KindUnavailable},
		{"lock timeout", &pq.Error{Code: "55P03"}, apperror.KindUnavailable},
		{"statement timeout", &pq.Error{Code: "57014"}, apperror.KindUnavailable},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), apperror.KindUnavailable},
		{"typed error untouched", apperror.EmptyCart(), apperror.KindEmptyCart},
		{"other driver error", &pq.Error{Code: "42P01"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperror.KindOf(Classify(tt.err)); got != tt.want {
				t.Fatalf("Classify(%v) kind = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
	if Classify(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestRetryableCodes(t *testing.T) {
	if !isRetryable(&pq.Error{Code: "40001"}) || !isRetryable(&pq.Error{Code: "40P01"}) {
		t.Fatalf("serialization failures and deadlocks must be retried")
	}
	if isRetryable(&pq.Error{Code: "55P03"}) || isRetryable(errors.New("boom")) {
		t.Fatalf("only serialization failures are retried")
	}
}
