package database

import (
	"context"
	"errors"

	"github.com/lib/pq"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isRetryable(err error) bool {
	switch pqCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// Classify maps driver and context failures onto the apperror taxonomy.
// Errors that already carry an apperror kind pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}

	switch pqCode(err) {
	case codeUniqueViolation:
		return &apperror.Error{Kind: apperror.KindConflict, Message: "concurrent write on a unique key", Err: err}
	case codeSerializationFailure, codeDeadlockDetected:
		return apperror.Unavailable(err, "transaction could not be serialized")
	case codeLockNotAvailable:
		return apperror.Unavailable(err, "lock wait timed out")
	case codeQueryCanceled:
		return apperror.Unavailable(err, "statement cancelled")
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Unavailable(err, "deadline reached")
	}
	return err
}
