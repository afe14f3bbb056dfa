// Package apperror defines the typed failures returned by the authorization and
// settlement core. Every failure path returns one of these kinds; nothing in the
// core terminates the process.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindDenied            Kind = "DENIED"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindConflict          Kind = "CONFLICT"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidState      Kind = "INVALID_STATE"
	KindEmptyCart         Kind = "EMPTY_CART"
	KindUnavailable       Kind = "UNAVAILABLE"
	KindInvalid           Kind = "INVALID"
)

// Error carries a Kind plus the details a caller needs to build a precise message.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// Capability is set for KindDenied.
	Capability string `json:"capability,omitempty"`
	// Available and ProductID are set for KindInsufficientStock.
	Available *int   `json:"available,omitempty"`
	ProductID string `json:"product_id,omitempty"`

	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperror.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrDenied            = &Error{Kind: KindDenied}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrEmptyCart         = &Error{Kind: KindEmptyCart}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrInvalid           = &Error{Kind: KindInvalid}
)

func Denied(capability string) *Error {
	return &Error{
		Kind:       KindDenied,
		Message:    fmt.Sprintf("missing capability %s", capability),
		Capability: capability,
	}
}

func InsufficientStock(productID string, available int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("product %s has %d in stock", productID, available),
		Available: &available,
		ProductID: productID,
	}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func EmptyCart() *Error {
	return &Error{Kind: KindEmptyCart, Message: "cart is empty"}
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a transient cause (lock timeout, serialization failure, deadline).
func Unavailable(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Retryable reports whether the caller may retry the request unchanged.
func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
