package user

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, email, password, firstName, lastName string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// DeactivateUser soft-deletes the account; its memberships and grants stop resolving.
	DeactivateUser(ctx context.Context, id uuid.UUID) error
}
