package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines user data storage.
type Repository interface {
	// CreateUser inserts a user; a duplicate email yields a Conflict.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByEmail returns NotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByID returns the user regardless of its active flag.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// Deactivate clears the active flag.
	Deactivate(ctx context.Context, id uuid.UUID) error
}
