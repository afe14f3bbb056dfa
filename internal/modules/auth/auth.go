package auth

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, email, password string) (string, error)
	// Authenticate validates a token and returns the user it was issued to.
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}
