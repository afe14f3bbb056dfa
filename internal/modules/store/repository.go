package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines store data storage.
type Repository interface {
	// CreateStore inserts a store; a taken slug yields a Conflict.
	CreateStore(ctx context.Context, s *Store) error

	// GetStore returns NotFound for an unknown ID.
	GetStore(ctx context.Context, id uuid.UUID) (*Store, error)

	// UpdateStore persists name, description, visibility, status and owner.
	UpdateStore(ctx context.Context, s *Store) error
}

// MemberRepository defines membership storage.
type MemberRepository interface {
	CreateMember(ctx context.Context, m *Member) error

	// GetMember returns the (store, user) membership whether or not it is active.
	GetMember(ctx context.Context, storeID, userID uuid.UUID) (*Member, error)

	// UpdateMember persists role, permissions and the active flag.
	UpdateMember(ctx context.Context, m *Member) error

	ListMembers(ctx context.Context, storeID uuid.UUID) ([]*Member, error)
}

// GrantRepository defines access grant storage.
type GrantRepository interface {
	CreateGrant(ctx context.Context, g *AccessGrant) error

	// FindActiveGrant returns the grant that is neither revoked nor expired at now,
	// or NotFound.
	FindActiveGrant(ctx context.Context, storeID, userID uuid.UUID, now time.Time) (*AccessGrant, error)

	// RevokeGrant marks the grant revoked at revokedAt.
	RevokeGrant(ctx context.Context, grantID uuid.UUID, revokedAt time.Time) error

	// ListGrants returns every grant of the store, newest first.
	ListGrants(ctx context.Context, storeID uuid.UUID) ([]*AccessGrant, error)
}
