package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Status is the store lifecycle state. Only Active stores accept mutations.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

type Store struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Member is a (store, user) membership. Permissions is only meaningful for RoleCustom.
type Member struct {
	ID          uuid.UUID       `json:"id"`
	StoreID     uuid.UUID       `json:"store_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Role        permission.Role `json:"role"`
	Permissions permission.Set  `json:"permissions"`
	InvitedBy   *uuid.UUID      `json:"invited_by,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Effective returns the capabilities the membership confers.
func (m *Member) Effective() permission.Set {
	if m == nil || !m.IsActive {
		return 0
	}
	return permission.Effective(m.Role, m.Permissions)
}

// AccessGrant is a storefront invitation. Rows are never deleted; revocation is
// a state transition kept for audit.
type AccessGrant struct {
	ID        uuid.UUID              `json:"id"`
	StoreID   uuid.UUID              `json:"store_id"`
	UserID    uuid.UUID              `json:"user_id"`
	GrantedBy uuid.UUID              `json:"granted_by"`
	Level     permission.AccessLevel `json:"access_level"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	IsRevoked bool                   `json:"is_revoked"`
	RevokedAt *time.Time             `json:"revoked_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ActiveAt applies the revocation and expiry filter.
func (g *AccessGrant) ActiveAt(now time.Time) bool {
	if g == nil || g.IsRevoked {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// ── requests ─────────────────────────────────────────────────────────────────

type CreateStoreRequest struct {
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
}

type UpdateStoreRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Visibility  *Visibility `json:"visibility"`
}

type InviteMemberRequest struct {
	UserID      uuid.UUID       `json:"user_id"`
	Role        permission.Role `json:"role"`
	Permissions permission.Set  `json:"permissions"`
}

type ChangeRoleRequest struct {
	Role        permission.Role `json:"role"`
	Permissions permission.Set  `json:"permissions"`
}
