package store

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
)

// Authorizer checks a capability and returns a Denied error when it is absent.
type Authorizer interface {
	Authorize(ctx context.Context, userID, storeID uuid.UUID, c permission.Capability) error
}

// Service manages store lifecycle and memberships.
type Service interface {
	// CreateStore creates an Active store and the creator's Owner membership atomically.
	CreateStore(ctx context.Context, ownerID uuid.UUID, req CreateStoreRequest) (*Store, error)

	// GetStore returns a store; Private stores require ViewProducts.
	GetStore(ctx context.Context, actorID, id uuid.UUID) (*Store, error)

	UpdateStore(ctx context.Context, actorID, id uuid.UUID, req UpdateStoreRequest) (*Store, error)

	// ChangeStatus moves the store between Active, Suspended and Closed.
	// Closing requires DeleteStore; other moves require ChangeStoreStatus.
	ChangeStatus(ctx context.Context, actorID, id uuid.UUID, status Status) (*Store, error)

	// TransferOwnership hands the store to another user. Only the recorded owner may call it;
	// the previous owner stays on as Admin.
	TransferOwnership(ctx context.Context, actorID, id, newOwnerID uuid.UUID) (*Store, error)

	// InviteMember, ChangeRole and RemoveMember only touch capability sets the actor already
	// holds. DeleteStore and TransferOwnership are assigned by the owner alone.
	InviteMember(ctx context.Context, actorID, storeID uuid.UUID, req InviteMemberRequest) (*Member, error)
	ChangeRole(ctx context.Context, actorID, storeID, userID uuid.UUID, req ChangeRoleRequest) (*Member, error)
	RemoveMember(ctx context.Context, actorID, storeID, userID uuid.UUID) error
	ListMembers(ctx context.Context, actorID, storeID uuid.UUID) ([]*Member, error)
}

type service struct {
	stores  Repository
	members MemberRepository
	users   user.Repository
	authz   Authorizer
	tx      database.TxManager
}

// NewService creates a new store service.
func NewService(stores Repository, members MemberRepository, users user.Repository, authz Authorizer, tx database.TxManager) Service {
	return &service{stores: stores, members: members, users: users, authz: authz, tx: tx}
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func (s *service) CreateStore(ctx context.Context, ownerID uuid.UUID, req CreateStoreRequest) (*Store, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Invalid("name is required")
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, apperror.Invalid("slug %q must be lowercase letters, digits and hyphens", req.Slug)
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	if !validVisibility(visibility) {
		return nil, apperror.Invalid("unknown visibility %q", req.Visibility)
	}

	st := &Store{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		Visibility:  visibility,
		Status:      StatusActive,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireActiveUser(ctx, ownerID); err != nil {
			return err
		}
		if err := s.stores.CreateStore(ctx, st); err != nil {
			return err
		}
		return s.members.CreateMember(ctx, &Member{
			ID:       uuid.New(),
			StoreID:  st.ID,
			UserID:   ownerID,
			Role:     permission.RoleOwner,
			IsActive: true,
		})
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("store_created",
		zap.String("store_id", st.ID.String()),
		zap.String("owner_id", ownerID.String()),
	)
	return st, nil
}

func (s *service) GetStore(ctx context.Context, actorID, id uuid.UUID) (*Store, error) {
	st, err := s.stores.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Visibility == VisibilityPrivate {
		if err := s.authz.Authorize(ctx, actorID, id, permission.ViewProducts); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *service) UpdateStore(ctx context.Context, actorID, id uuid.UUID, req UpdateStoreRequest) (*Store, error) {
	var st *Store
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.authz.Authorize(ctx, actorID, id, permission.UpdateStore); err != nil {
			return err
		}
		var err error
		if st, err = s.stores.GetStore(ctx, id); err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Invalid("name must not be empty")
			}
			st.Name = name
		}
		if req.Description != nil {
			st.Description = *req.Description
		}
		if req.Visibility != nil {
			if !validVisibility(*req.Visibility) {
				return apperror.Invalid("unknown visibility %q", *req.Visibility)
			}
			st.Visibility = *req.Visibility
		}
		return s.stores.UpdateStore(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) ChangeStatus(ctx context.Context, actorID, id uuid.UUID, status Status) (*Store, error) {
	required := permission.ChangeStoreStatus
	switch status {
	case StatusActive, StatusSuspended:
	case StatusClosed:
		required = permission.DeleteStore
	default:
		return nil, apperror.Invalid("unknown store status %q", status)
	}

	var st *Store
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.authz.Authorize(ctx, actorID, id, required); err != nil {
			return err
		}
		var err error
		if st, err = s.stores.GetStore(ctx, id); err != nil {
			return err
		}
		if st.Status == status {
			return nil
		}
		st.Status = status
		return s.stores.UpdateStore(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("store_status_changed",
		zap.String("store_id", id.String()),
		zap.String("status", string(status)),
	)
	return st, nil
}

func (s *service) TransferOwnership(ctx context.Context, actorID, id, newOwnerID uuid.UUID) (*Store, error) {
	var st *Store
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.authz.Authorize(ctx, actorID, id, permission.TransferOwnership); err != nil {
			return err
		}
		var err error
		if st, err = s.stores.GetStore(ctx, id); err != nil {
			return err
		}
		// A membership holding TransferOwnership is not enough; only the recorded owner hands over.
		if st.OwnerID != actorID {
			return apperror.Denied(permission.TransferOwnership.String())
		}
		if st.OwnerID == newOwnerID {
			return apperror.Invalid("user %s already owns store %s", newOwnerID, id)
		}
		if err := s.requireActiveUser(ctx, newOwnerID); err != nil {
			return err
		}

		previous, err := s.members.GetMember(ctx, id, st.OwnerID)
		if err != nil {
			return err
		}
		previous.Role = permission.RoleAdmin
		previous.Permissions = 0
		if err := s.members.UpdateMember(ctx, previous); err != nil {
			return err
		}

		next, err := s.members.GetMember(ctx, id, newOwnerID)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			inviter := actorID
			err = s.members.CreateMember(ctx, &Member{
				ID:        uuid.New(),
				StoreID:   id,
				UserID:    newOwnerID,
				Role:      permission.RoleOwner,
				InvitedBy: &inviter,
				IsActive:  true,
			})
		case err == nil:
			next.Role = permission.RoleOwner
			next.Permissions = 0
			next.IsActive = true
			err = s.members.UpdateMember(ctx, next)
		}
		if err != nil {
			return err
		}

		st.OwnerID = newOwnerID
		return s.stores.UpdateStore(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("store_ownership_transferred",
		zap.String("store_id", id.String()),
		zap.String("new_owner_id", newOwnerID.String()),
	)
	return st, nil
}

func (s *service) InviteMember(ctx context.Context, actorID, storeID uuid.UUID, req InviteMemberRequest) (*Member, error) {
	role, err := permission.ParseRole(string(req.Role))
	if err != nil {
		return nil, apperror.Invalid("%v", err)
	}
	if role == permission.RoleOwner {
		return nil, apperror.Invalid("the owner role is assigned only by ownership transfer")
	}

	var m *Member
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.authz.Authorize(ctx, actorID, storeID, permission.InviteMembers); err != nil {
			return err
		}
		if role == permission.RoleCustom {
			if err := s.authz.Authorize(ctx, actorID, storeID, permission.EditPermissions); err != nil {
				return err
			}
		}
		if err := s.canAssign(ctx, storeID, actorID, permission.Effective(role, customSet(role, req.Permissions))); err != nil {
			return err
		}
		if err := s.requireActiveUser(ctx, req.UserID); err != nil {
			return err
		}

		existing, err := s.members.GetMember(ctx, storeID, req.UserID)
		switch {
		case err == nil && existing.IsActive:
			return apperror.Conflict("user %s is already a member of store %s", req.UserID, storeID)
		case err == nil:
			existing.Role = role
			existing.Permissions = customSet(role, req.Permissions)
			existing.IsActive = true
			m = existing
			return s.members.UpdateMember(ctx, m)
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}

		inviter := actorID
		m = &Member{
			ID:          uuid.New(),
			StoreID:     storeID,
			UserID:      req.UserID,
			Role:        role,
			Permissions: customSet(role, req.Permissions),
			InvitedBy:   &inviter,
			IsActive:    true,
		}
		return s.members.CreateMember(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("member_invited",
		zap.String("store_id", storeID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("role", string(role)),
	)
	return m, nil
}

func (s *service) ChangeRole(ctx context.Context, actorID, storeID, userID uuid.UUID, req ChangeRoleRequest) (*Member, error) {
	role, err := permission.ParseRole(string(req.Role))
	if err != nil {
		return nil, apperror.Invalid("%v", err)
	}
	if role == permission.RoleOwner {
		return nil, apperror.Invalid("the owner role is assigned only by ownership transfer")
	}

	var m *Member
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.authz.Authorize(ctx, actorID, storeID, permission.EditPermissions); err != nil {
			return err
		}
		if err := s.guardOwner(ctx, storeID, userID); err != nil {
			return err
		}
		if m, err = s.activeMember(ctx, storeID, userID); err != nil {
			return err
		}
		if err := s.canAssign(ctx, storeID, actorID, m.Effective()); err != nil {
			return err
		}
		if err := s.canAssign(ctx, storeID, actorID, permission.Effective(role, customSet(role, req.Permissions))); err != nil {
			return err
		}
		m.Role = role
		m.Permissions = customSet(role, req.Permissions)
		return s.members.UpdateMember(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) RemoveMember(ctx context.Context, actorID, storeID, userID uuid.UUID) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.authz.Authorize(ctx, actorID, storeID, permission.EditPermissions); err != nil {
			return err
		}
		if err := s.guardOwner(ctx, storeID, userID); err != nil {
			return err
		}
		m, err := s.activeMember(ctx, storeID, userID)
		if err != nil {
			return err
		}
		if err := s.canAssign(ctx, storeID, actorID, m.Effective()); err != nil {
			return err
		}
		m.IsActive = false
		return s.members.UpdateMember(ctx, m)
	})
}

func (s *service) ListMembers(ctx context.Context, actorID, storeID uuid.UUID) ([]*Member, error) {
	if err := s.authz.Authorize(ctx, actorID, storeID, permission.ViewMembers); err != nil {
		return nil, err
	}
	return s.members.ListMembers(ctx, storeID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// guardOwner keeps the recorded owner's membership immutable.
func (s *service) guardOwner(ctx context.Context, storeID, userID uuid.UUID) error {
	st, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	if st.OwnerID == userID {
		return apperror.InvalidState("the owner's membership cannot be changed; transfer ownership first")
	}
	return nil
}

// ownerOnly capabilities are never handed on by anyone but the recorded owner.
var ownerOnly = permission.NewSet(permission.DeleteStore, permission.TransferOwnership)

// canAssign allows actorID to grant or manage the capability set only when the
// actor already holds all of it. The recorded owner may assign anything.
func (s *service) canAssign(ctx context.Context, storeID, actorID uuid.UUID, set permission.Set) error {
	st, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return err
	}
	if st.OwnerID == actorID {
		return nil
	}

	var held permission.Set
	m, err := s.members.GetMember(ctx, storeID, actorID)
	switch {
	case err == nil:
		held = m.Effective()
	case !errors.Is(err, apperror.ErrNotFound):
		return err
	}
	held &^= ownerOnly
	if held.Contains(set) {
		return nil
	}
	for _, c := range set.Capabilities() {
		if !held.Has(c) {
			return apperror.Denied(c.String())
		}
	}
	return nil
}

func (s *service) activeMember(ctx context.Context, storeID, userID uuid.UUID) (*Member, error) {
	m, err := s.members.GetMember(ctx, storeID, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, apperror.NotFound("user %s is not a member of store %s", userID, storeID)
	}
	return m, nil
}

func (s *service) requireActiveUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return apperror.NotFound("user %s not found", id)
	}
	return nil
}

func customSet(role permission.Role, requested permission.Set) permission.Set {
	if role == permission.RoleCustom {
		return requested
	}
	return 0
}

func validVisibility(v Visibility) bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}
