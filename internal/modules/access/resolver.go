// Package access decides whether a user may perform a capability on a store and
// manages the storefront access grants that feed that decision.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
	"github.com/georgemunganga/markethub-backend/internal/platform/metrics"
)

// Reasons reported on a Decision.
const (
	ReasonOwner          = "owner"
	ReasonMembership     = "membership"
	ReasonAccessGrant    = "access_grant"
	ReasonPublicStore    = "public_store"
	ReasonStoreNotFound  = "store_not_found"
	ReasonUserInactive   = "user_inactive"
	ReasonStoreNotActive = "store_not_active"
	ReasonNotPermitted   = "not_permitted"
)

type Decision struct {
	Allowed    bool                  `json:"allowed"`
	Capability permission.Capability `json:"capability"`
	Reason     string                `json:"reason"`
}

// Resolver evaluates capabilities. Every read goes through the transaction
// carried by ctx when there is one, so a decision taken inside checkout sees
// exactly the grant state that transaction sees.
type Resolver struct {
	stores  store.Repository
	members store.MemberRepository
	grants  store.GrantRepository
	users   user.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewResolver(stores store.Repository, members store.MemberRepository, grants store.GrantRepository,
	users user.Repository, clk clock.Clock, m *metrics.Metrics) *Resolver {
	return &Resolver{stores: stores, members: members, grants: grants, users: users, clock: clk, metrics: m}
}

// CanPerform never fails for missing rows; a missing store, user, membership or
// grant yields a deny. The error is reserved for storage failures.
func (r *Resolver) CanPerform(ctx context.Context, userID, storeID uuid.UUID, c permission.Capability) (Decision, error) {
	d, err := r.decide(ctx, userID, storeID, c)
	if err != nil {
		return Decision{Capability: c}, err
	}
	r.metrics.PermissionDecision(d.Allowed)
	return d, nil
}

// Authorize is CanPerform reduced to an error: Denied names the missing capability.
func (r *Resolver) Authorize(ctx context.Context, userID, storeID uuid.UUID, c permission.Capability) error {
	d, err := r.CanPerform(ctx, userID, storeID, c)
	if err != nil {
		return err
	}
	if !d.Allowed {
		logging.FromContext(ctx).Info("permission_denied",
			zap.String("user_id", userID.String()),
			zap.String("store_id", storeID.String()),
			zap.String("capability", c.String()),
			zap.String("reason", d.Reason),
		)
		return apperror.Denied(c.String())
	}
	return nil
}

// ResolveActive returns the active grant for (store, user), or nil when there is none.
func (r *Resolver) ResolveActive(ctx context.Context, storeID, userID uuid.UUID) (*store.AccessGrant, error) {
	g, err := r.grants.FindActiveGrant(ctx, storeID, userID, r.clock.Now())
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve active grant: %w", err)
	}
	return g, nil
}

func (r *Resolver) decide(ctx context.Context, userID, storeID uuid.UUID, c permission.Capability) (Decision, error) {
	allow := func(reason string) (Decision, error) {
		return Decision{Allowed: true, Capability: c, Reason: reason}, nil
	}
	deny := func(reason string) (Decision, error) { return Decision{Capability: c, Reason: reason}, nil }

	if !c.Valid() {
		return deny(ReasonNotPermitted)
	}

	st, err := r.stores.GetStore(ctx, storeID)
	if errors.Is(err, apperror.ErrNotFound) {
		return deny(ReasonStoreNotFound)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load store: %w", err)
	}

	u, err := r.users.GetUserByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return deny(ReasonUserInactive)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return deny(ReasonUserInactive)
	}

	var member *store.Member
	if st.OwnerID != userID {
		member, err = r.members.GetMember(ctx, storeID, userID)
		if errors.Is(err, apperror.ErrNotFound) {
			member = nil
		} else if err != nil {
			return Decision{}, fmt.Errorf("load membership: %w", err)
		}
		if member != nil && !member.IsActive {
			member = nil
		}
	}

	// Store state is checked before roles and grants.
	if st.Status != store.StatusActive && permission.IsMutating(c) {
		role := permission.Role("")
		switch {
		case st.OwnerID == userID:
			role = permission.RoleOwner
		case member != nil:
			role = member.Role
		}
		if !permission.IsStatusManagement(c) || !permission.CanManageStatus(role) {
			return deny(ReasonStoreNotActive)
		}
	}

	if st.OwnerID == userID {
		return allow(ReasonOwner)
	}

	if member != nil {
		if member.Effective().Has(c) {
			return allow(ReasonMembership)
		}
		// Management capabilities come only from membership. Storefront
		// capabilities fall through so members keep the public defaults.
		if !permission.IsStorefront(c) {
			return deny(ReasonNotPermitted)
		}
	}

	if !permission.IsStorefront(c) {
		return deny(ReasonNotPermitted)
	}

	grant, err := r.ResolveActive(ctx, storeID, userID)
	if err != nil {
		return Decision{}, err
	}
	if grant != nil && grant.Level.Capabilities().Has(c) {
		return allow(ReasonAccessGrant)
	}

	if st.Visibility == store.VisibilityPublic && permission.PublicDefaults().Has(c) {
		return allow(ReasonPublicStore)
	}
	return deny(ReasonNotPermitted)
}
