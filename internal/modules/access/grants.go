package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
	"github.com/georgemunganga/markethub-backend/internal/platform/metrics"
)

// GrantManager issues and revokes storefront access grants. Every write runs in
// one transaction at the same isolation level as checkout.
type GrantManager struct {
	resolver *Resolver
	stores   store.Repository
	grants   store.GrantRepository
	users    user.Repository
	tx       database.TxManager
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewGrantManager(resolver *Resolver, stores store.Repository, grants store.GrantRepository, users user.Repository,
	tx database.TxManager, clk clock.Clock, m *metrics.Metrics) *GrantManager {
	return &GrantManager{resolver: resolver, stores: stores, grants: grants, users: users, tx: tx, clock: clk, metrics: m}
}

// Grant issues a grant to targetUserID. An existing active grant for the pair is
// a Conflict; callers revoke first.
func (m *GrantManager) Grant(ctx context.Context, storeID, granterID, targetUserID uuid.UUID,
	level permission.AccessLevel, expiresAt *time.Time) (*store.AccessGrant, error) {
	level, err := permission.ParseAccessLevel(string(level))
	if err != nil {
		return nil, apperror.Invalid("%v", err)
	}
	if expiresAt != nil {
		if !expiresAt.After(m.clock.Now()) {
			return nil, apperror.Invalid("expires_at must be in the future")
		}
		utc := expiresAt.UTC()
		expiresAt = &utc
	}

	g := &store.AccessGrant{
		ID:        uuid.New(),
		StoreID:   storeID,
		UserID:    targetUserID,
		GrantedBy: granterID,
		Level:     level,
		ExpiresAt: expiresAt,
	}

	err = m.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := m.stores.GetStore(ctx, storeID); err != nil {
			return err
		}
		if err := m.resolver.Authorize(ctx, granterID, storeID, permission.GrantAccess); err != nil {
			return err
		}
		target, err := m.users.GetUserByID(ctx, targetUserID)
		if err != nil {
			return err
		}
		if !target.IsActive {
			return apperror.NotFound("user %s not found", targetUserID)
		}

		active, err := m.resolver.ResolveActive(ctx, storeID, targetUserID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperror.Conflict("user %s already holds an active grant on store %s", targetUserID, storeID)
		}
		return m.grants.CreateGrant(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	m.metrics.GrantChange("grant")
	logging.FromContext(ctx).Info("access_granted",
		zap.String("store_id", storeID.String()),
		zap.String("user_id", targetUserID.String()),
		zap.String("level", string(level)),
	)
	return g, nil
}

// Revoke marks the active grant revoked. Without an active grant it does nothing.
func (m *GrantManager) Revoke(ctx context.Context, storeID, granterID, targetUserID uuid.UUID) error {
	revoked := false
	err := m.tx.WithTransaction(ctx, func(ctx context.Context) error {
		revoked = false
		if err := m.resolver.Authorize(ctx, granterID, storeID, permission.RevokeAccess); err != nil {
			return err
		}
		active, err := m.resolver.ResolveActive(ctx, storeID, targetUserID)
		if err != nil || active == nil {
			return err
		}
		if err := m.grants.RevokeGrant(ctx, active.ID, m.clock.Now()); err != nil {
			return err
		}
		revoked = true
		return nil
	})
	if err != nil {
		return err
	}

	if revoked {
		m.metrics.GrantChange("revoke")
		logging.FromContext(ctx).Info("access_revoked",
			zap.String("store_id", storeID.String()),
			zap.String("user_id", targetUserID.String()),
		)
	}
	return nil
}

// ListGrants returns the store's full grant history for holders of GrantAccess or RevokeAccess.
func (m *GrantManager) ListGrants(ctx context.Context, storeID, actorID uuid.UUID) ([]*store.AccessGrant, error) {
	err := m.resolver.Authorize(ctx, actorID, storeID, permission.GrantAccess)
	if errors.Is(err, apperror.ErrDenied) {
		err = m.resolver.Authorize(ctx, actorID, storeID, permission.RevokeAccess)
	}
	if err != nil {
		return nil, err
	}
	return m.grants.ListGrants(ctx, storeID)
}
