package access_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/access"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/testkit"
)

func newGrantManager(f *testkit.Fixture) (*access.Resolver, *access.GrantManager) {
	r := newResolver(f)
	return r, access.NewGrantManager(r, f.Mem, f.Mem, f.Mem, f.Mem, f.Clock, nil)
}

func TestGrantManager_Lifecycle(t *testing.T) {
	f := testkit.New(t)
	r, gm := newGrantManager(f)

	owner := f.User()
	st := f.Store(owner.ID, store.VisibilityPrivate)
	u := f.User()

	if _, err := gm.Grant(f.Ctx, st.ID, owner.ID, u.ID, permission.LevelViewAndBuy, nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := gm.Grant(f.Ctx, st.ID, owner.ID, u.ID, permission.LevelView, nil); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second grant: expected Conflict, got %v", err)
	}
	if d, _ := r.CanPerform(f.Ctx, u.ID, st.ID, permission.PlaceOrder); !d.Allowed {
		t.Fatalf("granted user should be able to buy")
	}

	if err := gm.Revoke(f.Ctx, st.ID, owner.ID, u.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if d, _ := r.CanPerform(f.Ctx, u.ID, st.ID, permission.ViewProducts); d.Allowed {
		t.Fatalf("revoked user must be denied")
	}
	if err := gm.Revoke(f.Ctx, st.ID, owner.ID, u.ID); err != nil {
		t.Fatalf("second revoke must be a no-op, got %v", err)
	}

	g, err := gm.Grant(f.Ctx, st.ID, owner.ID, u.ID, permission.LevelView, nil)
	if err != nil {
		t.Fatalf("re-grant after revoke: %v", err)
	}
	active, err := r.ResolveActive(f.Ctx, st.ID, u.ID)
	if err != nil || active == nil || active.ID != g.ID {
		t.Fatalf("active grant = %+v, err %v; want %s", active, err, g.ID)
	}

	grants, err := gm.ListGrants(f.Ctx, st.ID, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grants) != 2 || grants[0].ID != g.ID || !grants[1].IsRevoked {
		t.Fatalf("unexpected history: %+v", grants)
	}
}

func TestGrantManager_Rejections(t *testing.T) {
	f := testkit.New(t)
	_, gm := newGrantManager(f)

	owner := f.User()
	st := f.Store(owner.ID, store.VisibilityPrivate)
	manager := f.User()
	f.Member(st.ID, manager.ID, permission.RoleManager)
	target := f.User()
	inactive := f.User()
	f.Deactivate(inactive.ID)
	past := f.Clock.Now().Add(-time.Minute)

	tests := []struct {
		name    string
		storeID uuid.UUID
		granter uuid.UUID
		target  uuid.UUID
		level   permission.AccessLevel
		expires *time.Time
		want    error
	}{
		{"granter without capability", st.ID, manager.ID, target.ID, permission.LevelView, nil, apperror.ErrDenied},
		{"unknown store", uuid.New(), owner.ID, target.ID, permission.LevelView, nil, apperror.ErrNotFound},
		{"unknown target", st.ID, owner.ID, uuid.New(), permission.LevelView, nil, apperror.ErrNotFound},
		{"inactive target", st.ID, owner.ID, inactive.ID, permission.LevelView, nil, apperror.ErrNotFound},
		{"expiry in the past", st.ID, owner.ID, target.ID, permission.LevelView, &past, apperror.ErrInvalid},
		{"unknown level", st.ID, owner.ID, target.ID, permission.AccessLevel("ADMIN"), nil, apperror.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gm.Grant(f.Ctx, tt.storeID, tt.granter, tt.target, tt.level, tt.expires)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := gm.ListGrants(f.Ctx, st.ID, manager.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("manager listing grants: expected Denied, got %v", err)
	}
	if err := gm.Revoke(f.Ctx, st.ID, manager.ID, target.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("manager revoking: expected Denied, got %v", err)
	}
}
