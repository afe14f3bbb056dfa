package store_test

import (
	"errors"
	"testing"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/access"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
	"github.com/georgemunganga/markethub-backend/internal/testkit"
)

func newService(t *testing.T) (*testkit.Fixture, store.Service) {
	f := testkit.New(t)
	resolver := access.NewResolver(f.Mem, f.Mem, f.Mem, f.Mem, f.Clock, nil)
	return f, store.NewService(f.Mem, f.Mem, f.Mem, resolver, f.Mem)
}

func TestService_CreateStore(t *testing.T) {
	f, svc := newService(t)
	owner := f.User()

	st, err := svc.CreateStore(f.Ctx, owner.ID, store.CreateStoreRequest{Name: " Corner Shop ", Slug: "Corner-Shop"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if st.Name != "Corner Shop" || st.Slug != "corner-shop" {
		t.Errorf("normalised fields = %q %q", st.Name, st.Slug)
	}
	if st.Status != store.StatusActive || st.Visibility != store.VisibilityPublic {
		t.Errorf("defaults = %s %s", st.Status, st.Visibility)
	}

	m, err := f.Mem.GetMember(f.Ctx, st.ID, owner.ID)
	if err != nil || m.Role != permission.RoleOwner {
		t.Fatalf("owner membership = %+v err %v", m, err)
	}

	tests := []struct {
		name string
		req  store.CreateStoreRequest
		want error
	}{
		{"slug taken", store.CreateStoreRequest{Name: "Other", Slug: "corner-shop"}, apperror.ErrConflict},
		{"missing name", store.CreateStoreRequest{Slug: "x"}, apperror.ErrInvalid},
		{"bad slug", store.CreateStoreRequest{Name: "X", Slug: "no spaces"}, apperror.ErrInvalid},
		{"bad visibility", store.CreateStoreRequest{Name: "X", Slug: "x", Visibility: "HIDDEN"}, apperror.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateStore(f.Ctx, owner.ID, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestService_GetPrivateStore(t *testing.T) {
	f, svc := newService(t)
	owner, stranger, guest := f.User(), f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPrivate)
	f.Grant(st.ID, guest.ID, owner.ID, permission.LevelView, nil)

	if _, err := svc.GetStore(f.Ctx, stranger.ID, st.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("stranger: %v", err)
	}
	if _, err := svc.GetStore(f.Ctx, guest.ID, st.ID); err != nil {
		t.Fatalf("grant holder: %v", err)
	}
}

func TestService_Members(t *testing.T) {
	f, svc := newService(t)
	owner, admin, staff, newcomer := f.User(), f.User(), f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPublic)
	f.Member(st.ID, admin.ID, permission.RoleAdmin)
	f.Member(st.ID, staff.ID, permission.RoleStaff)

	if _, err := svc.InviteMember(f.Ctx, staff.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleStaff}); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("staff invite: %v", err)
	}
	if _, err := svc.InviteMember(f.Ctx, admin.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleOwner}); !errors.Is(err, apperror.ErrInvalid) {
		t.Fatalf("owner role invite: %v", err)
	}

	custom := permission.NewSet(permission.ViewOrders, permission.ProcessOrders)
	m, err := svc.InviteMember(f.Ctx, admin.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleCustom, Permissions: custom})
	if err != nil {
		t.Fatalf("invite custom: %v", err)
	}
	if m.Permissions != custom || *m.InvitedBy != admin.ID {
		t.Fatalf("member = %+v", m)
	}
	if _, err := svc.InviteMember(f.Ctx, admin.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleStaff}); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate invite: %v", err)
	}

	m, err = svc.ChangeRole(f.Ctx, admin.ID, st.ID, newcomer.ID, store.ChangeRoleRequest{Role: permission.RoleManager, Permissions: custom})
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if m.Role != permission.RoleManager || m.Permissions != 0 {
		t.Fatalf("custom set must be cleared for fixed roles, got %+v", m)
	}
	if _, err := svc.ChangeRole(f.Ctx, admin.ID, st.ID, owner.ID, store.ChangeRoleRequest{Role: permission.RoleStaff}); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("owner role change: %v", err)
	}

	if err := svc.RemoveMember(f.Ctx, admin.ID, st.ID, newcomer.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveMember(f.Ctx, admin.ID, st.ID, newcomer.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second remove: %v", err)
	}
	// A removed member can be invited again.
	if _, err := svc.InviteMember(f.Ctx, admin.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleStaff}); err != nil {
		t.Fatalf("re-invite: %v", err)
	}

	members, err := svc.ListMembers(f.Ctx, staff.ID, st.ID)
	if !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("staff listing members: %d %v", len(members), err)
	}
	if members, err = svc.ListMembers(f.Ctx, admin.ID, st.ID); err != nil || len(members) != 4 {
		t.Fatalf("members = %d err %v", len(members), err)
	}
}

func TestService_ChangeStatus(t *testing.T) {
	f, svc := newService(t)
	owner, admin, newcomer := f.User(), f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPublic)
	f.Member(st.ID, admin.ID, permission.RoleAdmin)

	if _, err := svc.ChangeStatus(f.Ctx, admin.ID, st.ID, store.StatusSuspended); err != nil {
		t.Fatalf("admin suspend: %v", err)
	}
	// Suspended stores refuse every other mutation.
	if _, err := svc.InviteMember(f.Ctx, admin.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleStaff}); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("invite on suspended store: %v", err)
	}
	if _, err := svc.ChangeStatus(f.Ctx, admin.ID, st.ID, store.StatusClosed); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("admin close: %v", err)
	}
	if _, err := svc.ChangeStatus(f.Ctx, admin.ID, st.ID, store.StatusActive); err != nil {
		t.Fatalf("admin reactivate: %v", err)
	}
	got, err := svc.ChangeStatus(f.Ctx, owner.ID, st.ID, store.StatusClosed)
	if err != nil || got.Status != store.StatusClosed {
		t.Fatalf("owner close: %+v %v", got, err)
	}
	if _, err := svc.ChangeStatus(f.Ctx, owner.ID, st.ID, "ARCHIVED"); !errors.Is(err, apperror.ErrInvalid) {
		t.Fatalf("unknown status: %v", err)
	}
}

func TestService_TransferOwnership(t *testing.T) {
	f, svc := newService(t)
	owner, admin, heir := f.User(), f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPublic)
	f.Member(st.ID, admin.ID, permission.RoleAdmin)

	if _, err := svc.TransferOwnership(f.Ctx, admin.ID, st.ID, heir.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("admin transfer: %v", err)
	}
	if _, err := svc.TransferOwnership(f.Ctx, owner.ID, st.ID, owner.ID); !errors.Is(err, apperror.ErrInvalid) {
		t.Fatalf("self transfer: %v", err)
	}

	got, err := svc.TransferOwnership(f.Ctx, owner.ID, st.ID, heir.ID)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got.OwnerID != heir.ID {
		t.Fatalf("owner = %s", got.OwnerID)
	}

	prev, _ := f.Mem.GetMember(f.Ctx, st.ID, owner.ID)
	next, _ := f.Mem.GetMember(f.Ctx, st.ID, heir.ID)
	if prev.Role != permission.RoleAdmin || next.Role != permission.RoleOwner {
		t.Fatalf("roles after transfer: previous %s, next %s", prev.Role, next.Role)
	}
	if _, err := svc.TransferOwnership(f.Ctx, owner.ID, st.ID, admin.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("former owner transfer: %v", err)
	}
}

func TestService_NoEscalation(t *testing.T) {
	f, svc := newService(t)
	owner, admin, lead, clerk, newcomer := f.User(), f.User(), f.User(), f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPublic)
	f.Member(st.ID, admin.ID, permission.RoleAdmin)
	f.Member(st.ID, lead.ID, permission.RoleCustom,
		permission.InviteMembers, permission.EditPermissions, permission.ViewOrders)
	f.Member(st.ID, clerk.ID, permission.RoleStaff)

	transfer := permission.NewSet(permission.TransferOwnership)
	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"admin grants itself ownership transfer", func() error {
			_, err := svc.ChangeRole(f.Ctx, admin.ID, st.ID, admin.ID, store.ChangeRoleRequest{Role: permission.RoleCustom, Permissions: transfer})
			return err
		}, "TRANSFER_OWNERSHIP"},
		{"admin grants store deletion", func() error {
			_, err := svc.ChangeRole(f.Ctx, admin.ID, st.ID, clerk.ID, store.ChangeRoleRequest{Role: permission.RoleCustom,
				Permissions: permission.NewSet(permission.ViewProducts, permission.DeleteStore)})
			return err
		}, "DELETE_STORE"},
		{"custom member invites beyond its set", func() error {
			_, err := svc.InviteMember(f.Ctx, lead.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleCustom,
				Permissions: permission.NewSet(permission.ViewOrders, permission.ProcessOrders)})
			return err
		}, "PROCESS_ORDERS"},
		{"custom member invites an admin", func() error {
			_, err := svc.InviteMember(f.Ctx, lead.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleAdmin})
			return err
		}, "VIEW_PRODUCTS"},
		{"custom member demotes an admin", func() error {
			_, err := svc.ChangeRole(f.Ctx, lead.ID, st.ID, admin.ID, store.ChangeRoleRequest{Role: permission.RoleStaff})
			return err
		}, "VIEW_PRODUCTS"},
		{"custom member removes an admin", func() error {
			return svc.RemoveMember(f.Ctx, lead.ID, st.ID, admin.ID)
		}, "VIEW_PRODUCTS"},
		{"admin takes the store", func() error {
			_, err := svc.TransferOwnership(f.Ctx, admin.ID, st.ID, admin.ID)
			return err
		}, "TRANSFER_OWNERSHIP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var e *apperror.Error
			if !errors.As(err, &e) || e.Kind != apperror.KindDenied || e.Capability != tt.want {
				t.Fatalf("got %v, want Denied(%s)", err, tt.want)
			}
		})
	}

	if m, _ := f.Mem.GetMember(f.Ctx, st.ID, admin.ID); m.Role != permission.RoleAdmin || !m.IsActive {
		t.Fatalf("admin membership changed: %+v", m)
	}
	if got, _ := f.Mem.GetStore(f.Ctx, st.ID); got.OwnerID != owner.ID {
		t.Fatalf("owner changed to %s", got.OwnerID)
	}

	// Within its own set the custom member may still invite.
	if _, err := svc.InviteMember(f.Ctx, lead.ID, st.ID, store.InviteMemberRequest{UserID: newcomer.ID, Role: permission.RoleCustom,
		Permissions: permission.NewSet(permission.ViewOrders)}); err != nil {
		t.Fatalf("invite within own set: %v", err)
	}
}

func TestService_OwnerOnlyCapabilities(t *testing.T) {
	f, svc := newService(t)
	owner, deputy, heir := f.User(), f.User(), f.User()
	st := f.Store(owner.ID, store.VisibilityPublic)
	f.Member(st.ID, deputy.ID, permission.RoleAdmin)

	// The owner may hand out owner-only capabilities.
	custom := permission.NewSet(permission.TransferOwnership, permission.InviteMembers, permission.EditPermissions, permission.ViewProducts)
	if _, err := svc.ChangeRole(f.Ctx, owner.ID, st.ID, deputy.ID, store.ChangeRoleRequest{Role: permission.RoleCustom, Permissions: custom}); err != nil {
		t.Fatalf("owner assigns transfer: %v", err)
	}

	// Holding the capability is still not enough to take or pass on the store.
	if _, err := svc.TransferOwnership(f.Ctx, deputy.ID, st.ID, heir.ID); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("deputy transfer: %v", err)
	}
	if _, err := svc.InviteMember(f.Ctx, deputy.ID, st.ID, store.InviteMemberRequest{UserID: heir.ID, Role: permission.RoleCustom,
		Permissions: permission.NewSet(permission.TransferOwnership)}); !errors.Is(err, apperror.ErrDenied) {
		t.Fatalf("deputy passes transfer on: %v", err)
	}
	if got, _ := f.Mem.GetStore(f.Ctx, st.ID); got.OwnerID != owner.ID {
		t.Fatalf("owner changed to %s", got.OwnerID)
	}
}
