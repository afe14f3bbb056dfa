package permission

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
	RoleCustom  Role = "CUSTOM"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleStaff, RoleCustom:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

var (
	ownerSet = NewSet(All()...)

	adminSet = NewSet(
		ViewProducts, CreateProducts, EditProducts, DeleteProducts,
		ViewOrders, ProcessOrders, CancelOrders,
		ViewMembers, InviteMembers, EditPermissions,
		GrantAccess, RevokeAccess,
		ViewStats, ExportReports,
		UpdateStore, ChangeStoreStatus,
		AddToCart, PlaceOrder,
	)

	managerSet = NewSet(
		ViewProducts, CreateProducts, EditProducts, DeleteProducts,
		ViewOrders, ProcessOrders,
		ViewStats,
	)

	staffSet = NewSet(ViewProducts, ViewOrders)
)

// Effective resolves the capability set of a membership. The custom set is
// used verbatim for RoleCustom and ignored for every predefined role.
func Effective(role Role, custom Set) Set {
	switch role {
	case RoleOwner:
		return ownerSet
	case RoleAdmin:
		return adminSet
	case RoleManager:
		return managerSet
	case RoleStaff:
		return staffSet
	case RoleCustom:
		return custom
	}
	return 0
}

// CanManageStatus reports whether role keeps status-management capabilities on
// a store that is not Active.
func CanManageStatus(role Role) bool {
	return role == RoleOwner || role == RoleAdmin
}

// AccessLevel is the storefront level conferred by an access grant.
type AccessLevel string

const (
	LevelView       AccessLevel = "VIEW"
	LevelViewAndBuy AccessLevel = "VIEW_AND_BUY"
)

func ParseAccessLevel(s string) (AccessLevel, error) {
	l := AccessLevel(strings.ToUpper(strings.TrimSpace(s)))
	switch l {
	case LevelView, LevelViewAndBuy:
		return l, nil
	}
	return "", fmt.Errorf("unknown access level %q", s)
}

func (l AccessLevel) Capabilities() Set {
	switch l {
	case LevelView:
		return NewSet(ViewProducts)
	case LevelViewAndBuy:
		return NewSet(ViewProducts, AddToCart, PlaceOrder)
	}
	return 0
}

// PublicDefaults is what any active user may do on a Public, Active store.
// Purchase is included on purpose: a public storefront sells to anyone, so
// narrowing this to ViewProducts would stop every non-member buyer.
func PublicDefaults() Set {
	return NewSet(ViewProducts, AddToCart, PlaceOrder)
}
