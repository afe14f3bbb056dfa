// Package permission holds the closed capability and role enumerations and the
// static role-to-capability matrix. It has no dependencies on storage.
package permission

import (
	"fmt"
	"strings"
)

// Capability is a single permitted action on a store.
type Capability uint8

const (
	ViewProducts Capability = iota + 1
	CreateProducts
	EditProducts
	DeleteProducts

	ViewOrders
	ProcessOrders
	CancelOrders

	ViewMembers
	InviteMembers
	EditPermissions

	GrantAccess
	RevokeAccess

	ViewStats
	ExportReports

	UpdateStore
	ChangeStoreStatus
	DeleteStore
	TransferOwnership

	AddToCart
	PlaceOrder

	capabilityEnd
)

var capabilityNames = [...]string{
	ViewProducts:      "VIEW_PRODUCTS",
	CreateProducts:    "CREATE_PRODUCTS",
	EditProducts:      "EDIT_PRODUCTS",
	DeleteProducts:    "DELETE_PRODUCTS",
	ViewOrders:        "VIEW_ORDERS",
	ProcessOrders:     "PROCESS_ORDERS",
	CancelOrders:      "CANCEL_ORDERS",
	ViewMembers:       "VIEW_MEMBERS",
	InviteMembers:     "INVITE_MEMBERS",
	EditPermissions:   "EDIT_PERMISSIONS",
	GrantAccess:       "GRANT_ACCESS",
	RevokeAccess:      "REVOKE_ACCESS",
	ViewStats:         "VIEW_STATS",
	ExportReports:     "EXPORT_REPORTS",
	UpdateStore:       "UPDATE_STORE",
	ChangeStoreStatus: "CHANGE_STORE_STATUS",
	DeleteStore:       "DELETE_STORE",
	TransferOwnership: "TRANSFER_OWNERSHIP",
	AddToCart:         "ADD_TO_CART",
	PlaceOrder:        "PLACE_ORDER",
}

// All returns every capability in declaration order.
func All() []Capability {
	out := make([]Capability, 0, capabilityEnd-1)
	for c := ViewProducts; c < capabilityEnd; c++ {
		out = append(out, c)
	}
	return out
}

func (c Capability) Valid() bool { return c >= ViewProducts && c < capabilityEnd }

func (c Capability) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CAPABILITY(%d)", uint8(c))
	}
	return capabilityNames[c]
}

// ParseCapability accepts the wire name in any case.
func ParseCapability(s string) (Capability, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for c := ViewProducts; c < capabilityEnd; c++ {
		if capabilityNames[c] == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", s)
}

func (c Capability) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid capability %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Capability) UnmarshalText(b []byte) error {
	parsed, err := ParseCapability(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// IsStorefront reports whether c belongs to the browsing/purchase path that
// access grants and public visibility can confer.
func IsStorefront(c Capability) bool {
	switch c {
	case ViewProducts, AddToCart, PlaceOrder:
		return true
	}
	return false
}

// IsPurchase reports whether c is on the purchase path.
func IsPurchase(c Capability) bool {
	return c == AddToCart || c == PlaceOrder
}

func IsReadOnly(c Capability) bool {
	switch c {
	case ViewProducts, ViewOrders, ViewMembers, ViewStats, ExportReports:
		return true
	}
	return false
}

// IsMutating reports whether c changes store state. A Suspended or Closed
// store rejects every mutating capability.
func IsMutating(c Capability) bool {
	return c.Valid() && !IsReadOnly(c)
}

// IsStatusManagement reports whether c acts on the store's lifecycle itself.
func IsStatusManagement(c Capability) bool {
	return c == ChangeStoreStatus || c == DeleteStore
}
