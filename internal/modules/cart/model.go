package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/modules/store"
)

// Item is a cart row; (UserID, ProductID) is unique.
type Item struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Line is a cart row joined to its product and owning store.
type Line struct {
	ItemID        uuid.UUID       `json:"item_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	StoreID       uuid.UUID       `json:"store_id"`
	Quantity      int             `json:"quantity"`
	ProductName   string          `json:"product_name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ProductActive bool            `json:"product_active"`
	StoreStatus   store.Status    `json:"store_status"`
}

// Reasons a line is reported unavailable.
const (
	ReasonStoreClosed     = "store_closed"
	ReasonProductInactive = "product_inactive"
)

type UnavailableLine struct {
	Line
	Reason string `json:"reason"`
}

// StoreGroup holds one store's checkout-eligible lines, ordered by product ID.
type StoreGroup struct {
	StoreID     uuid.UUID       `json:"store_id"`
	StoreStatus store.Status    `json:"store_status"`
	Lines       []Line          `json:"lines"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Grouped is the cart split by owning store, in ascending store ID order.
type Grouped struct {
	Stores      []StoreGroup      `json:"stores"`
	Unavailable []UnavailableLine `json:"unavailable"`
}

// Empty reports whether the cart had no rows at all.
func (g *Grouped) Empty() bool {
	return len(g.Stores) == 0 && len(g.Unavailable) == 0
}

func (g *Grouped) Store(id uuid.UUID) (StoreGroup, bool) {
	for _, sg := range g.Stores {
		if sg.StoreID == id {
			return sg, true
		}
	}
	return StoreGroup{}, false
}

// UnavailableFor returns the unavailable lines that belong to storeID.
func (g *Grouped) UnavailableFor(id uuid.UUID) []UnavailableLine {
	var out []UnavailableLine
	for _, u := range g.Unavailable {
		if u.StoreID == id {
			out = append(out, u)
		}
	}
	return out
}

// StoreIDs lists every store referenced by the cart, eligible or not, ascending.
func (g *Grouped) StoreIDs() []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, sg := range g.Stores {
		seen[sg.StoreID] = true
		ids = append(ids, sg.StoreID)
	}
	for _, u := range g.Unavailable {
		if !seen[u.StoreID] {
			seen[u.StoreID] = true
			ids = append(ids, u.StoreID)
		}
	}
	SortIDs(ids)
	return ids
}
