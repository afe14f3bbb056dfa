package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/modules/store"
)

func line(storeID, productID uuid.UUID, qty int, price string, status store.Status, active bool) Line {
	return Line{
		ItemID:        uuid.New(),
		ProductID:     productID,
		StoreID:       storeID,
		Quantity:      qty,
		UnitPrice:     decimal.RequireFromString(price),
		ProductActive: active,
		StoreStatus:   status,
	}
}

func TestGroup(t *testing.T) {
	storeA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	storeB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	storeC := uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	p1 := uuid.MustParse("10000000-0000-0000-0000-000000000001")
	p2 := uuid.MustParse("10000000-0000-0000-0000-000000000002")
	p3 := uuid.MustParse("10000000-0000-0000-0000-000000000003")
	p4 := uuid.MustParse("10000000-0000-0000-0000-000000000004")

	t.Run("empty cart", func(t *testing.T) {
		g := Group(nil)
		if !g.Empty() || len(g.StoreIDs()) != 0 {
			t.Fatalf("expected empty grouping, got %+v", g)
		}
	})

	t.Run("splits by store and sorts", func(t *testing.T) {
		g := Group([]Line{
			line(storeB, p3, 1, "4.00", store.StatusActive, true),
			line(storeA, p2, 2, "1.25", store.StatusActive, true),
			line(storeA, p1, 1, "10.00", store.StatusActive, true),
		})
		if len(g.Stores) != 2 || g.Stores[0].StoreID != storeA || g.Stores[1].StoreID != storeB {
			t.Fatalf("unexpected store order: %+v", g.Stores)
		}
		a := g.Stores[0]
		if a.Lines[0].ProductID != p1 || a.Lines[1].ProductID != p2 {
			t.Fatalf("lines not ordered by product: %+v", a.Lines)
		}
		if !a.Subtotal.Equal(decimal.RequireFromString("12.50")) {
			t.Fatalf("subtotal = %s", a.Subtotal)
		}
	})

	t.Run("closed stores and inactive products are unavailable", func(t *testing.T) {
		g := Group([]Line{
			line(storeA, p1, 1, "10.00", store.StatusActive, true),
			line(storeA, p2, 1, "10.00", store.StatusActive, false),
			line(storeC, p4, 1, "10.00", store.StatusClosed, true),
		})
		if len(g.Stores) != 1 || len(g.Stores[0].Lines) != 1 {
			t.Fatalf("expected one eligible line, got %+v", g.Stores)
		}
		if len(g.Unavailable) != 2 {
			t.Fatalf("expected two unavailable lines, got %+v", g.Unavailable)
		}
		if r := g.UnavailableFor(storeC)[0].Reason; r != ReasonStoreClosed {
			t.Fatalf("closed store reason = %q", r)
		}
		if r := g.UnavailableFor(storeA)[0].Reason; r != ReasonProductInactive {
			t.Fatalf("inactive product reason = %q", r)
		}
		ids := g.StoreIDs()
		if len(ids) != 2 || ids[0] != storeA || ids[1] != storeC {
			t.Fatalf("store ids = %v", ids)
		}
		if _, ok := g.Store(storeC); ok {
			t.Fatalf("closed store must not have an eligible group")
		}
	})

	t.Run("suspended stores stay grouped", func(t *testing.T) {
		g := Group([]Line{line(storeB, p3, 1, "4.00", store.StatusSuspended, true)})
		sg, ok := g.Store(storeB)
		if !ok || sg.StoreStatus != store.StatusSuspended {
			t.Fatalf("expected suspended group, got %+v", g)
		}
	})
}
