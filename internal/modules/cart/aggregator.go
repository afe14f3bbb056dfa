package cart

import (
	"bytes"
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/modules/store"
)

// Aggregator groups a user's cart by owning store.
type Aggregator struct {
	repo Repository
}

func NewAggregator(repo Repository) *Aggregator { return &Aggregator{repo: repo} }

// GroupByStore is a pure read. Lines of Closed stores and inactive products are
// reported in Unavailable rather than dropped.
func (a *Aggregator) GroupByStore(ctx context.Context, userID uuid.UUID) (*Grouped, error) {
	lines, err := a.repo.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Group(lines), nil
}

// Group is the grouping rule on already loaded lines.
func Group(lines []Line) *Grouped {
	g := &Grouped{Stores: []StoreGroup{}, Unavailable: []UnavailableLine{}}
	byStore := map[uuid.UUID]int{}

	sorted := append([]Line(nil), lines...)
	SortLines(sorted)

	for _, l := range sorted {
		switch {
		case l.StoreStatus == store.StatusClosed:
			g.Unavailable = append(g.Unavailable, UnavailableLine{Line: l, Reason: ReasonStoreClosed})
			continue
		case !l.ProductActive:
			g.Unavailable = append(g.Unavailable, UnavailableLine{Line: l, Reason: ReasonProductInactive})
			continue
		}

		idx, ok := byStore[l.StoreID]
		if !ok {
			idx = len(g.Stores)
			byStore[l.StoreID] = idx
			g.Stores = append(g.Stores, StoreGroup{StoreID: l.StoreID, StoreStatus: l.StoreStatus, Subtotal: decimal.Zero})
		}
		sg := &g.Stores[idx]
		sg.Lines = append(sg.Lines, l)
		sg.Subtotal = sg.Subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return g
}

// SortLines orders by store ID then product ID, the lock order used by checkout.
func SortLines(lines []Line) {
	sort.Slice(lines, func(i, j int) bool {
		if c := bytes.Compare(lines[i].StoreID[:], lines[j].StoreID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(lines[i].ProductID[:], lines[j].ProductID[:]) < 0
	})
}

func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}
