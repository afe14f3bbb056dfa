package order

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/modules/inventory"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFactory_Numbers(t *testing.T) {
	f := NewFactory(clock.NewFixed(epoch))
	g := f.NewGroup(uuid.New())

	if ok := regexp.MustCompile(`^GRP-20260314-[0-9A-F]{12}$`).MatchString(g.GroupNumber); !ok {
		t.Fatalf("group number %q", g.GroupNumber)
	}
	if !g.TotalAmount.IsZero() || g.PaymentStatus != PaymentPending {
		t.Fatalf("new group must be empty and pending: %+v", g)
	}

	seen := map[string]bool{}
	orderNumber := regexp.MustCompile(`^ORD-20260314-[0-9A-F]{12}$`)
	for i := 0; i < 100; i++ {
		o := f.NewOrder(g, uuid.New(), nil, Charges{}, Address{})
		if !orderNumber.MatchString(o.OrderNumber) {
			t.Fatalf("order number %q", o.OrderNumber)
		}
		if seen[o.OrderNumber] {
			t.Fatalf("duplicate order number %q", o.OrderNumber)
		}
		seen[o.OrderNumber] = true
	}
}

func TestFactory_NewOrderTotals(t *testing.T) {
	f := NewFactory(clock.NewFixed(epoch))
	g := f.NewGroup(uuid.New())
	storeID := uuid.New()
	reservations := []inventory.Reservation{
		{ProductID: uuid.New(), StoreID: storeID, Name: "a", Quantity: 2, UnitPrice: dec("10.00")},
		{ProductID: uuid.New(), StoreID: storeID, Name: "b", Quantity: 1, UnitPrice: dec("5.50")},
	}

	tests := []struct {
		name    string
		charges Charges
		want    string
	}{
		{"no charges", Charges{}, "25.50"},
		{"tax shipping discount", Charges{Tax: dec("2.555"), Shipping: dec("5"), Discount: dec("1")}, "32.06"},
		{"discount floors at zero", Charges{Discount: dec("100")}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := f.NewOrder(g, storeID, reservations, tt.charges, Address{City: "Lusaka"})
			if !o.Subtotal.Equal(dec("25.50")) {
				t.Fatalf("subtotal = %s", o.Subtotal)
			}
			if !o.Total.Equal(dec(tt.want)) {
				t.Fatalf("total = %s, want %s", o.Total, tt.want)
			}
			if o.Status != StatusPending || o.GroupID != g.ID || o.UserID != g.UserID || len(o.Items) != 2 {
				t.Fatalf("unexpected order %+v", o)
			}
			if !o.Items[0].LineTotal.Equal(dec("20.00")) || o.Items[0].OrderID != o.ID {
				t.Fatalf("unexpected first item %+v", o.Items[0])
			}
		})
	}
}

func TestFactory_Assemble(t *testing.T) {
	f := NewFactory(clock.NewFixed(epoch))
	g := f.NewGroup(uuid.New())
	a := &Order{Total: dec("12.34")}
	b := &Order{Total: dec("0.66")}

	f.Assemble(g, []*Order{a, b})
	if !g.TotalAmount.Equal(dec("13.00")) || len(g.Orders) != 2 {
		t.Fatalf("assembled group %+v", g)
	}
}

func TestRateCalculator(t *testing.T) {
	c := RateCalculator{TaxRate: dec("0.16"), FlatShipping: dec("4.999")}
	got, err := c.Calculate(context.Background(), uuid.New(), dec("25.50"))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !got.Tax.Equal(dec("4.08")) || !got.Shipping.Equal(dec("5.00")) || !got.Discount.IsZero() {
		t.Fatalf("charges %+v", got)
	}
}
