package order

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/markethub-backend/internal/modules/inventory"
	"github.com/georgemunganga/markethub-backend/internal/platform/clock"
)

// Factory builds order groups and orders. It applies no business rules beyond
// numbering and totals.
type Factory struct {
	clock clock.Clock
}

func NewFactory(clk clock.Clock) *Factory { return &Factory{clock: clk} }

// NewGroup starts an empty group with a zero total and pending payment.
func (f *Factory) NewGroup(userID uuid.UUID) *Group {
	now := f.clock.Now()
	return &Group{
		ID:            uuid.New(),
		UserID:        userID,
		GroupNumber:   f.number("GRP"),
		TotalAmount:   decimal.Zero,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewOrder builds a pending order from reservations taken under lock, so the
// recorded prices are the locked ones.
func (f *Factory) NewOrder(group *Group, storeID uuid.UUID, reservations []inventory.Reservation, charges Charges, addr Address) *Order {
	now := f.clock.Now()
	o := &Order{
		ID:              uuid.New(),
		GroupID:         group.ID,
		UserID:          group.UserID,
		StoreID:         storeID,
		OrderNumber:     f.number("ORD"),
		Status:          StatusPending,
		ShippingAddress: addr,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	subtotal := decimal.Zero
	for _, r := range reservations {
		line := r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity))).Round(2)
		subtotal = subtotal.Add(line)
		o.Items = append(o.Items, &Item{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   r.ProductID,
			ProductName: r.Name,
			SKU:         r.SKU,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			LineTotal:   line,
			CreatedAt:   now,
		})
	}

	o.Subtotal = subtotal.Round(2)
	o.Tax = charges.Tax.Round(2)
	o.Shipping = charges.Shipping.Round(2)
	o.Discount = charges.Discount.Round(2)
	o.Total = Total(o.Subtotal, Charges{Tax: o.Tax, Shipping: o.Shipping, Discount: o.Discount})
	return o
}

// Assemble attaches the created orders and sets the group total to their sum.
func (f *Factory) Assemble(group *Group, orders []*Order) *Group {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total)
	}
	group.Orders = orders
	group.TotalAmount = total.Round(2)
	return group
}

// Subtotal is Σ unit price × quantity over the reservations.
func Subtotal(reservations []inventory.Reservation) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range reservations {
		sum = sum.Add(r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity))).Round(2))
	}
	return sum
}

// number creates PREFIX-YYYYMMDD-XXXXXXXXXXXX from 48 random bits of a UUIDv4.
// The unique index on the number column backs it.
func (f *Factory) number(prefix string) string {
	date := f.clock.Now().Format("20060102")
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
	return fmt.Sprintf("%s-%s-%s", prefix, date, suffix)
}
