package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charges are the store-level adjustments applied on top of the subtotal.
type Charges struct {
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
}

// Calculator is the pluggable tax/shipping/discount policy.
type Calculator interface {
	Calculate(ctx context.Context, storeID uuid.UUID, subtotal decimal.Decimal) (Charges, error)
}

// ZeroCalculator charges nothing.
type ZeroCalculator struct{}

func (ZeroCalculator) Calculate(context.Context, uuid.UUID, decimal.Decimal) (Charges, error) {
	return Charges{Tax: decimal.Zero, Shipping: decimal.Zero, Discount: decimal.Zero}, nil
}

// RateCalculator applies a flat tax rate to the subtotal and a flat shipping fee per order.
type RateCalculator struct {
	TaxRate      decimal.Decimal
	FlatShipping decimal.Decimal
}

func (c RateCalculator) Calculate(_ context.Context, _ uuid.UUID, subtotal decimal.Decimal) (Charges, error) {
	return Charges{
		Tax:      subtotal.Mul(c.TaxRate).Round(2),
		Shipping: c.FlatShipping.Round(2),
		Discount: decimal.Zero,
	}, nil
}

// Total is subtotal + tax + shipping − discount, floored at zero and rounded to cents.
func Total(subtotal decimal.Decimal, c Charges) decimal.Decimal {
	t := subtotal.Add(c.Tax).Add(c.Shipping).Sub(c.Discount)
	if t.IsNegative() {
		return decimal.Zero
	}
	return t.Round(2)
}
