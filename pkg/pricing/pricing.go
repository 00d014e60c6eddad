package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thecolognehub/colognehub-backend/pkg/config"
)

// Line is the minimal input needed to price one cart row.
type Line struct {
	UnitPriceCents int
	Qty            int
}

// Quote is the full pricing breakdown frozen onto an order. All fields are
// minor units; Total must always equal Subtotal - PromoDiscount + Shipping + Tax.
type Quote struct {
	SubtotalCents      int
	PromoDiscountCents int
	ShippingCents      int
	TaxCents           int
	TotalCents         int
}

var basisPointDivisor = decimal.NewFromInt(10000)

// Compute derives the quote for the given lines under the configured
// shipping and tax policy. Tax applies to the discounted subtotal and is
// rounded half-up to the nearest cent.
func Compute(lines []Line, promoDiscountCents int, cfg config.CheckoutConfig) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, fmt.Errorf("pricing: no lines to quote")
	}
	if promoDiscountCents < 0 {
		return Quote{}, fmt.Errorf("pricing: negative promo discount %d", promoDiscountCents)
	}

	subtotal := 0
	for i, line := range lines {
		if line.Qty <= 0 {
			return Quote{}, fmt.Errorf("pricing: line %d has non-positive qty %d", i, line.Qty)
		}
		if line.UnitPriceCents < 0 {
			return Quote{}, fmt.Errorf("pricing: line %d has negative unit price %d", i, line.UnitPriceCents)
		}
		subtotal += line.UnitPriceCents * line.Qty
	}

	discount := promoDiscountCents
	if discount > subtotal {
		discount = subtotal
	}
	discounted := subtotal - discount

	shipping := int(cfg.FlatShippingCents)
	if cfg.FreeShippingCents > 0 && int64(discounted) >= cfg.FreeShippingCents {
		shipping = 0
	}

	tax := taxCents(discounted, cfg.TaxRateBasisPoints)

	return Quote{
		SubtotalCents:      subtotal,
		PromoDiscountCents: discount,
		ShippingCents:      shipping,
		TaxCents:           tax,
		TotalCents:         discounted + shipping + tax,
	}, nil
}

func taxCents(discountedCents int, rateBasisPoints int64) int {
	if discountedCents <= 0 || rateBasisPoints <= 0 {
		return 0
	}
	amount := decimal.NewFromInt(int64(discountedCents)).
		Mul(decimal.NewFromInt(rateBasisPoints)).
		Div(basisPointDivisor)
	return int(amount.Round(0).IntPart())
}

// Check verifies the additive invariant on an existing breakdown.
func (q Quote) Check() error {
	expected := q.SubtotalCents - q.PromoDiscountCents + q.ShippingCents + q.TaxCents
	if q.TotalCents != expected {
		return fmt.Errorf("pricing: total %d does not match breakdown %d", q.TotalCents, expected)
	}
	return nil
}
