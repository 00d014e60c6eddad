package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecolognehub/colognehub-backend/pkg/config"
)

func checkoutCfg() config.CheckoutConfig {
	return config.CheckoutConfig{
		FreeShippingCents:  50000,
		FlatShippingCents:  999,
		TaxRateBasisPoints: 800,
	}
}

func TestComputeFlatShippingAndTax(t *testing.T) {
	quote, err := Compute([]Line{
		{UnitPriceCents: 12000, Qty: 2},
	}, 0, checkoutCfg())
	require.NoError(t, err)

	assert.Equal(t, 24000, quote.SubtotalCents)
	assert.Equal(t, 999, quote.ShippingCents)
	assert.Equal(t, 1920, quote.TaxCents)
	assert.Equal(t, 26919, quote.TotalCents)
	assert.NoError(t, quote.Check())
}

func TestComputeFreeShippingThreshold(t *testing.T) {
	quote, err := Compute([]Line{
		{UnitPriceCents: 25000, Qty: 2},
	}, 0, checkoutCfg())
	require.NoError(t, err)
	assert.Zero(t, quote.ShippingCents)

	// The threshold applies to the discounted subtotal, so a promo can pull
	// an order back under it.
	quote, err = Compute([]Line{
		{UnitPriceCents: 25000, Qty: 2},
	}, 100, checkoutCfg())
	require.NoError(t, err)
	assert.Equal(t, 999, quote.ShippingCents)
}

func TestComputeClampsPromoDiscount(t *testing.T) {
	quote, err := Compute([]Line{
		{UnitPriceCents: 1000, Qty: 1},
	}, 5000, checkoutCfg())
	require.NoError(t, err)

	assert.Equal(t, 1000, quote.PromoDiscountCents)
	assert.Zero(t, quote.TaxCents)
	assert.Equal(t, 999, quote.TotalCents)
	assert.NoError(t, quote.Check())
}

func TestComputeTaxRoundsHalfUp(t *testing.T) {
	// 8% of 1306 is 104.48 -> 104; 8% of 1307 is 104.56 -> 105.
	quote, err := Compute([]Line{{UnitPriceCents: 1306, Qty: 1}}, 0, checkoutCfg())
	require.NoError(t, err)
	assert.Equal(t, 104, quote.TaxCents)

	quote, err = Compute([]Line{{UnitPriceCents: 1307, Qty: 1}}, 0, checkoutCfg())
	require.NoError(t, err)
	assert.Equal(t, 105, quote.TaxCents)
}

func TestComputeRejectsBadInput(t *testing.T) {
	_, err := Compute(nil, 0, checkoutCfg())
	assert.Error(t, err)

	_, err = Compute([]Line{{UnitPriceCents: 1000, Qty: 0}}, 0, checkoutCfg())
	assert.Error(t, err)

	_, err = Compute([]Line{{UnitPriceCents: -1, Qty: 1}}, 0, checkoutCfg())
	assert.Error(t, err)

	_, err = Compute([]Line{{UnitPriceCents: 1000, Qty: 1}}, -1, checkoutCfg())
	assert.Error(t, err)
}

func TestQuoteCheckCatchesDrift(t *testing.T) {
	quote := Quote{
		SubtotalCents: 1000,
		ShippingCents: 999,
		TaxCents:      80,
		TotalCents:    2000,
	}
	assert.Error(t, quote.Check())

	quote.TotalCents = 2079
	assert.NoError(t, quote.Check())
}
