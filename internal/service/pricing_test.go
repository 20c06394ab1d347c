package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/models"
)

func TestUnitPricesUsesOriginalPriceOnlyWhenHigher(t *testing.T) {
	original, off := unitPrices(&models.Product{Price: 799, OriginalPrice: 999})
	assert.Equal(t, "999", original.String())
	assert.Equal(t, "200", off.String())

	original, off = unitPrices(&models.Product{Price: 799, OriginalPrice: 500})
	assert.Equal(t, "799", original.String())
	assert.True(t, off.IsZero())

	original, off = unitPrices(&models.Product{Price: 799})
	assert.Equal(t, "799", original.String())
	assert.True(t, off.IsZero())
}

func TestComputeTotals(t *testing.T) {
	lines := []CartLineView{
		{Product: &models.Product{Price: 799, OriginalPrice: 999}, Quantity: 2},
		{Product: &models.Product{Price: 0.1, OriginalPrice: 0.3}, Quantity: 3},
		{Product: nil, Quantity: 5},
	}

	totals := computeTotals(lines)

	assert.Equal(t, 5, totals.ItemCount)
	assert.Equal(t, 1998.9, totals.BagTotal)
	assert.Equal(t, 400.6, totals.DiscountTotal)
	assert.Equal(t, 0.0, totals.CouponDiscount)
	assert.Equal(t, 1598.3, totals.GrandTotal)
	assert.InDelta(t, totals.BagTotal-totals.DiscountTotal-totals.CouponDiscount, totals.GrandTotal, 1e-9)
}

func TestComputeTotalsEmpty(t *testing.T) {
	assert.Equal(t, Totals{}, computeTotals(nil))
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "2.1", lineTotal(&models.Product{Price: 0.7}, 3).String())
}
