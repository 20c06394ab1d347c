package service

import (
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// Totals is the price summary of a cart. It is derived on every read and
// never stored.
type Totals struct {
	ItemCount      int     `json:"itemCount"`
	BagTotal       float64 `json:"bagTotal"`
	DiscountTotal  float64 `json:"discountTotal"`
	CouponDiscount float64 `json:"couponDiscount"`
	GrandTotal     float64 `json:"grandTotal"`
}

// unitPrices returns the list price of one unit and the amount taken off it.
// A product without a higher original price is not discounted.
func unitPrices(p *models.Product) (original, discount decimal.Decimal) {
	price := decimal.NewFromFloat(p.Price)
	original = decimal.NewFromFloat(p.OriginalPrice)
	if !original.GreaterThan(price) {
		return price, decimal.Zero
	}
	return original, original.Sub(price)
}

// lineTotal is what the shopper pays for a line.
func lineTotal(p *models.Product, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(quantity)))
}

// computeTotals sums resolved lines; lines without a product are skipped.
// Coupons are not evaluated, so the coupon discount is always zero.
func computeTotals(lines []CartLineView) Totals {
	bag := decimal.Zero
	discount := decimal.Zero
	coupon := decimal.Zero
	count := 0

	for _, line := range lines {
		if line.Product == nil {
			continue
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		original, off := unitPrices(line.Product)
		bag = bag.Add(original.Mul(qty))
		discount = discount.Add(off.Mul(qty))
		count += line.Quantity
	}

	grand := bag.Sub(discount).Sub(coupon)
	return Totals{
		ItemCount:      count,
		BagTotal:       bag.Round(2).InexactFloat64(),
		DiscountTotal:  discount.Round(2).InexactFloat64(),
		CouponDiscount: coupon.InexactFloat64(),
		GrandTotal:     grand.Round(2).InexactFloat64(),
	}
}
