package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// OfferInput carries the catalog fields that influence a unit price.
type OfferInput struct {
	PriceCents           int64
	ProductOfferPercent  int
	ProductOfferActive   bool
	OfferPriceCents      int64
	CategoryOfferPercent int
	CategoryOfferActive  bool
}

// EffectiveUnitPrice resolves the price a buyer pays for one unit. An active
// fixed offer price wins outright; otherwise the larger of the product and
// category percentage offers applies. Overlapping offers never stack.
func EffectiveUnitPrice(in OfferInput) int64 {
	if in.PriceCents <= 0 {
		return 0
	}
	if in.ProductOfferActive && in.OfferPriceCents > 0 && in.OfferPriceCents < in.PriceCents {
		return in.OfferPriceCents
	}

	percent := 0
	if in.ProductOfferActive && in.ProductOfferPercent > percent {
		percent = in.ProductOfferPercent
	}
	if in.CategoryOfferActive && in.CategoryOfferPercent > percent {
		percent = in.CategoryOfferPercent
	}
	if percent <= 0 {
		return in.PriceCents
	}
	if percent >= 100 {
		return 0
	}

	price := decimal.NewFromInt(in.PriceCents)
	factor := oneHundred.Sub(decimal.NewFromInt(int64(percent))).Div(oneHundred)
	return price.Mul(factor).Round(0).IntPart()
}

// OfferInputFor builds an OfferInput from a product and its category.
func OfferInputFor(product *models.Product, category *models.Category) OfferInput {
	in := OfferInput{
		PriceCents:          product.PriceCents,
		ProductOfferPercent: product.OfferPercent,
		ProductOfferActive:  product.OfferActive,
		OfferPriceCents:     product.OfferPriceCents,
	}
	if category != nil {
		in.CategoryOfferPercent = category.OfferPercent
		in.CategoryOfferActive = category.OfferActive
	}
	return in
}

// Line is one priced quote row.
type Line struct {
	VariantID      string `json:"variant_id"`
	ProductName    string `json:"product_name"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Quote is the priced view of a cart before an order is committed.
type Quote struct {
	Lines         []Line  `json:"lines"`
	SubtotalCents int64   `json:"subtotal_cents"`
	DiscountCents int64   `json:"discount_cents"`
	TotalCents    int64   `json:"total_cents"`
	CouponCode    *string `json:"coupon_code,omitempty"`
}

// Subtotal sums the line totals.
func Subtotal(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		total += line.LineTotalCents
	}
	return total
}

// CouponDiscount computes the order-level discount for a coupon against a
// subtotal. The discount is the coupon rate applied to the subtotal, capped
// at the coupon's maximum, and never exceeds the subtotal itself.
func CouponDiscount(coupon *models.Coupon, subtotalCents int64) (int64, error) {
	if coupon == nil {
		return 0, nil
	}
	if subtotalCents < coupon.MinPurchaseCents {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order total below coupon minimum purchase").WithDetails(map[string]any{
			"min_purchase_cents": coupon.MinPurchaseCents,
		})
	}

	raw := decimal.NewFromInt(subtotalCents).
		Mul(decimal.NewFromInt(int64(coupon.DiscountRate))).
		Div(oneHundred).
		Round(0).
		IntPart()

	if coupon.MaxDiscountCents > 0 && raw > coupon.MaxDiscountCents {
		raw = coupon.MaxDiscountCents
	}
	if raw > subtotalCents {
		raw = subtotalCents
	}
	if raw < 0 {
		raw = 0
	}
	return raw, nil
}
