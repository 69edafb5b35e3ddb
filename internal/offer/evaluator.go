// Package offer applies promotional codes to a priced checkout.
package offer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/tax"
)

var hundred = decimal.NewFromInt(100)

var (
	ErrAlreadyApplied = domain.Errorf(domain.EINVALID, "", "Offer already applied")
	ErrMinAmount      = domain.Errorf(domain.EINVALID, "", "Add more items to avail offer")
	ErrNotApplicable  = domain.Errorf(domain.EINVALID, "", "Offer not applicable")
)

// Apply applies o to a copy of c and returns the copy. c itself is never
// modified, so a rejected offer leaves the checkout exactly as it was.
// Each code applies at most once per checkout.
func Apply(o domain.Offer, c *domain.CheckoutState, intraState bool) (*domain.CheckoutState, error) {
	if c.HasOffer(o.Code) {
		return nil, ErrAlreadyApplied
	}

	out := c.Clone()

	switch o.Type {
	case domain.OfferTypeShip:
		if err := applyShip(o, out); err != nil {
			return nil, err
		}
	case domain.OfferTypeItem:
		if err := applyItem(o, out, intraState); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNotApplicable
	}

	out.AddOffer(o.Code)
	out.RecomputeTotal()
	return out, nil
}

// applyShip waives the whole shipping charge once the subtotal reaches
// the offer minimum.
func applyShip(o domain.Offer, c *domain.CheckoutState) error {
	if c.Subtotal.LessThan(o.MinAmt) {
		return ErrMinAmount
	}
	c.ShippingDiscount = c.Shipping
	return nil
}

// applyItem discounts every line whose SKU contains one of the offer
// patterns and meets the minimum amount and quantity, then re-taxes it.
func applyItem(o domain.Offer, c *domain.CheckoutState, intraState bool) error {
	discounted := make(map[int]bool)

	for _, pattern := range o.SKUs {
		for i := range c.Items {
			item := &c.Items[i]
			if discounted[i] || !strings.Contains(item.SKU, pattern) {
				continue
			}

			lineSubtotal := item.LineSubtotal()
			if lineSubtotal.LessThan(o.MinAmt) || item.Qty < o.MinQty {
				continue
			}

			item.Discount = discountFor(o, lineSubtotal)
			c.ItemDiscount = c.ItemDiscount.Add(item.Discount)
			if err := tax.Apply(item, intraState); err != nil {
				return err
			}
			discounted[i] = true
		}
	}

	if len(discounted) == 0 {
		return ErrNotApplicable
	}

	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.Total)
	}
	c.Subtotal = subtotal
	return nil
}

func discountFor(o domain.Offer, lineSubtotal decimal.Decimal) decimal.Decimal {
	if o.Mode == domain.OfferModePercent {
		return lineSubtotal.Mul(o.Value).Div(hundred).Round(2)
	}
	return o.Value
}
