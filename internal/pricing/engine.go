// Package pricing prices a checkout: per-line GST, subtotal, shipping and
// the running discounts.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/offer"
	"github.com/dukerupert/fusionx/internal/shipping"
	"github.com/dukerupert/fusionx/internal/tax"
)

// ErrNoBillingAddress is returned when pricing is attempted before the
// customer supplied a billing address.
var ErrNoBillingAddress = domain.Errorf(domain.EINVALID, "", "Billing address is required")

// Engine prices checkouts against a shipping table. It holds no state
// between calls.
type Engine struct {
	table *shipping.Table
}

// NewEngine creates an engine for the given shipping table.
func NewEngine(table *shipping.Table) *Engine {
	return &Engine{table: table}
}

// IsIntraState reports whether a checkout billed to state pays CGST/SGST.
func (e *Engine) IsIntraState(state string) bool {
	return e.table.IsIntraState(state)
}

// Price returns a priced copy of c. GST is charged by billing state and
// shipping by billing state. Discounts already on the checkout are kept.
// When auto is non-nil it is applied on top, and a rejection of auto
// leaves the plain priced checkout in place.
func (e *Engine) Price(c *domain.CheckoutState, auto *domain.Offer) (*domain.CheckoutState, error) {
	if c.BillTo == nil {
		return nil, ErrNoBillingAddress
	}

	out := c.Clone()
	intra := e.table.IsIntraState(out.BillTo.State)

	subtotal := decimal.Zero
	for i := range out.Items {
		if err := tax.Apply(&out.Items[i], intra); err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(out.Items[i].Total)
	}

	out.Subtotal = subtotal
	out.Shipping = e.table.Cost(out.BillTo.State)
	// A shipping discount never exceeds the shipping charge, including
	// after the billing state moved to a cheaper tier.
	if out.ShippingDiscount.GreaterThan(out.Shipping) {
		out.ShippingDiscount = out.Shipping
	}
	if out.AppliedOffers == nil {
		out.AppliedOffers = []string{}
	}
	out.RecomputeTotal()

	if auto == nil {
		return out, nil
	}

	// The free shipping offer is re-evaluated on every pricing so the
	// waiver follows shipping cost changes.
	if out.HasOffer(auto.Code) && auto.Type == domain.OfferTypeShip {
		out.AppliedOffers = removeCode(out.AppliedOffers, auto.Code)
		out.ShippingDiscount = decimal.Zero
		out.RecomputeTotal()
	}

	withOffer, err := offer.Apply(*auto, out, intra)
	if err != nil {
		return out, nil
	}
	return withOffer, nil
}

func removeCode(codes []string, code string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c != code {
			out = append(out, c)
		}
	}
	return out
}
