// Package tax splits the GST baked into tax-inclusive prices.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// ErrInvalidRate is returned for a negative GST rate on a variant.
var ErrInvalidRate = domain.Errorf(domain.EINVALID, "tax.compute", "GST rate cannot be negative")

// RoundHalf rounds d to the nearest 0.5. Exact quarter values (x.25,
// x.75) go to the even half-step, so 15.25 becomes 15.0.
func RoundHalf(d decimal.Decimal) decimal.Decimal {
	return d.Mul(two).RoundBank(0).Div(two)
}

// Split is the GST contained in a line total.
type Split struct {
	Amount decimal.Decimal
	CGST   decimal.Decimal
	SGST   decimal.Decimal
	IGST   decimal.Decimal
}

// Compute extracts the GST contained in total at ratePercent. Intra-state
// supplies split it into CGST and SGST, inter-state supplies charge IGST.
// CGST is rounded after halving the already rounded amount.
func Compute(total, ratePercent decimal.Decimal, intraState bool) (Split, error) {
	if ratePercent.IsNegative() {
		return Split{}, ErrInvalidRate
	}

	net := total.Mul(hundred).Div(hundred.Add(ratePercent))
	amount := RoundHalf(total.Sub(net))

	if intraState {
		half := RoundHalf(amount.Div(two))
		return Split{Amount: amount, CGST: half, SGST: half, IGST: decimal.Zero}, nil
	}
	return Split{Amount: amount, CGST: decimal.Zero, SGST: decimal.Zero, IGST: amount}, nil
}

// Apply prices a cart line in place: total is price*qty less the line
// discount, and the tax fields are derived from it. Calling it again with
// the same inputs gives the same result.
func Apply(item *domain.CartItem, intraState bool) error {
	item.Total = item.LineSubtotal().Sub(item.Discount)

	split, err := Compute(item.Total, item.GST, intraState)
	if err != nil {
		return err
	}

	item.CGST = split.CGST
	item.SGST = split.SGST
	item.IGST = split.IGST
	return nil
}
