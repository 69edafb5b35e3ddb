package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/pricing"
	"github.com/dukerupert/fusionx/internal/shipping"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "%s: want %s, got %s", msg, want, got)
}

func newEngine(t *testing.T) *pricing.Engine {
	t.Helper()
	table, err := shipping.NewTable("MAHARASHTRA", shipping.NeighbourStates, shipping.DefaultRates)
	require.NoError(t, err)
	return pricing.NewEngine(table)
}

func checkoutTo(state string, items ...domain.CartItem) *domain.CheckoutState {
	return &domain.CheckoutState{
		Items:  items,
		BillTo: &domain.Address{Name: "Asha Rao", StreetAddress: "12 Marine Drive, Churchgate", PostalCode: "400020", State: state},
	}
}

func oneItem() domain.CartItem {
	return domain.CartItem{SKU: "ABCDEFGHIJKLMNO", Price: dec("100"), GST: dec("18"), Qty: 2}
}

func shipFree(minAmt string) *domain.Offer {
	return &domain.Offer{
		Code:     domain.FreeShippingCode,
		Type:     domain.OfferTypeShip,
		MinAmt:   dec(minAmt),
		StartAt:  time.Now().Add(-time.Hour),
		ExpiryAt: time.Now().Add(time.Hour),
	}
}

func TestEngine_Price_IntraState(t *testing.T) {
	engine := newEngine(t)

	out, err := engine.Price(checkoutTo("Maharashtra", oneItem()), nil)

	require.NoError(t, err)
	item := out.Items[0]
	assertDec(t, "200", item.Total, "line total")
	assertDec(t, "15", item.CGST, "cgst")
	assertDec(t, "15", item.SGST, "sgst")
	assertDec(t, "0", item.IGST, "igst")
	assertDec(t, "200", out.Subtotal, "subtotal")
	assertDec(t, "40", out.Shipping, "home state shipping")
	assertDec(t, "240", out.Total, "total")
	assert.Equal(t, []string{}, out.AppliedOffers)
}

func TestEngine_Price_InterState(t *testing.T) {
	engine := newEngine(t)

	out, err := engine.Price(checkoutTo("Goa", oneItem()), nil)

	require.NoError(t, err)
	assertDec(t, "30.5", out.Items[0].IGST, "igst")
	assertDec(t, "55", out.Shipping, "neighbour shipping")
	assertDec(t, "255", out.Total, "total")
}

func TestEngine_Price_AutoFreeShipping(t *testing.T) {
	engine := newEngine(t)

	t.Run("below minimum is ignored", func(t *testing.T) {
		out, err := engine.Price(checkoutTo("Kerala", oneItem()), shipFree("500"))
		require.NoError(t, err)
		assertDec(t, "0", out.ShippingDiscount, "no waiver")
		assertDec(t, "270", out.Total, "total")
		assert.Empty(t, out.AppliedOffers)
	})

	t.Run("applied when minimum met", func(t *testing.T) {
		out, err := engine.Price(checkoutTo("Kerala", oneItem()), shipFree("100"))
		require.NoError(t, err)
		assertDec(t, "70", out.ShippingDiscount, "waiver")
		assertDec(t, "200", out.Total, "total")
		assert.Equal(t, []string{"SHIPFREE"}, out.AppliedOffers)
	})
}

func TestEngine_Price_WaiverFollowsShippingCost(t *testing.T) {
	engine := newEngine(t)

	first, err := engine.Price(checkoutTo("Goa", oneItem()), shipFree("100"))
	require.NoError(t, err)
	assertDec(t, "55", first.ShippingDiscount, "goa waiver")

	first.BillTo.State = "Kerala"
	second, err := engine.Price(first, shipFree("100"))
	require.NoError(t, err)

	assertDec(t, "70", second.ShippingDiscount, "kerala waiver")
	assert.Equal(t, []string{"SHIPFREE"}, second.AppliedOffers)
}

func TestEngine_Price_ShippingDiscountCappedByShipping(t *testing.T) {
	engine := newEngine(t)

	c := checkoutTo("Kerala", oneItem())
	c.ShippingDiscount = dec("70")
	c.AppliedOffers = []string{"SHIPKERALA"}
	out, err := engine.Price(c, nil)
	require.NoError(t, err)
	assertDec(t, "70", out.ShippingDiscount, "full kerala charge waived")

	out.BillTo.State = "Maharashtra"
	moved, err := engine.Price(out, nil)
	require.NoError(t, err)

	assertDec(t, "40", moved.Shipping, "home state tier")
	assertDec(t, "40", moved.ShippingDiscount, "capped at the new charge")
	assertDec(t, moved.Subtotal.String(), moved.Total, "shipping fully waived, nothing below subtotal")
	assert.Equal(t, []string{"SHIPKERALA"}, moved.AppliedOffers)
}

func TestEngine_Price_KeepsPriorDiscounts(t *testing.T) {
	engine := newEngine(t)
	c := checkoutTo("Maharashtra", oneItem())
	c.Items[0].Discount = dec("20")
	c.ItemDiscount = dec("20")
	c.AppliedOffers = []string{"TWENTY"}

	out, err := engine.Price(c, nil)

	require.NoError(t, err)
	assertDec(t, "180", out.Items[0].Total, "discount kept on the line")
	assertDec(t, "20", out.ItemDiscount, "item discount kept")
	assertDec(t, "180", out.Subtotal, "subtotal")
	assertDec(t, "200", out.Total, "180 + 40 - 0 - 20")
	assert.Equal(t, []string{"TWENTY"}, out.AppliedOffers)
}

func TestEngine_Price_Idempotent(t *testing.T) {
	engine := newEngine(t)
	c := checkoutTo("Karnataka", oneItem(), domain.CartItem{SKU: "SHIRTRED0000001", Price: dec("749"), GST: dec("12"), Qty: 3})

	first, err := engine.Price(c, shipFree("500"))
	require.NoError(t, err)
	second, err := engine.Price(first, shipFree("500"))
	require.NoError(t, err)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.Equal(t, first.AppliedOffers, second.AppliedOffers)
}

func TestEngine_Price_DoesNotMutateInput(t *testing.T) {
	engine := newEngine(t)
	c := checkoutTo("Maharashtra", oneItem())

	_, err := engine.Price(c, nil)

	require.NoError(t, err)
	assert.True(t, c.Items[0].Total.IsZero())
	assert.True(t, c.Total.IsZero())
}

func TestEngine_Price_RequiresBillingAddress(t *testing.T) {
	engine := newEngine(t)

	_, err := engine.Price(&domain.CheckoutState{Items: []domain.CartItem{oneItem()}}, nil)

	assert.ErrorIs(t, err, pricing.ErrNoBillingAddress)
}
