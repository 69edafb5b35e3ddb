package tax_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "%s: want %s, got %s", msg, want, got)
}

func TestRoundHalf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"15.2", "15"},
		{"15.25", "15"},
		{"15.3", "15.5"},
		{"15.75", "16"},
		{"30.5084745762711864", "30.5"},
		{"27.4576", "27.5"},
		{"99.99", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assertDec(t, tt.want, tax.RoundHalf(dec(tt.in)), "RoundHalf")
		})
	}
}

// Two units at 100 with 18% GST, billed inside the registered state.
func TestApply_IntraStateSplit(t *testing.T) {
	item := domain.CartItem{SKU: "ABCDEFGHIJKLMNO", Price: dec("100"), GST: dec("18"), Qty: 2}

	require.NoError(t, tax.Apply(&item, true))

	assertDec(t, "200", item.Total, "total")
	assertDec(t, "15", item.CGST, "cgst")
	assertDec(t, "15", item.SGST, "sgst")
	assertDec(t, "0", item.IGST, "igst")

	split, err := tax.Compute(item.Total, item.GST, true)
	require.NoError(t, err)
	assertDec(t, "30.5", split.Amount, "gst amount")
}

func TestApply_InterStateSplit(t *testing.T) {
	item := domain.CartItem{SKU: "ABCDEFGHIJKLMNO", Price: dec("100"), GST: dec("18"), Qty: 2}

	require.NoError(t, tax.Apply(&item, false))

	assertDec(t, "30.5", item.IGST, "igst")
	assertDec(t, "0", item.CGST, "cgst")
	assertDec(t, "0", item.SGST, "sgst")
}

func TestApply_DiscountReducesTaxableTotal(t *testing.T) {
	item := domain.CartItem{Price: dec("100"), GST: dec("18"), Qty: 2, Discount: dec("20")}

	require.NoError(t, tax.Apply(&item, false))

	assertDec(t, "180", item.Total, "total")
	assertDec(t, "27.5", item.IGST, "180 - 180*100/118 = 27.46")
}

func TestApply_Idempotent(t *testing.T) {
	for _, intra := range []bool{true, false} {
		item := domain.CartItem{Price: dec("349"), GST: dec("12"), Qty: 3, Discount: dec("52.35")}

		require.NoError(t, tax.Apply(&item, intra))
		first := item
		require.NoError(t, tax.Apply(&item, intra))

		assert.True(t, first.Total.Equal(item.Total))
		assert.True(t, first.CGST.Equal(item.CGST))
		assert.True(t, first.IGST.Equal(item.IGST))
	}
}

func TestApply_ExactlyOnePairCharged(t *testing.T) {
	tests := []struct {
		name  string
		price string
		gst   string
		qty   int
	}{
		{"18 percent", "100", "18", 2},
		{"12 percent", "749", "12", 1},
		{"5 percent", "1299", "5", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, intra := range []bool{true, false} {
				item := domain.CartItem{Price: dec(tt.price), GST: dec(tt.gst), Qty: tt.qty}
				require.NoError(t, tax.Apply(&item, intra))

				stateSide := !item.CGST.IsZero() || !item.SGST.IsZero()
				assert.NotEqual(t, stateSide, !item.IGST.IsZero(), "intra=%v", intra)
				assert.True(t, item.CGST.Equal(item.SGST))
			}
		})
	}
}

func TestApply_ZeroRate(t *testing.T) {
	item := domain.CartItem{Price: dec("250"), GST: dec("0"), Qty: 2}

	require.NoError(t, tax.Apply(&item, true))

	assertDec(t, "500", item.Total, "total")
	assertDec(t, "0", item.CGST, "cgst")
}

func TestApply_NegativeRate(t *testing.T) {
	item := domain.CartItem{Price: dec("100"), GST: dec("-1"), Qty: 1}

	err := tax.Apply(&item, true)

	assert.ErrorIs(t, err, tax.ErrInvalidRate)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
