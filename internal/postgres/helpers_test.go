package postgres

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/domain"
)

func TestParseDecimals(t *testing.T) {
	var price, gst decimal.Decimal

	err := parseDecimals([]*decimal.Decimal{&price, &gst}, []string{"749.00", "12.00"})

	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(749)))
	assert.True(t, gst.Equal(decimal.NewFromInt(12)))

	err = parseDecimals([]*decimal.Decimal{&price}, []string{"NaN?"})
	assert.Error(t, err)
}

func TestNullText(t *testing.T) {
	assert.Nil(t, nullText(""))
	require.NotNil(t, nullText("9876543210"))
	assert.Equal(t, "9876543210", *nullText("9876543210"))

	assert.Equal(t, "", textOrEmpty(nil))
	s := "x"
	assert.Equal(t, "x", textOrEmpty(&s))
}

func TestEncodeOrder(t *testing.T) {
	refs := domain.OrderRefs{UserID: uuid.New(), OrderID: uuid.New(), BillToID: uuid.New()}
	refs.ShipToID = refs.BillToID
	c := &domain.CheckoutState{
		Items: []domain.CartItem{{
			SKU: "KURTABLUE000001", Title: "Blue Kurta", Price: decimal.NewFromInt(100),
			GST: decimal.NewFromInt(18), Qty: 2, Total: decimal.NewFromInt(200),
		}},
		BillTo:   &domain.Address{Name: "Asha Rao", StreetAddress: "12 Marine Drive, Churchgate", PostalCode: "400020", State: "Maharashtra"},
		Subtotal: decimal.NewFromInt(200),
		Shipping: decimal.NewFromInt(40),
		Total:    decimal.RequireFromString("240.50"),
	}

	cols, err := encodeOrder(refs, c)

	require.NoError(t, err)
	assert.Equal(t, []string{}, cols.offers, "applied_offers is NOT NULL")
	assert.Equal(t, "200", cols.subtotal)
	assert.Equal(t, "240.5", cols.total)
	assert.Equal(t, "0", cols.itemDisc)

	var billTo domain.Address
	require.NoError(t, json.Unmarshal(cols.billTo, &billTo))
	assert.Equal(t, refs.BillToID, billTo.ID)
	assert.Equal(t, refs.UserID, billTo.UserID)
	assert.Equal(t, uuid.Nil, c.BillTo.ID, "checkout address is not modified")

	var items []domain.CartItem
	require.NoError(t, json.Unmarshal(cols.items, &items))
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Qty)
}
