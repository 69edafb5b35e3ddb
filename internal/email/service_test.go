package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePlainText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name:     "simple paragraph",
			html:     "<p>Hello, World!</p>",
			contains: []string{"Hello, World!"},
			excludes: []string{"<p>", "</p>"},
		},
		{
			name:     "line breaks",
			html:     "Line 1<br>Line 2<br/>Line 3<br />Line 4",
			contains: []string{"Line 1", "Line 2", "Line 3", "Line 4"},
			excludes: []string{"<br>", "<br/>", "<br />"},
		},
		{
			name:     "table rows",
			html:     "<table><tr><td>Kurta</td><td>x 2</td></tr></table>",
			contains: []string{"Kurta x 2"},
			excludes: []string{"<td>", "<tr>"},
		},
		{
			name:     "entities",
			html:     "Total: &#8377;240.00 &amp; free shipping &quot;SHIPFREE&quot;",
			contains: []string{"Total: ₹240.00 & free shipping", "\"SHIPFREE\""},
			excludes: []string{"&amp;", "&#8377;", "&quot;"},
		},
		{
			name:     "unterminated tag is kept",
			html:     "a < b",
			contains: []string{"a < b"},
		},
		{
			name: "empty content",
			html: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := generatePlainText(tt.html)

			for _, want := range tt.contains {
				assert.Contains(t, result, want)
			}
			for _, exclude := range tt.excludes {
				assert.NotContains(t, result, exclude)
			}
		})
	}
}

func TestGeneratePlainText_WhitespaceHandling(t *testing.T) {
	html := `
		<p>   Line with spaces   </p>
		<p></p>
		<p>Another line</p>
	`

	result := generatePlainText(html)

	assert.Equal(t, "Line with spaces\nAnother line", result)
}

func confirmation() OrderConfirmationEmail {
	return OrderConfirmationEmail{
		To:           "asha@example.com",
		OrderNumber:  "3f0c6c1e",
		CustomerName: "Asha Rao",
		OrderDate:    time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC),
		DeliveryDate: "Tue, 14 May 2024",
		Items: []OrderItem{
			{SKU: "KURTABLUE000001", Title: "Blue Kurta", Qty: 2, Total: decimal.NewFromInt(200)},
		},
		Subtotal:         decimal.NewFromInt(200),
		Shipping:         decimal.NewFromInt(40),
		ShippingDiscount: decimal.NewFromInt(40),
		Total:            decimal.NewFromInt(200),
		ShippingAddr:     Address{Name: "Asha Rao", Street: "12 Marine Drive, Churchgate", Region: "Mumbai", State: "Maharashtra", PostalCode: "400020"},
	}
}

func TestSendOrderConfirmation(t *testing.T) {
	sender := NewMockSender()
	svc, err := NewService(sender, "orders@fusionx.in", "Fusion X")
	require.NoError(t, err)

	err = svc.SendOrderConfirmation(context.Background(), confirmation())

	require.NoError(t, err)
	require.Len(t, sender.Sent, 1)
	msg := sender.Sent[0]
	assert.Equal(t, []string{"asha@example.com"}, msg.To)
	assert.Equal(t, "Fusion X <orders@fusionx.in>", msg.From)
	assert.Equal(t, "Order Confirmation - 3f0c6c1e", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "Blue Kurta")
	assert.Contains(t, msg.TextBody, "Expected delivery: Tue, 14 May 2024")
	assert.Contains(t, msg.TextBody, "Shipping discount: -₹40.00")
	assert.NotContains(t, msg.TextBody, "Item discount")
}

func TestSendOrderConfirmation_Errors(t *testing.T) {
	sender := NewMockSender()
	svc, err := NewService(sender, "orders@fusionx.in", "")
	require.NoError(t, err)

	data := confirmation()
	data.To = ""
	assert.ErrorIs(t, svc.SendOrderConfirmation(context.Background(), data), ErrInvalidToAddress)
	assert.Empty(t, sender.Sent)

	boom := errors.New("421 try again later")
	sender.SendFunc = func(ctx context.Context, email *Email) (string, error) {
		return "", boom
	}
	err = svc.SendOrderConfirmation(context.Background(), confirmation())
	assert.ErrorIs(t, err, boom)
	assert.True(t, strings.HasPrefix(sender.CallLog[0], "Send(asha@example.com"))
}
