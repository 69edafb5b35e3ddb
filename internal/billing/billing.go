package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for payment processing.
// Implementations follow the order-then-pay model: the server creates a
// provider order for the checkout total, the customer pays it in the
// browser, and the server verifies the signed callback.
type Provider interface {
	// Name identifies the provider in stored orders and logs.
	Name() string

	// KeyID is the public key handed to the browser widget.
	KeyID() string

	// CreateOrder registers an amount to be collected.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*ProviderOrder, error)

	// VerifyPayment checks the signature returned by the payment widget.
	// It returns ErrInvalidSignature when the signature does not match.
	VerifyPayment(ctx context.Context, params VerifyPaymentParams) error
}

// CreateOrderParams contains parameters for creating a provider order.
type CreateOrderParams struct {
	// Amount in major units (rupees). Providers convert to minor units.
	Amount decimal.Decimal

	// Currency code (ISO 4217), e.g. "INR"
	Currency string

	// Receipt is our order id, echoed back by the provider
	Receipt string

	Notes map[string]string
}

// ProviderOrder is an order registered with the payment provider.
type ProviderOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Status      string
	CreatedAt   time.Time
}

// VerifyPaymentParams is the signed callback of a completed payment.
type VerifyPaymentParams struct {
	ProviderOrderID string
	PaymentID       string
	Signature       string
}

// ToMinorUnits converts a major unit amount to paise.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
