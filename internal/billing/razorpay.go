package billing

import (
	"context"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/dukerupert/fusionx/internal/telemetry"
)

// RazorpayProvider implements Provider using the Razorpay Orders API.
type RazorpayProvider struct {
	client *razorpay.Client
	keyID  string
	secret string
}

// NewRazorpayProvider creates a Razorpay billing provider.
func NewRazorpayProvider(keyID, secret string) *RazorpayProvider {
	return &RazorpayProvider{
		client: razorpay.NewClient(keyID, secret),
		keyID:  keyID,
		secret: secret,
	}
}

func (p *RazorpayProvider) Name() string  { return ProviderRazorpay }
func (p *RazorpayProvider) KeyID() string { return p.keyID }

// CreateOrder creates a Razorpay order for the amount in paise.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*ProviderOrder, error) {
	amount := ToMinorUnits(params.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	data := map[string]interface{}{
		"amount":   amount,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}

	// The SDK has no context support; bail out early if the caller is gone.
	if err := ctx.Err(); err != nil {
		return nil, providerFailure(err)
	}

	start := time.Now()
	body, err := p.client.Order.Create(data, nil)
	if telemetry.Business != nil {
		telemetry.Business.PaymentAPILatency.WithLabelValues("create_order").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, providerFailure(err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, providerFailure(fmt.Errorf("order response without id"))
	}

	order := &ProviderOrder{
		ID:          id,
		AmountMinor: amount,
		Currency:    params.Currency,
		Receipt:     params.Receipt,
		CreatedAt:   time.Now(),
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	return order, nil
}

// VerifyPayment checks the checkout callback signature.
func (p *RazorpayProvider) VerifyPayment(ctx context.Context, params VerifyPaymentParams) error {
	if params.Signature == "" || params.ProviderOrderID == "" || params.PaymentID == "" {
		return ErrInvalidSignature
	}
	attrs := map[string]interface{}{
		"razorpay_order_id":   params.ProviderOrderID,
		"razorpay_payment_id": params.PaymentID,
	}
	if !utils.VerifyPaymentSignature(attrs, params.Signature, p.secret) {
		return ErrInvalidSignature
	}
	return nil
}
