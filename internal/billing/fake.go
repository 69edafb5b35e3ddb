package billing

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// FakeProvider creates orders locally and verifies callbacks with the same
// HMAC scheme as Razorpay, so the whole payment flow runs without network
// access in development. Pay stands in for the hosted payment widget.
type FakeProvider struct {
	keyID  string
	secret string
	now    func() time.Time

	mu     sync.Mutex
	orders map[string]ProviderOrder
}

// FakePayment is what the payment widget hands back to the browser after a
// successful payment.
type FakePayment struct {
	PaymentID       string `json:"razorpay_payment_id"`
	ProviderOrderID string `json:"razorpay_order_id"`
	Signature       string `json:"razorpay_signature"`
}

// NewFakeProvider creates a local provider.
func NewFakeProvider(keyID, secret string) *FakeProvider {
	return &FakeProvider{keyID: keyID, secret: secret, now: time.Now, orders: make(map[string]ProviderOrder)}
}

func (p *FakeProvider) Name() string  { return ProviderFake }
func (p *FakeProvider) KeyID() string { return p.keyID }

// CreateOrder returns an order id of the form fakepay_order_<hex>.
func (p *FakeProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*ProviderOrder, error) {
	amount := ToMinorUnits(params.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	id, err := randomID(ProviderFake + "_order_")
	if err != nil {
		return nil, err
	}

	order := ProviderOrder{
		ID:          id,
		AmountMinor: amount,
		Currency:    params.Currency,
		Receipt:     params.Receipt,
		Status:      "created",
		CreatedAt:   p.now(),
	}
	p.mu.Lock()
	p.orders[id] = order
	p.mu.Unlock()
	return &order, nil
}

// Pay settles a provider order created by this process and returns the
// signed callback the widget would post back. Each order can be paid once.
func (p *FakeProvider) Pay(ctx context.Context, providerOrderID string) (*FakePayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[providerOrderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if order.Status == "paid" {
		return nil, ErrOrderAlreadyPaid
	}

	paymentID, err := randomID(ProviderFake + "_pay_")
	if err != nil {
		return nil, err
	}
	order.Status = "paid"
	p.orders[providerOrderID] = order

	return &FakePayment{
		PaymentID:       paymentID,
		ProviderOrderID: providerOrderID,
		Signature:       Sign(p.secret, providerOrderID, paymentID),
	}, nil
}

func randomID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", providerFailure(err)
	}
	return prefix + hex.EncodeToString(b), nil
}

// VerifyPayment implements Provider.
func (p *FakeProvider) VerifyPayment(ctx context.Context, params VerifyPaymentParams) error {
	if params.Signature == "" {
		return ErrInvalidSignature
	}
	want := Sign(p.secret, params.ProviderOrderID, params.PaymentID)
	if !hmac.Equal([]byte(want), []byte(params.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the callback signature hex(HMAC-SHA256(secret,
// orderID|paymentID)).
func Sign(secret, providerOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
