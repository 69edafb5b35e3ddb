package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates successful payment flows without calling the provider API.
type MockProvider struct {
	// CreateOrderFunc allows customizing order creation behavior
	CreateOrderFunc func(ctx context.Context, params CreateOrderParams) (*ProviderOrder, error)

	// VerifyPaymentFunc allows customizing signature verification behavior
	VerifyPaymentFunc func(ctx context.Context, params VerifyPaymentParams) error

	// Orders stores created orders for retrieval
	Orders map[string]*ProviderOrder

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Orders:  make(map[string]*ProviderOrder),
		CallLog: []string{},
	}
}

func (m *MockProvider) Name() string  { return "mock" }
func (m *MockProvider) KeyID() string { return "mock_key" }

// CreateOrder creates a mock provider order.
func (m *MockProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*ProviderOrder, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateOrder(%d, %s, %s)", ToMinorUnits(params.Amount), params.Currency, params.Receipt))

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}

	// Default mock behavior: the order is created
	o := &ProviderOrder{
		ID:          "order_" + uuid.New().String(),
		AmountMinor: ToMinorUnits(params.Amount),
		Currency:    params.Currency,
		Receipt:     params.Receipt,
		Status:      "created",
		CreatedAt:   time.Now(),
	}
	m.Orders[o.ID] = o
	return o, nil
}

// VerifyPayment accepts any non-empty signature unless VerifyPaymentFunc is set.
func (m *MockProvider) VerifyPayment(ctx context.Context, params VerifyPaymentParams) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("VerifyPayment(%s, %s)", params.ProviderOrderID, params.PaymentID))

	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, params)
	}
	if params.Signature == "" {
		return ErrInvalidSignature
	}
	return nil
}
