package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order-related domain errors.
var (
	ErrOrderNotFound  = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrOrderMismatch  = &Error{Code: EINVALID, Message: "Order does not belong to this checkout"}
	ErrOrderNotUnpaid = &Error{Code: ECONFLICT, Message: "Order has already been paid"}
)

// OrderType distinguishes guest orders from orders of registered users.
type OrderType string

const (
	OrderTypeGuest OrderType = "GUEST"
	OrderTypeUser  OrderType = "USER"
)

// PaymentStatus moves pending -> paid exactly once.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// ShipmentStatus moves paymentPending -> processing with the payment.
type ShipmentStatus string

const (
	ShipmentPaymentPending ShipmentStatus = "paymentPending"
	ShipmentProcessing     ShipmentStatus = "processing"
)

// Order is a persisted checkout attempt.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Type             OrderType       `json:"type"`
	UserID           uuid.UUID       `json:"userId"`
	Items            []CartItem      `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Shipping         decimal.Decimal `json:"shipping"`
	ShippingDiscount decimal.Decimal `json:"shippingDiscount"`
	ItemDiscount     decimal.Decimal `json:"itemDiscount"`
	Total            decimal.Decimal `json:"total"`
	AppliedOffers    []string        `json:"appliedOffers"`
	Payment          Payment         `json:"payment"`
	BillTo           Address         `json:"billTo"`
	BillToID         uuid.UUID       `json:"billToId"`
	Shipment         Shipment        `json:"shipment"`
}

// Payment is the payment block of an order.
type Payment struct {
	Provider        string        `json:"provider"`
	Status          PaymentStatus `json:"status"`
	ID              string        `json:"id,omitempty"`
	ProviderOrderID string        `json:"orderId,omitempty"`
}

// Shipment is the delivery block of an order.
type Shipment struct {
	Status       ShipmentStatus `json:"status"`
	AddressID    uuid.UUID      `json:"addressId"`
	Address      *Address       `json:"address,omitempty"`
	DeliveryDate *time.Time     `json:"deliveryDate,omitempty"`
}

// OrderRefs are the identifiers produced by creating an order.
type OrderRefs struct {
	UserID   uuid.UUID `json:"userId"`
	OrderID  uuid.UUID `json:"orderId"`
	BillToID uuid.UUID `json:"billTo"`
	ShipToID uuid.UUID `json:"shipTo"`
}

// SharesAddress reports whether the order ships to its billing address.
func (r OrderRefs) SharesAddress() bool {
	return r.BillToID == r.ShipToID
}

// CreateOrderParams carries everything the create transaction writes.
type CreateOrderParams struct {
	Checkout        *CheckoutState
	Type            OrderType
	UserID          uuid.UUID // USER orders only
	UpdateTel       bool
	PaymentProvider string
}

// UpdateOrderParams targets the records created for an earlier attempt.
type UpdateOrderParams struct {
	Checkout  *CheckoutState
	Type      OrderType
	UpdateTel bool
	Refs      OrderRefs
}

// FinalizeParams commits a payment.
type FinalizeParams struct {
	SessionID       string
	SKUs            []string
	OrderID         uuid.UUID
	PaymentID       string
	ProviderOrderID string
}

// OrderStore persists orders together with their customer and address
// records. Create, Update and Finalize each run in one transaction and
// leave nothing behind on failure.
type OrderStore interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*OrderRefs, error)
	UpdateOrder(ctx context.Context, params UpdateOrderParams) (*OrderRefs, error)

	// Finalize consumes the session's reservations for SKUs and marks the
	// order paid. ErrUnreserveFailed or ErrUpdateOrderFailed roll it back.
	Finalize(ctx context.Context, params FinalizeParams) error

	SetDeliveryDate(ctx context.Context, orderID uuid.UUID, date time.Time) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
}

// OrderService is the order lifecycle manager.
type OrderService interface {
	// CreateOrder persists a pending order for the session's checkout,
	// registers it with the payment provider and records it on the session.
	CreateOrder(ctx context.Context, sess *SessionContext) (*SessionOrder, error)

	// UpdateOrder rewrites the pending order after the customer edited
	// their details or applied an offer. A new provider order is opened
	// when the total changed.
	UpdateOrder(ctx context.Context, sess *SessionContext) (*SessionOrder, error)

	// Finalize verifies the payment, marks the order paid, consumes the
	// reservations and derives the delivery date.
	Finalize(ctx context.Context, sess *SessionContext, in FinalizeInput) (*FinalizeResult, error)

	// GetOrder returns an order placed by the session's user, or by the
	// session itself for guests.
	GetOrder(ctx context.Context, sess *SessionContext, orderID uuid.UUID) (*Order, error)
}
