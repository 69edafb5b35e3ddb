package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrSessionNotFound = &Error{Code: ENOTFOUND, Message: "Session not found"}

// SessionContext is the per-visitor state threaded through every cart and
// checkout call. Handlers load it, services mutate it, handlers save it.
type SessionContext struct {
	ID string `json:"-"`

	// UserID is uuid.Nil for guests.
	UserID uuid.UUID `json:"userId"`

	Cart         []CartItem     `json:"cart,omitempty"`
	Checkout     *CheckoutState `json:"checkout,omitempty"`
	CartReserved bool           `json:"cartReserved,omitempty"`
	UpdateOrder  bool           `json:"updateOrder,omitempty"`
	Order        *SessionOrder  `json:"order,omitempty"`

	// Cached for logged-in checkouts.
	User      *User     `json:"user,omitempty"`
	Addresses []Address `json:"addresses,omitempty"`

	ExpiresAt time.Time `json:"-"`
}

// IsLoggedIn reports whether the session belongs to a registered user.
func (s *SessionContext) IsLoggedIn() bool {
	return s.UserID != uuid.Nil
}

// Stage returns the checkout stage, EMPTY when there is no checkout.
func (s *SessionContext) Stage() CheckoutStage {
	if s.Checkout == nil || s.Checkout.Stage == "" {
		return StageEmpty
	}
	return s.Checkout.Stage
}

// ResetCheckout drops all checkout state. Reservations must already have
// been released or consumed.
func (s *SessionContext) ResetCheckout() {
	s.Checkout = nil
	s.CartReserved = false
	s.UpdateOrder = false
}

// SessionOrder tracks the pending or just-paid order of a session.
type SessionOrder struct {
	OrderRefs
	PaymentOrderID string          `json:"payOrderId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentID      string          `json:"paymentId,omitempty"`
	DeliveryDate   *time.Time      `json:"deliveryDate,omitempty"`
}

// Settled reports whether the order has been paid.
func (o *SessionOrder) Settled() bool {
	return o != nil && o.PaymentID != ""
}

// SessionStore persists sessions. Load returns ErrSessionNotFound for
// unknown or expired ids.
type SessionStore interface {
	Load(ctx context.Context, id string) (*SessionContext, error)
	Save(ctx context.Context, sess *SessionContext) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
