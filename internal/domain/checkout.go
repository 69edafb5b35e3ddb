package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutStage is the position of a session in the checkout flow.
type CheckoutStage string

const (
	StageEmpty          CheckoutStage = "EMPTY"
	StageItemsReserved  CheckoutStage = "ITEMS_RESERVED"
	StageDetailsEntered CheckoutStage = "DETAILS_ENTERED"
	StageOrderPending   CheckoutStage = "ORDER_PENDING"
	StageOrderPaid      CheckoutStage = "ORDER_PAID"
)

var stageTransitions = map[CheckoutStage][]CheckoutStage{
	StageEmpty:          {StageItemsReserved},
	StageItemsReserved:  {StageDetailsEntered, StageEmpty},
	StageDetailsEntered: {StageDetailsEntered, StageOrderPending, StageEmpty},
	StageOrderPending:   {StageOrderPending, StageDetailsEntered, StageOrderPaid, StageEmpty},
}

// CanTransition reports whether the flow may move from s to next.
func (s CheckoutStage) CanTransition(next CheckoutStage) bool {
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s CheckoutStage) Terminal() bool {
	return s == StageOrderPaid
}

// ErrStageTransition is returned for out of order checkout calls.
var ErrStageTransition = &Error{Code: EINVALID, Message: "Checkout step is not available"}

// CheckoutState is the in-progress checkout of one session.
type CheckoutState struct {
	Items            []CartItem      `json:"items"`
	BillTo           *Address        `json:"billTo,omitempty"`
	ShipTo           *Address        `json:"shipTo,omitempty"`
	User             Contact         `json:"user"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Shipping         decimal.Decimal `json:"shipping"`
	ShippingDiscount decimal.Decimal `json:"shippingDiscount"`
	ItemDiscount     decimal.Decimal `json:"itemDiscount"`
	Total            decimal.Decimal `json:"total"`
	AppliedOffers    []string        `json:"appliedOffers"`
	ContentHash      string          `json:"hash,omitempty"`
	Stage            CheckoutStage   `json:"stage"`
}

// Advance moves the checkout to next, rejecting out of order moves.
func (c *CheckoutState) Advance(next CheckoutStage) error {
	if c.Stage == "" {
		c.Stage = StageEmpty
	}
	if !c.Stage.CanTransition(next) {
		return &Error{
			Code:    ErrStageTransition.Code,
			Message: ErrStageTransition.Message,
			Err:     fmt.Errorf("%s -> %s", c.Stage, next),
		}
	}
	c.Stage = next
	return nil
}

// RecomputeTotal re-derives Total from its components.
func (c *CheckoutState) RecomputeTotal() {
	c.Total = c.Subtotal.Add(c.Shipping).Sub(c.ShippingDiscount).Sub(c.ItemDiscount)
}

// HasOffer reports whether code has already been applied.
func (c *CheckoutState) HasOffer(code string) bool {
	for _, applied := range c.AppliedOffers {
		if applied == code {
			return true
		}
	}
	return false
}

// AddOffer records code once.
func (c *CheckoutState) AddOffer(code string) {
	if !c.HasOffer(code) {
		c.AppliedOffers = append(c.AppliedOffers, code)
	}
}

// ComputeHash digests the contact block and both addresses. Stored
// addresses contribute their ID, new ones their text.
func (c *CheckoutState) ComputeHash() string {
	return sha1Hex(fmt.Sprintf("%s %s %s %s %s %s",
		c.User.FName, c.User.LName, c.User.Email, c.User.Tel,
		c.BillTo.hashText(), c.ShipTo.hashText()))
}

// DeliveryAddress is where the shipment goes.
func (c *CheckoutState) DeliveryAddress() *Address {
	if c.ShipTo != nil {
		return c.ShipTo
	}
	return c.BillTo
}

// SKUs lists the SKUs of all checkout lines.
func (c *CheckoutState) SKUs() []string {
	skus := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		skus = append(skus, it.SKU)
	}
	return skus
}

// Clone returns a deep copy that pricing can mutate.
func (c *CheckoutState) Clone() *CheckoutState {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = CloneItems(c.Items)
	if c.BillTo != nil {
		b := *c.BillTo
		cp.BillTo = &b
	}
	if c.ShipTo != nil {
		s := *c.ShipTo
		cp.ShipTo = &s
	}
	cp.AppliedOffers = append([]string(nil), c.AppliedOffers...)
	return &cp
}

// =============================================================================
// CHECKOUT SERVICE
// =============================================================================

// CheckoutService is the checkout state aggregator. Every call operates on
// the caller's session, which the caller persists afterwards.
type CheckoutService interface {
	// Enter reserves stock for the session cart and opens the checkout.
	Enter(ctx context.Context, sess *SessionContext) (*EnterResult, error)

	// SubmitDetails validates contact and address input and reprices the
	// checkout when anything changed.
	SubmitDetails(ctx context.Context, sess *SessionContext, in DetailsInput) (*PricedCheckout, error)

	// ApplyOffer applies a promotional code to the priced checkout.
	ApplyOffer(ctx context.Context, sess *SessionContext, code string) (*CheckoutState, error)

	// Review returns the current priced checkout.
	Review(ctx context.Context, sess *SessionContext) (*PricedCheckout, error)

	// RequestPaymentOrder creates or updates the pending order and returns
	// what the payment widget needs.
	RequestPaymentOrder(ctx context.Context, sess *SessionContext) (*PaymentOrder, error)

	// Finalize commits a paid order.
	Finalize(ctx context.Context, sess *SessionContext, in FinalizeInput) (*FinalizeResult, error)

	// Abandon releases reservations and drops the checkout.
	Abandon(ctx context.Context, sess *SessionContext) error
}

// EnterResult is what the checkout page shows on entry.
type EnterResult struct {
	Items      []CartItem  `json:"items"`
	ErrorItems []ErrorItem `json:"errorItems"`
	BillTo     *Address    `json:"billTo"`
	ShipTo     *Address    `json:"shipTo"`
	User       *Contact    `json:"user,omitempty"`
	Addresses  []Address   `json:"addresses,omitempty"`
}

// DetailsInput is the submitted checkout form, keyed the way the form
// names its fields.
type DetailsInput struct {
	FName string
	LName string
	Email string
	Tel   string

	BillTo Address
	// SameShipTo ships to the billing address.
	SameShipTo bool
	ShipTo     Address

	// Logged-in customers with an address book pick a stored shipping
	// address or add a new one.
	ShipToID  uuid.UUID
	AddShipTo bool
}

// PricedCheckout is the checkout summary plus the offers on display.
type PricedCheckout struct {
	Checkout *CheckoutState `json:"checkout"`
	Offers   []Offer        `json:"offers"`
	Repriced bool           `json:"repriced"`
}

// PaymentOrder is handed to the payment widget.
type PaymentOrder struct {
	Key            string          `json:"key"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentOrderID string          `json:"payment_order_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Prefill        Prefill         `json:"prefill"`
}

// Prefill seeds the payment widget form.
type Prefill struct {
	Name string `json:"name"`
}

// FinalizeInput is the payment callback.
type FinalizeInput struct {
	OrderID         uuid.UUID
	PaymentID       string
	ProviderOrderID string
	Signature       string
}

// FinalizeResult reports the outcome of finalization.
type FinalizeResult struct {
	Success      bool      `json:"success"`
	OrderID      uuid.UUID `json:"orderId,omitempty"`
	DeliveryDate string    `json:"deliveryDate,omitempty"`
}
