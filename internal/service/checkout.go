package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/fusionx/internal/billing"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/offer"
	"github.com/dukerupert/fusionx/internal/postal"
	"github.com/dukerupert/fusionx/internal/pricing"
	"github.com/dukerupert/fusionx/internal/telemetry"
	"github.com/dukerupert/fusionx/internal/validate"
)

type checkoutService struct {
	cart      domain.CartService
	inventory domain.InventoryService
	orders    domain.OrderService
	users     domain.UserStore
	offers    *OfferCatalog
	postal    domain.PostalLookup
	engine    *pricing.Engine
	validator *validate.Validator
	payments  billing.Provider
	logger    *slog.Logger
}

var _ domain.CheckoutService = (*checkoutService)(nil)

// NewCheckoutService creates the checkout state aggregator.
func NewCheckoutService(
	cart domain.CartService,
	inventory domain.InventoryService,
	orders domain.OrderService,
	users domain.UserStore,
	offers *OfferCatalog,
	postalLookup domain.PostalLookup,
	engine *pricing.Engine,
	validator *validate.Validator,
	payments billing.Provider,
	logger *slog.Logger,
) domain.CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &checkoutService{
		cart:      cart,
		inventory: inventory,
		orders:    orders,
		users:     users,
		offers:    offers,
		postal:    postalLookup,
		engine:    engine,
		validator: validator,
		payments:  payments,
		logger:    logger,
	}
}

// Enter reserves the cart and opens the checkout. Entering again while the
// reservations are held returns the open checkout unchanged.
func (s *checkoutService) Enter(ctx context.Context, sess *domain.SessionContext) (*domain.EnterResult, error) {
	const op = "checkout.enter"

	if sess.CartReserved && sess.Checkout != nil {
		return s.enterResult(sess, sess.Checkout, nil), nil
	}

	items, err := s.cart.GetCart(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.WithOp(ErrCheckoutEmpty, op)
	}

	reserved, errorItems, err := s.inventory.ReserveItems(ctx, sess.ID, items)
	if err != nil {
		return nil, err
	}
	if len(reserved) == 0 {
		return s.enterResult(sess, &domain.CheckoutState{Items: reserved}, errorItems), nil
	}

	c := &domain.CheckoutState{Items: reserved, AppliedOffers: []string{}}
	if err := c.Advance(domain.StageItemsReserved); err != nil {
		return nil, domain.WithOp(err, op)
	}

	if sess.IsLoggedIn() {
		if err := s.loadCustomer(ctx, sess); err != nil {
			if relErr := s.inventory.ReleaseItems(ctx, sess.ID, reserved); relErr != nil {
				s.logger.Error("failed to release after customer load error", "session_id", sess.ID, "error", relErr)
			}
			return nil, err
		}
		c.User = sess.User.Contact()
		c.BillTo = domain.DefaultAddress(sess.Addresses)
	}

	sess.Checkout = c
	sess.CartReserved = true
	if sess.Order != nil && !sess.Order.Settled() {
		// An unpaid order from an earlier attempt must pick up the new items.
		sess.UpdateOrder = true
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutStarted.WithLabelValues(string(orderType(sess))).Inc()
	}
	return s.enterResult(sess, c, errorItems), nil
}

func (s *checkoutService) enterResult(sess *domain.SessionContext, c *domain.CheckoutState, errorItems []domain.ErrorItem) *domain.EnterResult {
	if errorItems == nil {
		errorItems = []domain.ErrorItem{}
	}
	res := &domain.EnterResult{
		Items:      c.Items,
		ErrorItems: errorItems,
		BillTo:     c.BillTo,
		ShipTo:     c.ShipTo,
	}
	if sess.IsLoggedIn() && sess.User != nil {
		contact := sess.User.Contact()
		res.User = &contact
		res.Addresses = sess.Addresses
	}
	return res
}

// loadCustomer caches the user record and address book on the session.
func (s *checkoutService) loadCustomer(ctx context.Context, sess *domain.SessionContext) error {
	user, err := s.users.GetUser(ctx, sess.UserID)
	if err != nil {
		return err
	}
	addrs, err := s.users.ListAddresses(ctx, sess.UserID)
	if err != nil {
		return err
	}
	sess.User = user
	sess.Addresses = addrs
	return nil
}

// SubmitDetails accepts the contact and address form. Input identical to
// the last accepted submission returns the priced checkout as it is.
func (s *checkoutService) SubmitDetails(ctx context.Context, sess *domain.SessionContext, in domain.DetailsInput) (*domain.PricedCheckout, error) {
	const op = "checkout.details"

	c := sess.Checkout
	if c == nil || !sess.CartReserved || !c.Stage.CanTransition(domain.StageDetailsEntered) {
		return nil, s.stageError(sess, op, domain.StageDetailsEntered)
	}

	in = trimInput(in)

	var (
		draft *domain.CheckoutState
		err   error
	)
	if sess.IsLoggedIn() {
		draft, err = s.userDetails(ctx, sess, c, in)
	} else {
		draft, err = s.guestDetails(ctx, c, in)
	}
	if err != nil {
		return nil, err
	}

	hash := draft.ComputeHash()
	if hash == c.ContentHash && c.Stage != domain.StageItemsReserved {
		offers, err := s.offers.Active(ctx)
		if err != nil {
			return nil, err
		}
		return &domain.PricedCheckout{Checkout: c, Offers: offers, Repriced: false}, nil
	}

	if err := s.verifyDetails(ctx, sess, draft); err != nil {
		return nil, err
	}

	offers, err := s.offers.Active(ctx)
	if err != nil {
		return nil, err
	}
	priced, err := s.engine.Price(draft, domain.FindOffer(offers, domain.FreeShippingCode))
	if err != nil {
		return nil, domain.WithOp(err, op)
	}

	priced.ContentHash = hash
	stampHash(priced.BillTo)
	stampHash(priced.ShipTo)
	if err := priced.Advance(domain.StageDetailsEntered); err != nil {
		return nil, domain.WithOp(err, op)
	}

	sess.Checkout = priced
	if sess.Order != nil && !sess.Order.Settled() {
		sess.UpdateOrder = true
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutStep.WithLabelValues("details").Inc()
	}
	return &domain.PricedCheckout{Checkout: priced, Offers: offers, Repriced: true}, nil
}

// guestDetails builds the candidate checkout from a guest's form.
func (s *checkoutService) guestDetails(ctx context.Context, c *domain.CheckoutState, in domain.DetailsInput) (*domain.CheckoutState, error) {
	draft := c.Clone()
	draft.User = domain.Contact{FName: in.FName, LName: in.LName, Email: in.Email, Tel: in.Tel}

	billTo := in.BillTo
	billTo.ID = uuid.Nil
	draft.BillTo = &billTo

	draft.ShipTo = nil
	if !in.SameShipTo {
		shipTo := in.ShipTo
		shipTo.ID = uuid.Nil
		draft.ShipTo = &shipTo
	}

	err := validate.Merge(
		s.validator.Contact(draft.User, true),
		s.validator.Address(validate.BillToPrefix, billTo),
		s.validateShipTo(draft.ShipTo),
	)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// userDetails builds the candidate checkout for a logged-in customer. The
// default address of the address book bills the order; a customer without
// one enters a billing address like a guest. The phone number is only
// taken from the form when the account has none.
func (s *checkoutService) userDetails(ctx context.Context, sess *domain.SessionContext, c *domain.CheckoutState, in domain.DetailsInput) (*domain.CheckoutState, error) {
	if sess.User == nil {
		if err := s.loadCustomer(ctx, sess); err != nil {
			return nil, err
		}
	}

	draft := c.Clone()
	contact := sess.User.Contact()
	requireTel := contact.Tel == ""
	if requireTel {
		contact.Tel = in.Tel
	}

	var errs []error
	if requireTel {
		errs = append(errs, s.validator.Mobile(contact.Tel))
	}

	if len(sess.Addresses) == 0 {
		if in.FName != "" {
			contact.FName = in.FName
		}
		if in.LName != "" {
			contact.LName = in.LName
		}
		errs = append(errs, s.validator.Contact(contact, false))

		billTo := in.BillTo
		billTo.ID = uuid.Nil
		draft.BillTo = &billTo
		errs = append(errs, s.validator.Address(validate.BillToPrefix, billTo))

		draft.ShipTo = nil
		if !in.SameShipTo {
			shipTo := in.ShipTo
			shipTo.ID = uuid.Nil
			draft.ShipTo = &shipTo
			errs = append(errs, s.validateShipTo(draft.ShipTo))
		}
	} else {
		billTo := domain.DefaultAddress(sess.Addresses)
		if billTo == nil {
			first := sess.Addresses[0]
			billTo = &first
		}
		draft.BillTo = billTo

		switch {
		case in.ShipToID != uuid.Nil:
			shipTo := domain.FindAddress(sess.Addresses, in.ShipToID)
			if shipTo == nil {
				return nil, domain.WithOp(ErrSelectShipTo, "checkout.details")
			}
			draft.ShipTo = shipTo
		case in.AddShipTo:
			shipTo := in.ShipTo
			shipTo.ID = uuid.Nil
			draft.ShipTo = &shipTo
			errs = append(errs, s.validateShipTo(draft.ShipTo))
		case in.SameShipTo:
			draft.ShipTo = nil
		default:
			return nil, domain.WithOp(ErrSelectShipTo, "checkout.details")
		}
	}

	draft.User = contact
	if err := validate.Merge(errs...); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *checkoutService) validateShipTo(a *domain.Address) error {
	if a == nil {
		return nil
	}
	return s.validator.Address(validate.ShipToPrefix, *a)
}

// verifyDetails checks newly entered addresses against postal data.
// Addresses from the address book were checked when they were stored.
func (s *checkoutService) verifyDetails(ctx context.Context, sess *domain.SessionContext, draft *domain.CheckoutState) error {
	if !draft.BillTo.Stored() {
		if err := s.verifyPostal(ctx, validate.BillToPrefix, draft.BillTo); err != nil {
			return err
		}
	}
	if draft.ShipTo != nil && !draft.ShipTo.Stored() {
		if err := s.verifyPostal(ctx, validate.ShipToPrefix, draft.ShipTo); err != nil {
			return err
		}
	}
	return nil
}

// verifyPostal requires region and state to match the postal directory.
func (s *checkoutService) verifyPostal(ctx context.Context, prefix string, a *domain.Address) error {
	rec, err := s.postal.Lookup(ctx, a.PostalCode)
	switch {
	case errors.Is(err, postal.ErrNotFound), errors.Is(err, postal.ErrInvalidCode):
		return domain.NewValidationError("checkout.details", prefix+"-postal-code", "Not a valid Pincode")
	case err != nil:
		return err
	}

	if !rec.Matches(a.Region, a.State) {
		s.logger.Debug("postal data mismatch",
			"postal_code", a.PostalCode,
			"region", a.Region, "state", a.State,
			"want_region", rec.District, "want_state", rec.State,
		)
		return domain.WithOp(domain.ErrPostalMismatch, "checkout.details")
	}
	return nil
}

// ApplyOffer applies code to the priced checkout. A rejected code leaves
// the checkout untouched.
func (s *checkoutService) ApplyOffer(ctx context.Context, sess *domain.SessionContext, code string) (*domain.CheckoutState, error) {
	const op = "checkout.offer"

	c := sess.Checkout
	if c == nil || c.BillTo == nil || (c.Stage != domain.StageDetailsEntered && c.Stage != domain.StageOrderPending) {
		return nil, s.stageError(sess, op, domain.StageDetailsEntered)
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	offers, err := s.offers.Active(ctx)
	if err != nil {
		return nil, err
	}
	o := domain.FindOffer(offers, code)
	if o == nil {
		s.countOffer(code, "unknown")
		return nil, domain.WithOp(ErrOfferNotFound, op)
	}

	out, err := offer.Apply(*o, c, s.engine.IsIntraState(c.BillTo.State))
	if err != nil {
		s.logger.Info("offer rejected", "code", code, "session_id", sess.ID, "reason", domain.ErrorMessage(err))
		s.countOffer(code, domain.ErrorMessage(err))
		return nil, domain.WithOp(err, op)
	}

	if out.Stage == domain.StageOrderPending {
		// The open payment order is for the old total.
		if err := out.Advance(domain.StageDetailsEntered); err != nil {
			return nil, domain.WithOp(err, op)
		}
	}

	sess.Checkout = out
	if sess.Order != nil && !sess.Order.Settled() {
		sess.UpdateOrder = true
	}

	if telemetry.Business != nil {
		telemetry.Business.OffersApplied.WithLabelValues(code).Inc()
	}
	return out, nil
}

func (s *checkoutService) countOffer(code, reason string) {
	if telemetry.Business != nil {
		telemetry.Business.OffersRejected.WithLabelValues(code, reason).Inc()
	}
}

// Review returns the priced checkout once details have been entered.
func (s *checkoutService) Review(ctx context.Context, sess *domain.SessionContext) (*domain.PricedCheckout, error) {
	c := sess.Checkout
	if c == nil || (c.Stage != domain.StageDetailsEntered && c.Stage != domain.StageOrderPending) {
		return nil, s.stageError(sess, "checkout.review", domain.StageDetailsEntered)
	}

	offers, err := s.offers.Active(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.PricedCheckout{Checkout: c, Offers: offers}, nil
}

// RequestPaymentOrder creates the pending order on the first call. Later
// calls reuse it, rewriting it first when the details changed.
func (s *checkoutService) RequestPaymentOrder(ctx context.Context, sess *domain.SessionContext) (*domain.PaymentOrder, error) {
	const op = "checkout.payment_order"

	c := sess.Checkout
	if c == nil || !c.Stage.CanTransition(domain.StageOrderPending) {
		return nil, s.stageError(sess, op, domain.StageOrderPending)
	}

	var (
		order *domain.SessionOrder
		err   error
	)
	switch {
	case sess.Order == nil || sess.Order.Settled():
		order, err = s.orders.CreateOrder(ctx, sess)
	case sess.UpdateOrder:
		order, err = s.orders.UpdateOrder(ctx, sess)
	default:
		order = sess.Order
	}
	if err != nil {
		return nil, err
	}

	if err := c.Advance(domain.StageOrderPending); err != nil {
		return nil, domain.WithOp(err, op)
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutStep.WithLabelValues("payment").Inc()
	}
	return &domain.PaymentOrder{
		Key:            s.payments.KeyID(),
		Amount:         order.Amount,
		PaymentOrderID: order.PaymentOrderID,
		OrderID:        order.OrderID,
		Prefill:        domain.Prefill{Name: c.BillTo.Name},
	}, nil
}

// Finalize commits the payment and clears the session's cart and
// checkout. The order stays on the session for the confirmation view.
func (s *checkoutService) Finalize(ctx context.Context, sess *domain.SessionContext, in domain.FinalizeInput) (*domain.FinalizeResult, error) {
	const op = "checkout.finalize"

	c := sess.Checkout
	if c == nil || c.Stage != domain.StageOrderPending {
		return &domain.FinalizeResult{Success: false}, s.stageError(sess, op, domain.StageOrderPaid)
	}

	res, err := s.orders.Finalize(ctx, sess, in)
	if err != nil {
		return res, err
	}

	sess.ResetCheckout()
	if err := s.cart.ClearCart(ctx, sess); err != nil {
		s.logger.Warn("failed to clear cart after payment", "session_id", sess.ID, "error", err)
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutCompleted.WithLabelValues(string(orderType(sess))).Inc()
	}
	return res, nil
}

// Abandon returns the reserved stock and drops the checkout. The cart is
// kept.
func (s *checkoutService) Abandon(ctx context.Context, sess *domain.SessionContext) error {
	if !sess.CartReserved || sess.Checkout == nil {
		sess.ResetCheckout()
		return nil
	}

	stage := sess.Stage()
	err := s.inventory.ReleaseItems(ctx, sess.ID, sess.Checkout.Items)
	sess.ResetCheckout()

	if telemetry.Business != nil {
		telemetry.Business.CheckoutAbandoned.WithLabelValues(string(stage)).Inc()
	}
	return err
}

func (s *checkoutService) stageError(sess *domain.SessionContext, op string, next domain.CheckoutStage) error {
	s.logger.Debug("checkout step out of order", "op", op, "stage", sess.Stage(), "next", next, "session_id", sess.ID)
	return domain.WithOp(domain.ErrStageTransition, op)
}

func trimInput(in domain.DetailsInput) domain.DetailsInput {
	in.FName = strings.TrimSpace(in.FName)
	in.LName = strings.TrimSpace(in.LName)
	in.Email = strings.TrimSpace(in.Email)
	in.Tel = strings.TrimSpace(in.Tel)
	in.BillTo = trimAddress(in.BillTo)
	in.ShipTo = trimAddress(in.ShipTo)
	return in
}

func trimAddress(a domain.Address) domain.Address {
	a.Name = strings.TrimSpace(a.Name)
	a.StreetAddress = strings.TrimSpace(a.StreetAddress)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Region = strings.TrimSpace(a.Region)
	a.State = strings.TrimSpace(a.State)
	return a
}

func stampHash(a *domain.Address) {
	if a != nil && !a.Stored() {
		a.Hash = a.ContentHash()
	}
}
