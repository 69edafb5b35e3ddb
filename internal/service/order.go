package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/billing"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/shipping"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

// OrderNotifier is told about orders once their payment has committed.
type OrderNotifier interface {
	OrderPaid(ctx context.Context, orderID uuid.UUID) error
}

type orderService struct {
	store     domain.OrderStore
	inventory domain.InventoryStore
	payments  billing.Provider
	shipping  *shipping.Table
	notifier  OrderNotifier
	currency  string
	logger    *slog.Logger
	now       func() time.Time
}

var _ domain.OrderService = (*orderService)(nil)

// NewOrderService creates the order lifecycle manager. notifier may be nil.
func NewOrderService(
	store domain.OrderStore,
	inventory domain.InventoryStore,
	payments billing.Provider,
	table *shipping.Table,
	notifier OrderNotifier,
	currency string,
	logger *slog.Logger,
) domain.OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	if currency == "" {
		currency = "INR"
	}
	return &orderService{
		store:     store,
		inventory: inventory,
		payments:  payments,
		shipping:  table,
		notifier:  notifier,
		currency:  currency,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder writes the pending order in one transaction and opens a
// provider order for its total.
func (s *orderService) CreateOrder(ctx context.Context, sess *domain.SessionContext) (*domain.SessionOrder, error) {
	const op = "order.create"

	c := sess.Checkout
	if c == nil || c.BillTo == nil {
		return nil, domain.WithOp(domain.ErrStageTransition, op)
	}

	refs, err := s.store.CreateOrder(ctx, domain.CreateOrderParams{
		Checkout:        c,
		Type:            orderType(sess),
		UserID:          sess.UserID,
		UpdateTel:       needsTel(sess),
		PaymentProvider: s.payments.Name(),
	})
	if err != nil {
		return nil, s.fail(ctx, err, op, sess, uuid.Nil)
	}
	s.rememberTel(sess)

	order := &domain.SessionOrder{OrderRefs: *refs}
	sess.Order = order

	if telemetry.Business != nil {
		telemetry.Business.OrdersCreated.WithLabelValues(string(orderType(sess))).Inc()
	}

	if err := s.openPayment(ctx, order, c.Total); err != nil {
		// The order row exists; the next attempt reopens the payment.
		sess.UpdateOrder = true
		return nil, s.fail(ctx, err, op, sess, refs.OrderID)
	}

	s.logger.Info("order created",
		"order_id", refs.OrderID,
		"user_id", refs.UserID,
		"type", orderType(sess),
		"total", c.Total.StringFixed(2),
	)
	return order, nil
}

// UpdateOrder rewrites the pending order from the current checkout. A new
// provider order is opened when the amount changed since the last one.
func (s *orderService) UpdateOrder(ctx context.Context, sess *domain.SessionContext) (*domain.SessionOrder, error) {
	const op = "order.update"

	order := sess.Order
	if order == nil || order.Settled() {
		return nil, domain.WithOp(ErrNoPendingOrder, op)
	}
	c := sess.Checkout
	if c == nil || c.BillTo == nil {
		return nil, domain.WithOp(domain.ErrStageTransition, op)
	}

	refs, err := s.store.UpdateOrder(ctx, domain.UpdateOrderParams{
		Checkout:  c,
		Type:      orderType(sess),
		UpdateTel: needsTel(sess),
		Refs:      order.OrderRefs,
	})
	if err != nil {
		return nil, s.fail(ctx, err, op, sess, order.OrderID)
	}
	s.rememberTel(sess)
	order.OrderRefs = *refs

	if order.PaymentOrderID == "" || !order.Amount.Equal(c.Total) {
		if err := s.openPayment(ctx, order, c.Total); err != nil {
			return nil, s.fail(ctx, err, op, sess, order.OrderID)
		}
	}
	sess.UpdateOrder = false

	if telemetry.Business != nil {
		telemetry.Business.OrdersUpdated.WithLabelValues(string(orderType(sess))).Inc()
	}
	s.logger.Info("order updated", "order_id", order.OrderID, "total", c.Total.StringFixed(2))
	return order, nil
}

// openPayment registers amount with the payment provider under the order id.
func (s *orderService) openPayment(ctx context.Context, order *domain.SessionOrder, amount decimal.Decimal) error {
	po, err := s.payments.CreateOrder(ctx, billing.CreateOrderParams{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  order.OrderID.String(),
	})
	if err != nil {
		return err
	}

	order.PaymentOrderID = po.ID
	order.Amount = amount

	if telemetry.Business != nil {
		telemetry.Business.PaymentAttempts.WithLabelValues(s.payments.Name()).Inc()
	}
	return nil
}

// Finalize verifies the payment signature, then consumes the reservations
// and marks the order paid in one transaction. Delivery date, display
// order and the confirmation mail follow on a best effort basis.
func (s *orderService) Finalize(ctx context.Context, sess *domain.SessionContext, in domain.FinalizeInput) (*domain.FinalizeResult, error) {
	const op = "order.finalize"
	failed := &domain.FinalizeResult{Success: false}

	pending := sess.Order
	if pending == nil || pending.Settled() {
		return failed, domain.WithOp(ErrNoPendingOrder, op)
	}
	c := sess.Checkout
	if c == nil {
		return failed, domain.WithOp(domain.ErrStageTransition, op)
	}
	if in.OrderID != pending.OrderID {
		return failed, domain.WithOp(domain.ErrOrderMismatch, op)
	}

	providerOrderID := in.ProviderOrderID
	if providerOrderID == "" {
		providerOrderID = pending.PaymentOrderID
	}
	if providerOrderID != pending.PaymentOrderID {
		return failed, domain.WithOp(domain.ErrOrderMismatch, op)
	}

	if err := s.payments.VerifyPayment(ctx, billing.VerifyPaymentParams{
		ProviderOrderID: providerOrderID,
		PaymentID:       in.PaymentID,
		Signature:       in.Signature,
	}); err != nil {
		s.logger.Warn("payment verification failed", "order_id", pending.OrderID, "payment_id", in.PaymentID, "error", err)
		s.countPaymentFailed("signature")
		return failed, err
	}

	err := s.store.Finalize(ctx, domain.FinalizeParams{
		SessionID:       sess.ID,
		SKUs:            c.SKUs(),
		OrderID:         pending.OrderID,
		PaymentID:       in.PaymentID,
		ProviderOrderID: providerOrderID,
	})
	if err != nil {
		s.countPaymentFailed("commit")
		return failed, s.fail(ctx, err, op, sess, pending.OrderID)
	}

	pending.PaymentID = in.PaymentID
	delivery := s.afterPayment(ctx, sess, c, pending.OrderID)
	pending.DeliveryDate = &delivery

	if telemetry.Business != nil {
		typ := string(orderType(sess))
		telemetry.Business.PaymentSucceeded.WithLabelValues(s.payments.Name()).Inc()
		telemetry.Business.OrderValue.WithLabelValues(typ).Observe(c.Total.InexactFloat64())
		telemetry.Business.OrderItemCount.WithLabelValues(typ).Observe(float64(len(c.Items)))
	}
	s.logger.Info("order paid",
		"order_id", pending.OrderID,
		"payment_id", in.PaymentID,
		"delivery_date", shipping.FormatDate(delivery),
	)

	return &domain.FinalizeResult{
		Success:      true,
		OrderID:      pending.OrderID,
		DeliveryDate: shipping.FormatDate(delivery),
	}, nil
}

// afterPayment runs the post-commit side effects. None of them can undo
// the payment, so failures are only logged.
func (s *orderService) afterPayment(ctx context.Context, sess *domain.SessionContext, c *domain.CheckoutState, orderID uuid.UUID) time.Time {
	var destination string
	if addr := c.DeliveryAddress(); addr != nil {
		destination = addr.State
	}
	delivery := s.shipping.DeliveryDate(destination, s.now())

	if err := s.store.SetDeliveryDate(ctx, orderID, delivery); err != nil {
		s.logger.Error("failed to store delivery date", "order_id", orderID, "error", err)
		telemetry.CaptureOrderError(ctx, err, "order.delivery_date", orderID.String())
	}

	demoted, err := s.inventory.RebalanceDisplayOrder(ctx, c.SKUs())
	if err != nil {
		s.logger.Warn("display order rebalance failed", "order_id", orderID, "error", err)
	} else if demoted > 0 && telemetry.Business != nil {
		telemetry.Business.VariantsDemoted.WithLabelValues().Add(float64(demoted))
	}

	if s.notifier != nil {
		if err := s.notifier.OrderPaid(ctx, orderID); err != nil {
			s.logger.Error("failed to schedule order confirmation", "order_id", orderID, "session_id", sess.ID, "error", err)
		}
	}
	return delivery
}

// GetOrder returns the order if the session may see it: logged-in users
// see their own orders, guests only the order of their session.
func (s *orderService) GetOrder(ctx context.Context, sess *domain.SessionContext, orderID uuid.UUID) (*domain.Order, error) {
	const op = "order.get"

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ownOrder := sess.IsLoggedIn() && order.UserID == sess.UserID
	sessionOrder := sess.Order != nil && sess.Order.OrderID == orderID
	if !ownOrder && !sessionOrder {
		return nil, domain.WithOp(domain.ErrOrderNotFound, op)
	}
	return order, nil
}

// fail logs and reports err and hides it behind ErrOrderProcessing.
func (s *orderService) fail(ctx context.Context, err error, op string, sess *domain.SessionContext, orderID uuid.UUID) error {
	consistency := domain.IsConsistencyFailure(err)

	s.logger.Error("order operation failed",
		"op", op,
		"session_id", sess.ID,
		"order_id", orderID,
		"consistency_failure", consistency,
		"error", err,
	)

	id := ""
	if orderID != uuid.Nil {
		id = orderID.String()
	}
	telemetry.CaptureOrderError(ctx, err, op, id)

	if consistency && telemetry.Business != nil {
		telemetry.Business.ConsistencyFailures.WithLabelValues(op).Inc()
	}
	return domain.Internal(err, op, domain.OrderErrorMessage)
}

func (s *orderService) countPaymentFailed(reason string) {
	if telemetry.Business != nil {
		telemetry.Business.PaymentFailed.WithLabelValues(s.payments.Name(), reason).Inc()
	}
}

// needsTel reports whether a logged-in customer without a phone number
// supplied one in this checkout.
func needsTel(sess *domain.SessionContext) bool {
	return sess.IsLoggedIn() && sess.User != nil && sess.User.Tel == "" &&
		sess.Checkout != nil && sess.Checkout.User.Tel != ""
}

// rememberTel copies a newly stored phone number to the cached user.
func (s *orderService) rememberTel(sess *domain.SessionContext) {
	if needsTel(sess) {
		sess.User.Tel = sess.Checkout.User.Tel
	}
}

func orderType(sess *domain.SessionContext) domain.OrderType {
	if sess.IsLoggedIn() {
		return domain.OrderTypeUser
	}
	return domain.OrderTypeGuest
}
