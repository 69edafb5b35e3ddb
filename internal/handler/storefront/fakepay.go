package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/fusionx/internal/billing"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/handler"
)

var errNoPaymentOrder = domain.Errorf(domain.EINVALID, "fakepay.pay", "There is no payment order to pay")

// FakePayer settles provider orders the way the hosted widget would.
type FakePayer interface {
	Pay(ctx context.Context, providerOrderID string) (*billing.FakePayment, error)
}

// FakePayHandler stands in for the payment widget when the local provider
// is configured. It is never registered in production.
type FakePayHandler struct {
	payer FakePayer
}

func NewFakePayHandler(payer FakePayer) *FakePayHandler {
	return &FakePayHandler{payer: payer}
}

// Pay handles POST /fakepay/pay. It pays the session's open payment order
// and returns the signed callback to post to /checkout/{orderId}.
func (h *FakePayHandler) Pay(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	if sess.Order == nil || sess.Order.PaymentOrderID == "" || sess.Order.Settled() {
		handler.ErrorResponse(w, r, errNoPaymentOrder)
		return
	}

	payment, err := h.payer.Pay(r.Context(), sess.Order.PaymentOrderID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, payment)
}
