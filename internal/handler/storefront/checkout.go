package storefront

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/handler"
)

// CheckoutHandler serves the checkout flow. Every route works on the
// visitor session; the session middleware persists what the services
// change.
type CheckoutHandler struct {
	checkout domain.CheckoutService
	postal   domain.PostalLookup
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout domain.CheckoutService, postal domain.PostalLookup) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, postal: postal}
}

// addressFields are the address inputs of one form section, named after
// their autocomplete tokens.
type addressFields struct {
	Name          string `json:"name"`
	StreetAddress string `json:"street-address"`
	PostalCode    string `json:"postal-code"`
	Region        string `json:"address-level2"`
	State         string `json:"address-level1"`
}

func (a addressFields) address() domain.Address {
	return domain.Address{
		Name:          a.Name,
		StreetAddress: a.StreetAddress,
		PostalCode:    a.PostalCode,
		Region:        a.Region,
		State:         a.State,
	}
}

type detailsRequest struct {
	FName string `json:"given-name"`
	LName string `json:"family-name"`
	Email string `json:"email"`
	Tel   string `json:"tel-local"`

	BillTo     addressFields `json:"billto"`
	SameShipTo bool          `json:"same-shipto"`
	ShipTo     addressFields `json:"shipto"`

	ShipToID  string `json:"shipto-id"`
	AddShipTo bool   `json:"add-shipto"`
}

func (req detailsRequest) input() (domain.DetailsInput, error) {
	in := domain.DetailsInput{
		FName:      req.FName,
		LName:      req.LName,
		Email:      req.Email,
		Tel:        req.Tel,
		BillTo:     req.BillTo.address(),
		SameShipTo: req.SameShipTo,
		ShipTo:     req.ShipTo.address(),
		AddShipTo:  req.AddShipTo,
	}
	if req.ShipToID != "" {
		id, err := uuid.Parse(req.ShipToID)
		if err != nil {
			return in, domain.NewValidationError("checkout.details", "shipto-id", "Please select a shipping address")
		}
		in.ShipToID = id
	}
	return in, nil
}

type codeRequest struct {
	Code string `json:"code"`
}

type finalizeRequest struct {
	PaymentID       string `json:"razorpay_payment_id"`
	ProviderOrderID string `json:"razorpay_order_id"`
	Signature       string `json:"razorpay_signature"`
}

// Enter handles GET /checkout
func (h *CheckoutHandler) Enter(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	res, err := h.checkout.Enter(r.Context(), sess)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, res)
}

// SubmitDetails handles POST /checkout
func (h *CheckoutHandler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req detailsRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	priced, err := h.checkout.SubmitDetails(r.Context(), sess, in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, priced)
}

// ApplyOffer handles POST /checkout/offer
func (h *CheckoutHandler) ApplyOffer(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req codeRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	state, err := h.checkout.ApplyOffer(r.Context(), sess, req.Code)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, state)
}

// PostalLookup handles POST /checkout/postal-lookup
func (h *CheckoutHandler) PostalLookup(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	rec, err := h.postal.Lookup(r.Context(), req.Code)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, rec)
}

// Review handles GET /checkout/review
func (h *CheckoutHandler) Review(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	priced, err := h.checkout.Review(r.Context(), sess)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, priced)
}

// PaymentOrder handles GET /checkout/order
func (h *CheckoutHandler) PaymentOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	po, err := h.checkout.RequestPaymentOrder(r.Context(), sess)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, po)
}

// Finalize handles POST /checkout/{orderId}, the payment widget callback.
func (h *CheckoutHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	orderID, err := pathUUID(r, "orderId", "order")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req finalizeRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	res, err := h.checkout.Finalize(r.Context(), sess, domain.FinalizeInput{
		OrderID:         orderID,
		PaymentID:       req.PaymentID,
		ProviderOrderID: req.ProviderOrderID,
		Signature:       req.Signature,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, res)
}

// Abandon handles DELETE /checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	if err := h.checkout.Abandon(r.Context(), sess); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
