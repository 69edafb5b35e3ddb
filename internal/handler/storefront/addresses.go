package storefront

import (
	"net/http"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/handler"
)

// AddressHandler serves a logged-in customer's address book. Routes are
// mounted behind middleware.RequireLogin.
type AddressHandler struct {
	addresses domain.AddressService
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addresses domain.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

// List handles GET /account/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	addrs, err := h.addresses.List(r.Context(), sess.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string][]domain.Address{"addresses": addrs})
}

// SetDefault handles POST /account/addresses/{id}/default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	addressID, err := pathUUID(r, "id", "address")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.addresses.SetDefault(r.Context(), sess.UserID, addressID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	// Drop the cached customer so the next checkout bills the new default.
	sess.User = nil
	sess.Addresses = nil
	w.WriteHeader(http.StatusNoContent)
}
