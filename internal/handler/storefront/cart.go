package storefront

import (
	"net/http"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/handler"
)

// CartHandler handles the cart routes
type CartHandler struct {
	cart domain.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart domain.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type cartItemRequest struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type cartResponse struct {
	Items []domain.CartItem `json:"items"`
	Count int               `json:"count"`
}

func newCartResponse(items []domain.CartItem) cartResponse {
	if items == nil {
		items = []domain.CartItem{}
	}
	count := 0
	for _, it := range items {
		count += it.Qty
	}
	return cartResponse{Items: items, Count: count}
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	items, err := h.cart.GetCart(r.Context(), sess)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newCartResponse(items))
}

// Add handles POST /cart/add
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(sess *domain.SessionContext, req cartItemRequest) ([]domain.CartItem, error) {
		return h.cart.AddItem(r.Context(), sess, req.SKU, req.Qty)
	})
}

// Update handles POST /cart/update
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(sess *domain.SessionContext, req cartItemRequest) ([]domain.CartItem, error) {
		return h.cart.UpdateItem(r.Context(), sess, req.SKU, req.Qty)
	})
}

// Remove handles POST /cart/remove
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(sess *domain.SessionContext, req cartItemRequest) ([]domain.CartItem, error) {
		return h.cart.RemoveItem(r.Context(), sess, req.SKU)
	})
}

// Clear handles POST /cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	if err := h.cart.ClearCart(r.Context(), sess); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newCartResponse(nil))
}

func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(*domain.SessionContext, cartItemRequest) ([]domain.CartItem, error)) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	items, err := fn(sess, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newCartResponse(items))
}
