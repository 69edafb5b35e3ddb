package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SKULength is the fixed length of every product variant SKU.
const SKULength = 15

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Item not found in cart"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrInvalidSKU       = &Error{Code: EINVALID, Message: "Invalid SKU"}
	ErrOutOfStock       = &Error{Code: ECONFLICT, Message: "Out of Stock"}
	ErrNotEnoughStock   = &Error{Code: ECONFLICT, Message: "Not enough stock"}
	ErrCartLocked       = &Error{Code: ECONFLICT, Message: "Cart is locked while checkout is in progress"}
)

// CartService manages the pre-checkout cart. Guest carts live in the
// session, logged-in carts are persisted per user.
type CartService interface {
	// GetCart returns the session's cart items.
	GetCart(ctx context.Context, sess *SessionContext) ([]CartItem, error)

	// AddItem adds qty of sku, clamping the resulting quantity to stock.
	AddItem(ctx context.Context, sess *SessionContext, sku string, qty int) ([]CartItem, error)

	// UpdateItem sets the quantity of an existing line.
	UpdateItem(ctx context.Context, sess *SessionContext, sku string, qty int) ([]CartItem, error)

	// RemoveItem deletes a line.
	RemoveItem(ctx context.Context, sess *SessionContext, sku string) ([]CartItem, error)

	// ClearCart empties the cart.
	ClearCart(ctx context.Context, sess *SessionContext) error
}

// UserCartStore persists carts of logged-in users.
type UserCartStore interface {
	Items(ctx context.Context, userID uuid.UUID) ([]CartItem, error)
	Upsert(ctx context.Context, userID uuid.UUID, sku string, qty int) error
	Remove(ctx context.Context, userID uuid.UUID, sku string) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CartItem is one cart line. The priced fields are zero until the line
// has been run through the pricing engine.
type CartItem struct {
	SKU          string          `json:"sku"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	GST          decimal.Decimal `json:"gst"`
	Qty          int             `json:"qty"`
	ImagePrimary string          `json:"imagePrimary,omitempty"`
	ImageAlt     string          `json:"imageAlt,omitempty"`

	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
	IGST     decimal.Decimal `json:"igst"`
}

// LineSubtotal is price times quantity before any discount.
func (i CartItem) LineSubtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// FindItem returns the index of sku in items, or -1.
func FindItem(items []CartItem, sku string) int {
	for i := range items {
		if items[i].SKU == sku {
			return i
		}
	}
	return -1
}

// CloneItems copies a cart so priced fields can be mutated safely.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
