package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SiblingPrefixLength is how many leading SKU characters variants of the
// same product share.
const SiblingPrefixLength = 12

var ErrVariantNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}

// ProductVariant is the stock-holding unit a cart line refers to.
type ProductVariant struct {
	SKU          string
	Title        string
	Price        decimal.Decimal
	GST          decimal.Decimal
	Qty          int
	ZIndex       int
	ImagePrimary string
	ImageAlt     string
}

// CartItem converts the variant to a cart line of qty units.
func (v ProductVariant) CartItem(qty int) CartItem {
	return CartItem{
		SKU:          v.SKU,
		Title:        v.Title,
		Price:        v.Price,
		GST:          v.GST,
		Qty:          qty,
		ImagePrimary: v.ImagePrimary,
		ImageAlt:     v.ImageAlt,
	}
}

// Reservation is a hold of Qty units of SKU for one checkout session.
type Reservation struct {
	SKU       string
	SessionID string
	Qty       int
	CreatedAt time.Time
}

// InventoryStore is the storage side of the reservation manager. Reserve
// must be a single conditional decrement so two sessions racing for the
// last unit cannot both succeed.
type InventoryStore interface {
	// GetVariant loads a variant by SKU.
	GetVariant(ctx context.Context, sku string) (*ProductVariant, error)

	// Available returns the unreserved stock of sku.
	Available(ctx context.Context, sku string) (int, error)

	// Reserve decrements stock by qty and records a reservation for
	// sessionID, only when at least qty units are available. It reports
	// false when nothing changed. A second call for the same session and
	// sku is a no-op that reports true.
	Reserve(ctx context.Context, sku string, qty int, sessionID string) (bool, error)

	// Release returns the reserved quantity to stock and deletes the
	// reservation. It reports false when the session held none.
	Release(ctx context.Context, sku, sessionID string) (bool, error)

	// ReservationsFor lists the reservations held by a session.
	ReservationsFor(ctx context.Context, sessionID string) ([]Reservation, error)

	// StaleReservations lists up to limit reservations created before
	// cutoff whose session has expired or no longer exists. Sessions slide
	// on every request, so a live checkout keeps its stock however long it
	// takes.
	StaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]Reservation, error)

	// RebalanceDisplayOrder demotes sold out variants among skus and
	// promotes an in-stock sibling of each. It returns the number of
	// variants demoted.
	RebalanceDisplayOrder(ctx context.Context, skus []string) (int, error)
}

// ReserveOutcome describes what happened to one cart line on checkout entry.
type ReserveOutcome string

const (
	ReserveFull       ReserveOutcome = "reserved"
	ReservePartial    ReserveOutcome = "partial"
	ReserveOutOfStock ReserveOutcome = "out_of_stock"
)

// ErrorItem reports a cart line whose quantity was reduced or zeroed
// because stock ran short.
type ErrorItem struct {
	CartItem
	Requested int            `json:"requested"`
	Outcome   ReserveOutcome `json:"outcome"`
}

// InventoryService is the reservation manager.
type InventoryService interface {
	// ReserveItems reserves every line for sessionID, shrinking or dropping
	// lines that cannot be fully covered. The returned items are the ones
	// that hold a reservation.
	ReserveItems(ctx context.Context, sessionID string, items []CartItem) ([]CartItem, []ErrorItem, error)

	// ReleaseItems returns the session's reservations for items to stock.
	ReleaseItems(ctx context.Context, sessionID string, items []CartItem) error

	// SweepStale releases reservations older than maxAge and returns how
	// many were released.
	SweepStale(ctx context.Context, maxAge time.Duration) (int, error)
}
