package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FreeShippingCode is auto-applied on every repricing while active.
const FreeShippingCode = "SHIPFREE"

// OfferType selects what an offer discounts.
type OfferType string

const (
	OfferTypeShip OfferType = "SHIP"
	OfferTypeItem OfferType = "ITEM"
)

// OfferMode selects how an ITEM offer computes its discount.
type OfferMode string

const (
	OfferModePercent OfferMode = "PCT"
	OfferModeFlat    OfferMode = "FLAT"
)

// Offer is a promotional code. SKUs holds substrings matched against cart
// line SKUs for ITEM offers.
type Offer struct {
	Code     string          `json:"code"`
	Type     OfferType       `json:"type"`
	Mode     OfferMode       `json:"mode"`
	Value    decimal.Decimal `json:"value"`
	MinAmt   decimal.Decimal `json:"minAmt"`
	MinQty   int             `json:"minQty"`
	SKUs     []string        `json:"sku"`
	StartAt  time.Time       `json:"start"`
	ExpiryAt time.Time       `json:"expiry"`
}

// ActiveAt reports whether now lies strictly inside the offer window.
func (o Offer) ActiveAt(now time.Time) bool {
	return now.After(o.StartAt) && now.Before(o.ExpiryAt)
}

// FindOffer returns the offer with code, or nil.
func FindOffer(offers []Offer, code string) *Offer {
	for i := range offers {
		if offers[i].Code == code {
			return &offers[i]
		}
	}
	return nil
}

// OfferStore reads offer reference data.
type OfferStore interface {
	ListActive(ctx context.Context, now time.Time) ([]Offer, error)
}
