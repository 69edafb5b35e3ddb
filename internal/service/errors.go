package service

import (
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/offer"
)

// Checkout errors - shown to the customer as-is
var (
	ErrCheckoutEmpty  = domain.Errorf(domain.EINVALID, "", "Your cart is empty")
	ErrNoPendingOrder = domain.Errorf(domain.EINVALID, "", "There is no order awaiting payment")
	ErrOfferNotFound  = domain.Errorf(domain.EINVALID, "", "Invalid offer code")
	ErrSelectShipTo   = domain.Errorf(domain.EINVALID, "", "Please select a shipping address")
)

// Offer rule failures, re-exported so handlers need only this package
var (
	ErrOfferAlreadyApplied = offer.ErrAlreadyApplied
	ErrOfferMinAmount      = offer.ErrMinAmount
	ErrOfferNotApplicable  = offer.ErrNotApplicable
)

// ErrOrderProcessing hides every storage or provider failure in the order
// pipeline behind one customer facing message.
var ErrOrderProcessing = domain.ErrOrderProcessing
