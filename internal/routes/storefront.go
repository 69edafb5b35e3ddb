package routes

import (
	"github.com/dukerupert/fusionx/internal/middleware"
	"github.com/dukerupert/fusionx/internal/router"
)

// RegisterStorefrontRoutes registers the cart, checkout and order routes.
// The router's chain must already load the session and release abandoned
// checkouts.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Shopping cart
	r.Get("/cart", deps.CartHandler.View)
	r.Post("/cart/add", deps.CartHandler.Add)
	r.Post("/cart/update", deps.CartHandler.Update)
	r.Post("/cart/remove", deps.CartHandler.Remove)
	r.Post("/cart/clear", deps.CartHandler.Clear)

	// Checkout flow
	r.Get("/checkout", deps.CheckoutHandler.Enter)
	r.Post("/checkout", deps.CheckoutHandler.SubmitDetails)
	r.Delete("/checkout", deps.CheckoutHandler.Abandon)
	r.Post("/checkout/postal-lookup", deps.CheckoutHandler.PostalLookup)
	r.Get("/checkout/review", deps.CheckoutHandler.Review)
	r.Post("/checkout/offer", deps.CheckoutHandler.ApplyOffer, optional(deps.OfferLimit)...)

	payment := r.Group(optional(deps.PaymentTimeout)...)
	payment.Get("/checkout/order", deps.CheckoutHandler.PaymentOrder)
	payment.Post("/checkout/{orderId}", deps.CheckoutHandler.Finalize)
	if deps.FakePayHandler != nil {
		r.Post("/fakepay/pay", deps.FakePayHandler.Pay)
	}

	// Orders
	r.Get("/orders/{orderId}", deps.OrderHandler.Show)

	// Account routes (require login)
	account := r.Group(middleware.RequireLogin)
	account.Get("/account/addresses", deps.AddressHandler.List)
	account.Post("/account/addresses/{id}/default", deps.AddressHandler.SetDefault)
}

func optional(m router.Middleware) []router.Middleware {
	if m == nil {
		return nil
	}
	return []router.Middleware{m}
}
