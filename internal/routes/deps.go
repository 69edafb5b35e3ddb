package routes

import (
	"context"
	"net/http"

	"github.com/dukerupert/fusionx/internal/handler/storefront"
	"github.com/dukerupert/fusionx/internal/router"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	CartHandler     *storefront.CartHandler
	CheckoutHandler *storefront.CheckoutHandler
	OrderHandler    *storefront.OrderHandler
	AddressHandler  *storefront.AddressHandler

	// FakePayHandler is set only for the local payment provider outside
	// production.
	FakePayHandler *storefront.FakePayHandler

	// OfferLimit throttles offer code attempts per client.
	OfferLimit router.Middleware

	// PaymentTimeout bounds the routes that call the payment provider.
	PaymentTimeout router.Middleware
}

// SystemDeps contains dependencies for probes and metrics
type SystemDeps struct {
	// Ping reports whether the database answers.
	Ping func(ctx context.Context) error

	// Metrics serves the Prometheus registry.
	Metrics http.Handler
}
