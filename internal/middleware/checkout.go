package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/fusionx/internal/domain"
)

// ReleaseCheckout returns a session's reserved stock as soon as the
// visitor navigates anywhere outside /checkout. A failed release is logged
// and the request continues; the stale reservation sweep picks up what is
// left behind. Place it after WithSession.
func ReleaseCheckout(checkout domain.CheckoutService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess != nil && sess.CartReserved && !IsCheckoutPath(r.URL.Path) {
				if err := checkout.Abandon(r.Context(), sess); err != nil {
					GetLogger(r.Context()).Warn("failed to release checkout reservations",
						"session_id", sess.ID,
						"error", err,
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsCheckoutPath reports whether path belongs to the checkout flow.
func IsCheckoutPath(path string) bool {
	return path == "/checkout" || strings.HasPrefix(path, "/checkout/")
}
