// Package cookie provides helpers for the visitor session cookie.
// All session cookies should be written through Config so scoping and the
// Secure flag stay consistent between handlers and middleware.
package cookie

import (
	"net/http"
	"time"
)

// Config holds cookie configuration.
type Config struct {
	// Domain scopes the cookie (e.g., "shop.example.in"). Empty leaves the
	// Domain attribute unset so the cookie is host-only.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool
}

// NewConfig creates a new cookie configuration.
//
// Example:
//
//	cfg := cookie.NewConfig("shop.example.in", true)  // production
//	cfg := cookie.NewConfig("", false)                // development
func NewConfig(domain string, secure bool) *Config {
	return &Config{
		Domain: domain,
		Secure: secure,
	}
}

// SetSession sets a session cookie.
//
// The cookie will be set with:
//   - Path: "/" (available on all paths)
//   - HttpOnly: true (not accessible via JavaScript)
//   - SameSite: Lax (not sent on cross-site POSTs)
//   - Secure: based on config
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, c.build(name, value, maxAge))
}

// ClearSession removes a session cookie by setting MaxAge to -1.
func (c *Config) ClearSession(w http.ResponseWriter, name string) {
	http.SetCookie(w, c.build(name, "", -1))
}

// SetSessionWithExpiry sets a session cookie with an explicit expiration time.
func (c *Config) SetSessionWithExpiry(w http.ResponseWriter, name, value string, expires time.Time) {
	ck := c.build(name, value, 0)
	ck.Expires = expires
	http.SetCookie(w, ck)
}

func (c *Config) build(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SessionCookieName is the default name of the visitor session cookie.
const SessionCookieName = "fusionx_session"
