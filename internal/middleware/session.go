package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dukerupert/fusionx/internal/cookie"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/service"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

const (
	// SessionContextKey is the context key for the visitor session
	SessionContextKey contextKey = "session"

	// DefaultSessionTTL matches the two hour cart lifetime.
	DefaultSessionTTL = 2 * time.Hour
)

// SessionConfig configures the session middleware.
type SessionConfig struct {
	Store  domain.SessionStore
	Cookie *cookie.Config

	// CookieName defaults to cookie.SessionCookieName.
	CookieName string

	// TTL is the sliding session lifetime.
	TTL time.Duration
}

// WithSession loads the visitor session named by the session cookie, or
// starts a new one, and saves it once the handler returns. Unknown and
// expired ids get a fresh session. Every response refreshes the cookie and
// the expiry.
func WithSession(config SessionConfig) func(http.Handler) http.Handler {
	if config.CookieName == "" {
		config.CookieName = cookie.SessionCookieName
	}
	if config.TTL == 0 {
		config.TTL = DefaultSessionTTL
	}
	if config.Cookie == nil {
		config.Cookie = cookie.NewConfig("", false)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := loadSession(r, config)
			if err != nil {
				respondInternalError(w, r, err)
				return
			}

			sess.ExpiresAt = time.Now().Add(config.TTL)
			config.Cookie.SetSession(w, config.CookieName, sess.ID, int(config.TTL.Seconds()))

			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))

			// The handler may have returned because the client went away;
			// the mutations it made still have to be persisted.
			if err := config.Store.Save(context.WithoutCancel(ctx), sess); err != nil {
				GetLogger(ctx).Error("failed to save session", "session_id", sess.ID, "error", err)
				telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{"session_id": sess.ID})
			}
		})
	}
}

func loadSession(r *http.Request, config SessionConfig) (*domain.SessionContext, error) {
	if id := cookie.Get(r, config.CookieName); id != "" {
		sess, err := config.Store.Load(r.Context(), id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}
	return service.NewSession(config.TTL)
}

// GetSession returns the session stored by WithSession, or nil.
func GetSession(ctx context.Context) *domain.SessionContext {
	if sess, ok := ctx.Value(SessionContextKey).(*domain.SessionContext); ok {
		return sess
	}
	return nil
}

// RequireLogin rejects guest sessions with 401.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil || !sess.IsLoggedIn() {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionUser reports the session's visitor to Sentry. Pass it to
// telemetry.SentryContextMiddleware.
func SessionUser(ctx context.Context) *telemetry.UserInfo {
	sess := GetSession(ctx)
	if sess == nil {
		return nil
	}
	info := &telemetry.UserInfo{ID: "session:" + sess.ID}
	if sess.IsLoggedIn() {
		info.ID = sess.UserID.String()
		if sess.User != nil {
			info.Email = sess.User.Email
		}
	}
	return info
}
