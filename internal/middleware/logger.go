package middleware

import (
	"context"
	"log/slog"
	"net/http"
)

const loggerContextKey contextKey = "logger"

// WithRequestLogger puts a logger on the context carrying the request's
// method, path, request id, client IP and session, plus the user id once
// the visitor is logged in. It must run after RequestID, WithClientIP and
// WithSession.
func WithRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if ip := GetClientIPFromContext(ctx); ip != "" {
				attrs = append(attrs, slog.String("client_ip", ip))
			}
			if sess := GetSession(ctx); sess != nil {
				attrs = append(attrs, slog.String("session_id", sess.ID))
				if sess.IsLoggedIn() {
					attrs = append(attrs, slog.String("user_id", sess.UserID.String()))
				}
			}

			ctx = context.WithValue(ctx, loggerContextKey, base.With(attrs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request's logger, or slog.Default outside a
// request.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
