package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/dukerupert/fusionx/internal/handler"
	"github.com/dukerupert/fusionx/internal/router"
)

// RegisterSystemRoutes registers /health and /metrics outside the
// middleware chain.
func RegisterSystemRoutes(r *router.Router, deps SystemDeps) {
	r.Bare(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "ok"}
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
				return
			}
			status["database"] = "up"
		}
		handler.WriteJSON(w, http.StatusOK, status)
	}))

	if deps.Metrics != nil {
		r.Bare(http.MethodGet, "/metrics", deps.Metrics)
	}
}
