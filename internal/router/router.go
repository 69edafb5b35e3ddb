package router

import (
	"net/http"
	"slices"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Router registers method-scoped routes on a shared http.ServeMux. Groups
// share the mux and the route table but carry their own middleware.
type Router struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes *[]string
}

// New creates a new Router with optional global middleware
func New(middleware ...Middleware) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		chain:  middleware,
		routes: new([]string),
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.register(http.MethodGet, pattern, r.compose(handler, middleware))
}

func (r *Router) Post(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.register(http.MethodPost, pattern, r.compose(handler, middleware))
}

func (r *Router) Delete(pattern string, handler http.HandlerFunc, middleware ...Middleware) {
	r.register(http.MethodDelete, pattern, r.compose(handler, middleware))
}

// Group returns a router whose routes run the extra middleware after the
// parent's chain.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:    r.mux,
		chain:  append(slices.Clone(r.chain), middleware...),
		routes: r.routes,
	}
}

// Bare registers a route that skips the router's middleware chain.
// Health checks and the metrics endpoint use it so probes neither create
// sessions nor show up in request metrics.
func (r *Router) Bare(method, pattern string, handler http.Handler) {
	r.register(method, pattern, handler)
}

// Routes lists the registered "METHOD /pattern" entries in registration
// order.
func (r *Router) Routes() []string {
	return slices.Clone(*r.routes)
}

func (r *Router) register(method, pattern string, handler http.Handler) {
	key := method + " " + pattern
	r.mux.Handle(key, handler)
	*r.routes = append(*r.routes, key)
}

// compose wraps handler so the chain runs first-to-last, then the
// route's own middleware.
func (r *Router) compose(handler http.Handler, middleware []Middleware) http.Handler {
	all := append(slices.Clone(r.chain), middleware...)
	for i := len(all) - 1; i >= 0; i-- {
		handler = all[i](handler)
	}
	return handler
}
