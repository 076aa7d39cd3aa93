package httputil

import (
	"context"
	"net/http"
	"sync"
)

// Middleware defines a function type that represents a middleware.
// Middleware functions wrap an http.Handler to modify or enhance its behavior.
type Middleware func(http.Handler) http.Handler

// RouterOptions is a function type that represents options to configure a Router.
type RouterOptions func(*Router)

// Router is the main structure for handling HTTP routing and middleware.
// Middleware is applied once, around the whole mux, when the server starts.
type Router struct {
	mux        *http.ServeMux
	server     *http.Server
	middleware []Middleware
	mu         sync.RWMutex
}

// NewRouter creates a new instance of Router with the given options.
func NewRouter(opts ...RouterOptions) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		server: &http.Server{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithServerOptions returns a RouterOptions function that sets custom http.Server options.
func WithServerOptions(opts ...func(*http.Server)) RouterOptions {
	return func(r *Router) {
		for _, opt := range opts {
			opt(r.server)
		}
	}
}

// Use adds one or more middleware to the router. Middleware functions are
// applied in the order they are added.
func (r *Router) Use(mw Middleware, additional ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
	if len(additional) > 0 {
		r.middleware = append(r.middleware, additional...)
	}
}

// Handle registers an HTTP handler for a "METHOD /pattern" string, as
// introduced in Go 1.22's routing enhancements.
func (r *Router) Handle(methodPattern string, handler http.Handler) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.mux.Handle(methodPattern, handler)
}

// HandleFunc is Handle for plain handler functions.
func (r *Router) HandleFunc(methodPattern string, handler func(http.ResponseWriter, *http.Request)) {
	r.Handle(methodPattern, http.HandlerFunc(handler))
}

// Handler returns the mux with all registered middleware applied, for
// mounting the router without starting a listener.
func (r *Router) Handler() http.Handler {
	return r.applyMiddleware()
}

// ListenAndServe starts the server, choosing between HTTP and HTTPS based
// on whether cert and key files were configured.
func (r *Router) ListenAndServe(addr string) error {
	r.server.Addr = addr
	r.server.Handler = r.applyMiddleware()

	if r.server.TLSConfig != nil {
		return r.server.ListenAndServeTLS("", "")
	}
	return r.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

// applyMiddleware applies middleware to the http.Handler and returns a new http.Handler.
func (r *Router) applyMiddleware() http.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var handler http.Handler = r.mux
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	return handler
}
