package middleware

import "net/http"

// Chain wraps h with the given middleware so that requests pass through
// them in the order listed.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	// Wrap in reverse so the first middleware listed runs first.
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
