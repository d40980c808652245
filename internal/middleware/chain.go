package middleware

import "net/http"

// Chain wraps h so that the first middleware sees the request first:
//
//	Chain(mux, ClientIP, AuthMiddleware(auth), CSRFProtection)
//
// runs ClientIP, then AuthMiddleware, then CSRFProtection, then mux.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
