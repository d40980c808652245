package middleware

import (
	"net/http"

	"github.com/templui/fileshare/internal/config"
	"github.com/templui/fileshare/internal/ctxkeys"
	"github.com/templui/fileshare/internal/iplookup"
)

// Config middleware adds the sanitized app configuration to the request context.
// Sensitive values like JWTSecret and the S3 keys are excluded.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	sanitized := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxkeys.WithConfig(r.Context(), sanitized)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithURLPath adds the current URL's path to the context
func WithURLPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxkeys.WithURLPath(r.Context(), r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP stores the address the request came from in the context.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxkeys.WithClientIP(r.Context(), iplookup.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PublicIP replaces a private client address with the host's public IP.
// Wrap only the routes that record the viewer's address.
func PublicIP(resolver *iplookup.Resolver) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := resolver.Resolve(r.Context(), r)
			next(w, r.WithContext(ctxkeys.WithClientIP(r.Context(), ip)))
		}
	}
}
