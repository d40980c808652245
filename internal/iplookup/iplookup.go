// Package iplookup works out which address a request came from.
// Behind NAT or in development the socket address is private, so the
// Resolver falls back to asking an external echo service for the public one.
package iplookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ClientIP extracts the client address from proxy headers or the socket.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsPublic reports whether ip is a routable internet address.
func IsPublic(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast())
}

// failureTTL is how long a failed lookup is remembered before retrying.
const failureTTL = 30 * time.Second

// Resolver returns the public IP for a request, caching the external lookup.
// Concurrent lookups share one request and failures are cached briefly.
type Resolver struct {
	client    *http.Client
	lookupURL string
	ttl       time.Duration
	failTTL   time.Duration
	now       func() time.Time
	group     singleflight.Group

	mu       sync.Mutex
	cached   string
	cachedAt time.Time
	failErr  error
	failedAt time.Time
}

func NewResolver(lookupURL string, ttl time.Duration) *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: 5 * time.Second},
		lookupURL: lookupURL,
		ttl:       ttl,
		failTTL:   failureTTL,
		now:       time.Now,
	}
}

// Resolve never fails: an empty string means the address is unknown.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) string {
	ip := ClientIP(req)
	if IsPublic(ip) || r == nil || r.lookupURL == "" {
		return ip
	}

	public, err := r.Public(ctx)
	if err != nil {
		slog.Warn("public ip lookup failed", "error", err, "client_ip", ip)
		return ip
	}
	return public
}

// Public asks the lookup service for this host's public address.
func (r *Resolver) Public(ctx context.Context) (string, error) {
	ip, hit, err := r.fromCache()
	if hit {
		return ip, err
	}

	// the shared lookup must not die with whichever request started it
	ctx = context.WithoutCancel(ctx)
	v, err, _ := r.group.Do("public", func() (any, error) {
		// a lookup may have finished while this caller waited to get here
		if ip, hit, err := r.fromCache(); hit {
			return ip, err
		}

		ip, err := r.lookup(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.failErr = err
			r.failedAt = r.now()
			return "", err
		}
		r.cached = ip
		r.cachedAt = r.now()
		r.failErr = nil
		return ip, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fromCache returns a fresh address or a recent failure; hit is false when
// neither is cached.
func (r *Resolver) fromCache() (ip string, hit bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.cached != "" && now.Sub(r.cachedAt) < r.ttl {
		return r.cached, true, nil
	}
	if r.failErr != nil && now.Sub(r.failedAt) < r.failTTL {
		return "", true, r.failErr
	}
	return "", false, nil
}

func (r *Resolver) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query ip service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip service returned status %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	if err != nil {
		return "", fmt.Errorf("failed to decode ip service response: %w", err)
	}
	if net.ParseIP(body.IP) == nil {
		return "", fmt.Errorf("ip service returned invalid address %q", body.IP)
	}
	return body.IP, nil
}
