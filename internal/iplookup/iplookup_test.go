package iplookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.3 "}, "10.0.0.2:1234", "198.51.100.3"},
		{"socket v4", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"socket v6", nil, "[2001:db8::1]:443", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestIsPublic(t *testing.T) {
	assert.True(t, IsPublic("8.8.8.8"))
	assert.False(t, IsPublic("127.0.0.1"))
	assert.False(t, IsPublic("10.1.2.3"))
	assert.False(t, IsPublic("::1"))
	assert.False(t, IsPublic("not-an-ip"))
}

func TestResolverCachesLookup(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"ip":"203.0.113.50"}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res := NewResolver(srv.URL, time.Minute)
	res.now = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:4000"

	assert.Equal(t, "203.0.113.50", res.Resolve(context.Background(), req))
	assert.Equal(t, "203.0.113.50", res.Resolve(context.Background(), req))
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := res.Public(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolverKeepsPublicClientIP(t *testing.T) {
	res := NewResolver("http://127.0.0.1:1/never-called", time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "8.8.4.4")

	assert.Equal(t, "8.8.4.4", res.Resolve(context.Background(), req))
}

func TestResolverFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res := NewResolver(srv.URL, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.8:80"

	assert.Equal(t, "10.0.0.8", res.Resolve(context.Background(), req))
}

func TestResolverSharesAndRemembersFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	res := NewResolver(srv.URL, time.Minute)
	res.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	resolve := func() string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.5:80"
		return res.Resolve(context.Background(), req)
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "10.0.0.5", resolve())
		}()
	}
	wg.Wait()

	start := time.Now()
	for range 5 {
		assert.Equal(t, "10.0.0.5", resolve())
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond, "cached failure answers without waiting")
	assert.Equal(t, int32(1), calls.Load())

	mu.Lock()
	now = now.Add(failureTTL + time.Second)
	mu.Unlock()
	resolve()
	assert.Equal(t, int32(2), calls.Load())
}
