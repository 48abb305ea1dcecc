package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, rl.Allow(ctx, "10.0.0.1"))
	assert.True(t, rl.Allow(ctx, "10.0.0.1"))
	assert.False(t, rl.Allow(ctx, "10.0.0.1"))
	assert.True(t, rl.Allow(ctx, "10.0.0.2"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow(ctx, "10.0.0.1"), "token refills")
}

func TestRateLimiter_SweepDropsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow(context.Background(), "old")
	now = now.Add(10 * time.Minute)
	rl.Allow(context.Background(), "fresh")

	rl.Sweep(time.Minute)

	assert.NotContains(t, rl.ips, "old")
	assert.Contains(t, rl.ips, "fresh")
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, 2, time.Second, nil)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.False(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.2"))

	mr.FastForward(2 * time.Second)
	assert.True(t, l.Allow(ctx, "10.0.0.1"), "window expired")
}

func TestRedisLimiter_UnavailableUsesFallback(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 5 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	ctx := context.Background()

	open := NewRedisLimiter(client, 1, time.Second, nil)
	assert.True(t, open.Allow(ctx, "k"))
	assert.True(t, open.Allow(ctx, "k"), "no fallback allows")

	guarded := NewRedisLimiter(client, 1, time.Second, NewRateLimiter(0, 1))
	assert.True(t, guarded.Allow(ctx, "k"))
	assert.False(t, guarded.Allow(ctx, "k"), "fallback enforces its own budget")
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(NewRateLimiter(0, 1), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestClientIPResolver_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	ips, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ips.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "192.0.2.10", ips.ClientIP(req), "spoofed header must not pick the bucket")

	var nilResolver *ClientIPResolver
	assert.Equal(t, "192.0.2.10", nilResolver.ClientIP(req))
}

func TestClientIPResolver_TrustedProxy(t *testing.T) {
	ips, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    []string
		want   string
	}{
		{"no header", "10.1.2.3:443", nil, "10.1.2.3"},
		{"single hop", "10.1.2.3:443", []string{"203.0.113.7"}, "203.0.113.7"},
		{"client prepends a fake hop", "10.1.2.3:443", []string{"198.51.100.9, 203.0.113.7"}, "203.0.113.7"},
		{"chain of trusted proxies", "192.0.2.1:443", []string{"203.0.113.7, 10.0.0.5"}, "203.0.113.7"},
		{"repeated headers", "10.1.2.3:443", []string{"198.51.100.9", "203.0.113.7"}, "203.0.113.7"},
		{"only trusted hops", "10.1.2.3:443", []string{"10.0.0.5"}, "10.1.2.3"},
		{"untrusted peer", "198.51.100.20:443", []string{"203.0.113.7"}, "198.51.100.20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, ips.ClientIP(req))
		})
	}
}

func TestNewClientIPResolver_RejectsGarbage(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = NewClientIPResolver([]string{"proxy.internal"})
	assert.Error(t, err)
}

func TestRateLimitMiddleware_SpoofedForwardedForSharesBucket(t *testing.T) {
	handler := RateLimitMiddleware(NewRateLimiter(0, 1), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, xff := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, w.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}
}
