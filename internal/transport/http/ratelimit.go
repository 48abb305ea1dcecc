// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/fieldbook/fieldbook/internal/observability/logger"
)

// Limiter decides whether a request from key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-process token bucket per client key.
type RateLimiter struct {
	mu    sync.Mutex
	ips   map[string]*visitor
	rps   rate.Limit
	burst int
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		ips:   make(map[string]*visitor),
		rps:   rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

// Allow implements Limiter.
func (rl *RateLimiter) Allow(_ context.Context, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.ips[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.ips[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Sweep drops keys idle for longer than idle.
func (rl *RateLimiter) Sweep(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-idle)
	for key, v := range rl.ips {
		if v.lastSeen.Before(cutoff) {
			delete(rl.ips, key)
		}
	}
}

// Run sweeps idle keys every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep(interval)
		}
	}
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window counter shared by every replica. When Redis
// is unreachable it defers to Fallback, or allows the request if none is set.
type RedisLimiter struct {
	Client   redis.Scripter
	Limit    int
	Window   time.Duration
	Prefix   string
	Fallback Limiter
}

// NewRedisLimiter allows limit requests per key per window.
func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, fallback Limiter) *RedisLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RedisLimiter{
		Client:   client,
		Limit:    limit,
		Window:   window,
		Prefix:   "fieldbook:rl:",
		Fallback: fallback,
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()

	count, err := rateLimitScript.Run(ctx, l.Client, []string{l.Prefix + key}, l.Window.Milliseconds()).Int64()
	if err != nil {
		slog.WarnContext(ctx, "redis rate limiter unavailable",
			logger.Component("ratelimit"),
			logger.Error(err),
		)
		if l.Fallback != nil {
			return l.Fallback.Allow(ctx, key)
		}
		return true
	}
	return count <= int64(l.Limit)
}

// RateLimitMiddleware creates a middleware for rate limiting. Requests are
// keyed by the client address that ips resolves; a nil resolver trusts no
// proxy.
func RateLimitMiddleware(l Limiter, ips *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r.Context(), ips.ClientIP(r)) {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPResolver picks the address a request is attributed to.
// X-Forwarded-For is honoured only when the peer is a trusted proxy, and
// then the right-most hop that is not itself trusted wins.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver accepts plain addresses and CIDRs.
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	c := &ClientIPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
			}
			c.trusted = append(c.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		addr = addr.Unmap()
		c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return c, nil
}

// ClientIP returns the rate limiting key for r.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !c.isTrusted(peer) {
		return peer
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !c.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func (c *ClientIPResolver) isTrusted(ip string) bool {
	if c == nil || len(c.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
