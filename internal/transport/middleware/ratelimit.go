package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/launchkit/saas-starter-kit/internal"
	"github.com/launchkit/saas-starter-kit/internal/transport"
)

const bucketTTL = 5 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// IPRateLimiter keeps one token bucket per client ip.
type IPRateLimiter struct {
	perSecond rate.Limit
	burst     int
	base      *transport.BaseHandler

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewIPRateLimiter(perSecond, burst int, base *transport.BaseHandler) *IPRateLimiter {
	return &IPRateLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		base:      base,
		buckets:   make(map[string]*bucket),
	}
}

func (l *IPRateLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than the ttl.
func (l *IPRateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, b := range l.buckets {
		if now.Sub(b.seen) > bucketTTL {
			delete(l.buckets, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps idle buckets every minute until ctx is done.
func (l *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := transport.ClientIP(r)
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip, time.Now()) {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			l.base.WriteAppError(w, r, internal.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
