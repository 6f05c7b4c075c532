package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter keeps one token bucket per client IP.
type IPLimiter struct {
	mu    sync.Mutex
	ips   map[string]*limiterEntry
	rate  rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time
}

// PerMinute builds a limiter allowing n requests per minute per IP, bursting up to n.
func PerMinute(n int, ttl time.Duration) *IPLimiter {
	return New(rate.Every(time.Minute/time.Duration(n)), n, ttl)
}

func New(r rate.Limit, burst int, ttl time.Duration) *IPLimiter {
	return &IPLimiter{
		ips:   make(map[string]*limiterEntry),
		rate:  r,
		burst: burst,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (l *IPLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.ips[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.ips[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (l *IPLimiter) Allow(ip string) bool {
	return l.get(ip).Allow()
}

// Sweep drops buckets idle for longer than the ttl.
func (l *IPLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, e := range l.ips {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.ips, ip)
		}
	}
}

// Run sweeps periodically until done is closed.
func (l *IPLimiter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-done:
			return
		}
	}
}

func (l *IPLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded, try again later")
			}
			return next(c)
		}
	}
}
