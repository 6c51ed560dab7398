package api

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; past it the map is reset.
const maxTrackedClients = 10000

// IPLimiter applies a token bucket per client address.
type IPLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewIPLimiter allows requestsPerSecond per client with the given burst.
func NewIPLimiter(requestsPerSecond float64, burst int) *IPLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &IPLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether key may make a request now.
func (l *IPLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *IPLimiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	if len(l.limiters) >= maxTrackedClients {
		l.limiters = make(map[string]*rate.Limiter)
	}
	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// clientIP strips the port from RemoteAddr. middleware.RealIP has already
// replaced it with the forwarded address when one was sent.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
