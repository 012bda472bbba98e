package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client IP using a token bucket.
//
// WHY PER-IP, PER-ENDPOINT?
// The credential endpoints are the ones worth hammering: login for
// password guessing, register for account spam. Each gets its own
// RateLimiter with its own budget, so a client burning through login
// attempts doesn't affect anyone else's requests — or even its own
// requests to other endpoints.
//
// The middleware must sit behind chi's RealIP so r.RemoteAddr holds the
// actual client address rather than a proxy's.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// staleAfter is how long an idle visitor entry survives before the
// cleanup sweep drops it.
const staleAfter = 3 * time.Hour

// NewRateLimiter creates a limiter allowing `events` requests per
// `period` from each IP, with bursts up to `burst`.
//
// Example budgets:
//
//	login:    NewRateLimiter(5, time.Minute, 5)  — 5/min
//	register: NewRateLimiter(3, time.Hour, 3)    — 3/hour
func NewRateLimiter(events int, period time.Duration, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(period / time.Duration(events)),
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

// Middleware enforces the limit, answering 429 when the caller's bucket
// is empty.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// cleanup periodically drops visitor entries that have gone quiet, so the
// map doesn't grow forever under churning client IPs.
func (rl *RateLimiter) cleanup() {
	for range time.Tick(10 * time.Minute) {
		cutoff := time.Now().Add(-staleAfter)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// clientIP strips the port from RemoteAddr. RealIP middleware has already
// substituted the forwarded-for address when one is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
