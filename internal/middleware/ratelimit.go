package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the per-client limiter table. The least recently
// seen client is evicted first and starts over with a full bucket.
const maxTrackedClients = 100_000

// RateLimiter is per-client token bucket rate limiting middleware for the
// endpoints that start provider work.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a rate limiter with the given sustained rate
// (requests per second) and burst size. A non-positive rate or burst
// returns nil, which Handler treats as unlimited.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	clients, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		panic(err) // only for a non-positive size
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: clients,
	}
}

// Handler returns HTTP middleware that enforces per-client rate limiting.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := rl.limiter(clientIP(r))

		now := time.Now()
		res := lim.ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(delay.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(lim.TokensAt(now))))
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if lim, ok := rl.clients.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	// A concurrent first request from the same client may win the race;
	// keep whichever limiter landed first.
	if prev, ok, _ := rl.clients.PeekOrAdd(key, lim); ok {
		return prev
	}
	return lim
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	if rl == nil {
		return 0
	}
	return rl.clients.Len()
}

// clientIP returns the host part of RemoteAddr. Run chi's RealIP first when
// the host sits behind a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
