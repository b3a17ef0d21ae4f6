package api

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	tserrs "github.com/dylantarre/trend-spotter/internal/errors"
	"github.com/dylantarre/trend-spotter/internal/serverutil"
)

const (
	// Past this many tracked clients, idle ones are dropped.
	maxTrackedClients = 4096
	clientIdleAfter   = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles a route per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(r rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     r,
		burst:    burst,
	}
}

func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[ip]
	if !ok {
		if len(rl.limiters) >= maxTrackedClients {
			rl.prune(now)
		}
		l = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = l
	}
	l.lastSeen = now

	return l.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) prune(now time.Time) {
	for ip, l := range rl.limiters {
		if now.Sub(l.lastSeen) > clientIdleAfter {
			delete(rl.limiters, ip)
		}
	}
}

// retryAfter is how many whole seconds it takes to earn back one request.
func (rl *rateLimiter) retryAfter() int {
	if rl.rate <= 0 || rl.rate == rate.Inf {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(rl.rate))))
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.allow(ip, time.Now()) {
			slog.WarnContext(r.Context(), "rate limited", slog.String("ip", ip))
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			if err := serverutil.WriteJSON(w, http.StatusTooManyRequests,
				tserrs.E(http.StatusTooManyRequests, "too many requests")); err != nil {
				slog.ErrorContext(r.Context(), "error writing response", slog.String("error", err.Error()))
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}
