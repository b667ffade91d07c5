package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

// requestLimiter reports whether one more request may be served now.
// *rate.Limiter satisfies it.
type requestLimiter interface {
	Allow() bool
}

// unthrottledPaths stay reachable while the API is saturated.
var unthrottledPaths = map[string]struct{}{
	"/api/health": {},
	"/metrics":    {},
}

// newTokenBucket returns a limiter refilling at rps tokens per second.
// Non-positive values fall back to one.
func newTokenBucket(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func rateLimitMiddleware(limiter requestLimiter, metrics *Metrics, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := unthrottledPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		metrics.observeRateLimited()
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "Too many requests",
			"configuration lookups are throttled", "Retry after one second")
	})
}
