package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRateLimitRPS   = 25
	defaultRateLimitBurst = 50
)

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerSettings)

type routerSettings struct {
	logging    bool
	limiter    requestLimiter
	corsOrigin string
}

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(s *routerSettings) {
		s.logging = enabled
	}
}

// WithRateLimiter replaces the token bucket, primarily for tests.
func WithRateLimiter(limiter requestLimiter) RouterOption {
	return func(s *routerSettings) {
		s.limiter = limiter
	}
}

// WithRateLimit configures the token bucket shared by all clients. A zero or
// negative rate or burst disables rate limiting.
func WithRateLimit(ratePerSecond float64, burst int) RouterOption {
	return func(s *routerSettings) {
		if ratePerSecond <= 0 || burst <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = newTokenBucket(ratePerSecond, burst)
	}
}

// WithCORS lets pages served from origin read the API. Without it no CORS
// headers are sent and browsers keep the API same-origin.
func WithCORS(origin string) RouterOption {
	return func(s *routerSettings) {
		s.corsOrigin = strings.TrimSpace(origin)
	}
}

// NewRouter serves the handler's routes behind the request ID, rate limit,
// access log and panic recovery middleware, outermost first.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	settings := routerSettings{
		logging: true,
		limiter: newTokenBucket(defaultRateLimitRPS, defaultRateLimitBurst),
	}
	for _, opt := range opts {
		opt(&settings)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var chain http.Handler = handler.routes()
	if settings.corsOrigin != "" {
		chain = corsMiddleware(settings.corsOrigin, chain)
	}
	chain = recoveryMiddleware(logger, chain)
	if settings.logging {
		chain = loggingMiddleware(logger, chain)
	}
	chain = rateLimitMiddleware(settings.limiter, handler.metrics, chain)
	return requestIDMiddleware(chain)
}

func (h *Handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/keys", h.handleKeys)
	mux.HandleFunc("GET /api/config", h.handleExport)
	mux.HandleFunc("GET /api/config/{key...}", h.handleGetValue)
	mux.HandleFunc("POST /api/reload", h.handleReload)
	mux.Handle("GET /metrics", h.metrics.Handler())
	return mux
}

// corsMiddleware allows a single origin. Preflight requests are answered
// directly, plain OPTIONS requests fall through to the mux.
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Add("Vary", "Origin")
		header.Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			header.Set("Access-Control-Allow-Methods", "GET,POST")
			header.Set("Access-Control-Allow-Headers", "Content-Type,X-Request-ID")
			header.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestIDFromContext(r.Context())),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	})
}

func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestIDFromContext(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "Internal error", "unexpected server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware echoes the caller's X-Request-ID or generates one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(contextWithRequestID(r.Context(), id)))
	})
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
