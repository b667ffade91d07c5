package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/envyaml"
	"github.com/eugenenazirov/envyaml/internal/flatten"
	"github.com/eugenenazirov/envyaml/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler serves the configuration held by storage.
type Handler struct {
	storage storage.Storage
	logger  *zap.Logger
	metrics *Metrics

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMetrics records lookups and reloads into m.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithHandlerLogger sets the logger used for reload outcomes.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		logger:  zap.NewNop(),
		metrics: NewMetrics(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.metrics.observeKeys(store.Config())
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		LoadedAt:  h.storage.LoadedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	_ = r
	keys := h.storage.Config().Keys()
	writeJSON(w, http.StatusOK, keysResponse{Keys: keys, Count: len(keys)})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	_ = r
	cfg := h.storage.Config()

	resp := exportResponse{
		Config:   flatten.StringKeys(cfg.Export()),
		YAMLFile: cfg.YAMLFile(),
		EnvFile:  cfg.EnvFile(),
		LoadedAt: h.storage.LoadedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetValue(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "key must not be empty")
		return
	}

	value, err := h.storage.Config().Lookup(key)
	if err != nil {
		h.metrics.lookups.WithLabelValues(resultMiss).Inc()
		if errors.Is(err, envyaml.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "Key not found", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}
	h.metrics.lookups.WithLabelValues(resultHit).Inc()

	writeJSON(w, http.StatusOK, valueResponse{Key: key, Value: flatten.StringKeys(value)})
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.storage.Reload()
	if err != nil {
		h.metrics.reloads.WithLabelValues(resultFailure).Inc()
		h.logger.Warn("configuration reload failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)

		var (
			undefined *envyaml.UndefinedVariableError
			duplicate *envyaml.DuplicateKeyError
		)
		switch {
		case errors.As(err, &undefined):
			writeError(w, http.StatusUnprocessableEntity, "Invalid configuration", err.Error(),
				"Define the missing variables or give them an inline default")
		case errors.As(err, &duplicate):
			writeError(w, http.StatusUnprocessableEntity, "Invalid configuration", err.Error(),
				"Remove the repeated names from the dotenv file")
		case errors.Is(err, envyaml.ErrFileNotFound):
			writeError(w, http.StatusUnprocessableEntity, "Invalid configuration", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	h.metrics.reloads.WithLabelValues(resultSuccess).Inc()
	h.metrics.observeKeys(cfg)
	h.logger.Info("configuration reloaded", zap.Int("keys", cfg.Len()))

	resp := reloadResponse{
		Keys:     cfg.Len(),
		LoadedAt: h.storage.LoadedAt(),
		Message:  "Configuration reloaded successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type keysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

type valueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type exportResponse struct {
	Config   any       `json:"config"`
	YAMLFile string    `json:"yamlFile,omitempty"`
	EnvFile  string    `json:"envFile,omitempty"`
	LoadedAt time.Time `json:"loadedAt"`
}

type reloadResponse struct {
	Keys     int       `json:"keys"`
	LoadedAt time.Time `json:"loadedAt"`
	Message  string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LoadedAt  time.Time `json:"loadedAt"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
