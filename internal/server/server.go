package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/cache"
	"github.com/iwvelando/revenue-forecast/internal/observability"
	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/pkg/constants"
	"github.com/iwvelando/revenue-forecast/pkg/demographics"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"go.uber.org/zap"
)

// Options configures the HTTP handler. Store and Cache are optional; without
// a store the segment and model routes answer 503.
type Options struct {
	MaxUploadSize int64
	Version       string
	Store         storage.Store
	Cache         cache.Cache
	CacheTTL      time.Duration
	Metrics       *observability.Metrics
	// Now is the clock used for start dates and timestamps.
	Now func() time.Time
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	store         storage.Store
	cache         cache.Cache
	cacheTTL      time.Duration
	metrics       *observability.Metrics
	now           func() time.Time
}

type forecastOptions struct {
	Optimize bool
}

// NewHandler constructs the HTTP handler that serves the forecast API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics("")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Duration(constants.DefaultCacheTTLSeconds) * time.Second
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		store:         opts.Store,
		cache:         opts.Cache,
		cacheTTL:      cacheTTL,
		metrics:       metrics,
		now:           now,
	}

	mux := http.NewServeMux()
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, metrics.Middleware(pattern, fn))
	}

	// Forecast API endpoint (file upload)
	route("POST /api/forecast", h.handleForecast)

	// Forecast API endpoint for editor-driven updates
	route("POST /api/editor/forecast", h.handleForecastEditor)

	// Config serialization endpoint for editor downloads
	route("POST /api/editor/export", h.handleConfigExport)

	// Version endpoint for UI metadata
	route("GET /api/version", h.handleVersion)

	// Persisted segments and saved models
	route("GET /api/segments", h.handleListSegments)
	route("POST /api/segments", h.handleCreateSegment)
	route("GET /api/segments/{id}", h.handleGetSegment)
	route("PUT /api/segments/{id}", h.handleUpdateSegment)
	route("DELETE /api/segments/{id}", h.handleDeleteSegment)
	route("GET /api/models", h.handleListModels)
	route("POST /api/models", h.handleSaveModel)
	route("GET /api/models/{id}", h.handleGetModel)
	route("DELETE /api/models/{id}", h.handleDeleteModel)

	// Reference data
	route("GET /api/catalog", h.handleCatalog)
	route("GET /api/demographics/datasets", h.handleDatasets)
	route("GET /api/demographics/insights", h.handleInsights)
	route("POST /api/demographics/segments", h.handleDemographicSegments)

	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	var paramErr *projection.ParameterError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, demographics.ErrUnknownDataset):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, projection.ErrDuplicateScenario):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, projection.ErrEmptySegmentSet), errors.As(err, &paramErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		if parsed, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return parsed != 0
		}
	}
	return false
}
