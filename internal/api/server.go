// Package api serves the map search engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compmap/internal/mapsearch"
	"github.com/sells-group/compmap/internal/metrics"
	"github.com/sells-group/compmap/internal/model"
)

// Service is the engine surface the handlers call.
type Service interface {
	GetClusters(ctx context.Context, q mapsearch.ViewportQuery) (*mapsearch.ClustersResult, error)
	GetClusterDetails(ctx context.Context, q mapsearch.DetailQuery) (*mapsearch.DetailResult, error)
	GetViewStatistics(ctx context.Context, q mapsearch.StatsQuery) (*model.ViewStatistics, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	RequestTimeout  time.Duration
	CORSOrigins     []string
	RateLimit       float64
	RateBurst       int
	DefaultPageSize int
}

// Handler owns the routes and their dependencies.
type Handler struct {
	svc     Service
	ready   Pinger
	metrics *metrics.Metrics
	opts    Options
	limiter *clientLimiter
}

// NewHandler creates a Handler. ready and m may be nil.
func NewHandler(svc Service, ready Pinger, m *metrics.Metrics, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = mapsearch.DefaultOptions().DefaultPageSize
	}
	h := &Handler{svc: svc, ready: ready, metrics: m, opts: opts}
	if opts.RateLimit > 0 {
		h.limiter = newClientLimiter(opts.RateLimit, opts.RateBurst)
	}
	return h
}

// Router builds the chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.opts.RequestTimeout))
	r.Use(h.accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderRole, HeaderAccountID, HeaderUserID},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// Health
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Handle("/metrics", h.metrics.Handler())

	// API
	r.Route("/api/v1/map", func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/clusters", h.handleClusters)
		r.Get("/clusters.geojson", h.handleClustersGeoJSON)
		r.Get("/details", h.handleDetails)
		r.Get("/stats", h.handleStats)
	})

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	})
}

// fail maps an engine or parse error to a response. Invalid requests carry
// their message back; store failures do not.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		h.writeError(w, http.StatusBadRequest, "validation_failed", pe.Error())
	case eris.Is(err, mapsearch.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, "validation_failed", rootMessage(err))
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		zap.L().Error("api: request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "store_error", "failed to query properties")
	}
}

// rootMessage is the outermost wrap message of an invalid-request error,
// which names the rejected input.
func rootMessage(err error) string {
	u := eris.Unpack(err)
	if len(u.ErrChain) > 0 {
		return u.ErrChain[len(u.ErrChain)-1].Msg
	}
	return err.Error()
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.ready.Ping(ctx); err != nil {
		zap.L().Warn("api: readiness check failed", zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (h *Handler) handleClusters(w http.ResponseWriter, r *http.Request) {
	q, err := parseViewport(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.GetClusters(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleClustersGeoJSON(w http.ResponseWriter, r *http.Request) {
	q, err := parseViewport(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.GetClusters(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	fc, err := FeatureCollection(res)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(fc)
}

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request) {
	q, err := parseDetails(r, h.opts.DefaultPageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.GetClusterDetails(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	q, err := parseStats(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.GetViewStatistics(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
