// Package http provides the HTTP surface of the admission pipeline.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/paperlens/paperlens/adapters/metrics"
	"github.com/paperlens/paperlens/app"
	"github.com/paperlens/paperlens/domain/envelope"
	"github.com/paperlens/paperlens/domain/fault"
	"github.com/paperlens/paperlens/domain/ratelimit"
	"github.com/paperlens/paperlens/ports"
)

// AnalysisHandler wraps the pipeline service for HTTP handling.
type AnalysisHandler struct {
	service     *app.AnalysisService
	clock       ports.Clock
	logger      zerolog.Logger
	metrics     *metrics.Collector
	environment string
}

// HandlerConfig configures the HTTP handler.
type HandlerConfig struct {
	// Environment gates diagnostic detail in error bodies: anything but
	// "production" includes internals.
	Environment string
	Metrics     *metrics.Collector
}

// NewAnalysisHandler creates the HTTP handler for the pipeline.
func NewAnalysisHandler(service *app.AnalysisService, clk ports.Clock, logger zerolog.Logger, cfg HandlerConfig) *AnalysisHandler {
	return &AnalysisHandler{
		service:     service,
		clock:       clk,
		logger:      logger,
		metrics:     cfg.Metrics,
		environment: cfg.Environment,
	}
}

type usageBody struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

type analyzeResponseBody struct {
	Result  any        `json:"result"`
	Usage   *usageBody `json:"usage,omitempty"`
	CostUSD float64    `json:"costUsd,omitempty"`
}

// Analyze handles POST /analyze.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.pipelineRequest(w, r)
	if !ok {
		return
	}

	prog, done := h.dispatchGauge()
	out := h.service.Handle(r.Context(), req, prog)
	done()
	h.observeOutcome(out)

	if out.Decision != nil {
		setQuotaHeaders(w, *out.Decision)
	}
	if out.Err != nil {
		h.writeError(w, out)
		return
	}

	body := analyzeResponseBody{Result: out.Result, CostUSD: out.Cost}
	if out.Usage.Reported() {
		body.Usage = &usageBody{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
			TotalTokens:  out.Usage.Total(),
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// Usage handles GET /usage: the caller's running totals.
func (h *AnalysisHandler) Usage(w http.ResponseWriter, r *http.Request) {
	out := h.service.HandleUsage(r.Context(), extractCredential(r), r.Method, r.URL.Path)

	if out.Decision != nil {
		setQuotaHeaders(w, *out.Decision)
	}
	if out.Err != nil {
		h.writeErrorBody(w, out.Status, out.Err, out.Decision)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity":       out.Identity,
		"totalAnalyses":  out.Totals.TotalAnalyses,
		"totalCostUsd":   out.Totals.TotalCost,
		"lastAnalysisAt": out.Totals.LastAnalysisAt,
	})
}

// pipelineRequest reads and bounds the body and assembles the pipeline
// request. Returns ok=false after writing an error response.
func (h *AnalysisHandler) pipelineRequest(w http.ResponseWriter, r *http.Request) (app.Request, bool) {
	var body []byte
	if r.Body != nil {
		var err error
		// One byte over the ceiling is enough for the size stage to reject.
		body, err = io.ReadAll(io.LimitReader(r.Body, envelope.MaxBodyBytes+1))
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to read request body")
			h.writeErrorBody(w, http.StatusBadRequest,
				fault.New(fault.ValidationFailed, "failed to read request body"), nil)
			return app.Request{}, false
		}
	}

	declared := r.ContentLength
	if declared < 0 {
		declared = int64(len(body))
	}

	return app.Request{
		Credential:   extractCredential(r),
		Method:       r.Method,
		Path:         r.URL.Path,
		Body:         body,
		DeclaredSize: declared,
	}, true
}

func (h *AnalysisHandler) writeError(w http.ResponseWriter, out app.Outcome) {
	h.writeErrorBody(w, out.Status, out.Err, out.Decision)
}

// writeErrorBody writes the JSON error shape. Quota denials mirror the
// headers in the body; the kind tag and internals appear only outside
// production.
func (h *AnalysisHandler) writeErrorBody(w http.ResponseWriter, status int, err error, dec *ratelimit.Decision) {
	kind, _ := fault.KindOf(err)
	body := map[string]any{
		"error": publicMessage(err),
	}

	if kind == fault.QuotaExceeded && dec != nil {
		retryAfter := dec.RetryAfter(h.clock.Now())
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		body["limit"] = dec.Limit
		body["resetAt"] = dec.ResetAt.UTC().Format(time.RFC3339)
		body["retryAfter"] = retryAfter
	}

	if h.environment != "production" {
		body["code"] = string(kind)
		body["details"] = err.Error()
	}

	writeJSON(w, status, body)
}

// publicMessage strips wrapped internals from an error, keeping only the
// tagged message.
func publicMessage(err error) string {
	var fe *fault.Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return "internal error"
}

// dispatchGauge returns a progress hook that tracks outstanding backend
// calls, and a release func to call once the pipeline returns.
func (h *AnalysisHandler) dispatchGauge() (app.ProgressFunc, func()) {
	if h.metrics == nil {
		return func(string) {}, func() {}
	}

	dispatched := false
	prog := func(stage string) {
		if stage == app.StageDispatching {
			h.metrics.DispatchInFlight.Inc()
			dispatched = true
		}
	}
	return prog, func() {
		if dispatched {
			h.metrics.DispatchInFlight.Dec()
		}
	}
}

func (h *AnalysisHandler) observeOutcome(out app.Outcome) {
	if h.metrics == nil {
		return
	}
	if out.Err != nil {
		kind, _ := fault.KindOf(out.Err)
		h.metrics.Denials.WithLabelValues(string(kind)).Inc()
		switch kind {
		case fault.QuotaExceeded:
			h.metrics.QuotaExhaustions.WithLabelValues("/analyze").Inc()
		case fault.UpstreamFailure, fault.UpstreamTimeout:
			h.metrics.DispatchErrors.WithLabelValues(string(kind)).Inc()
		}
		return
	}
	h.metrics.DispatchDuration.WithLabelValues(out.Model, "ok").
		Observe(float64(out.LatencyMs) / 1000)
	if out.Usage.Reported() {
		h.metrics.TokensTotal.WithLabelValues(out.Model, "input").Add(float64(out.Usage.InputTokens))
		h.metrics.TokensTotal.WithLabelValues(out.Model, "output").Add(float64(out.Usage.OutputTokens))
		h.metrics.CostTotal.WithLabelValues(out.Model).Add(out.Cost)
	}
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func setQuotaHeaders(w http.ResponseWriter, dec ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	w.Header().Set("X-RateLimit-Reset", dec.ResetAt.UTC().Format(time.RFC3339))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// extractCredential pulls the session credential from the request.
// Supports: Authorization header (Bearer token), X-Session-Token header,
// "session" cookie.
func extractCredential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if tok := r.Header.Get("X-Session-Token"); tok != "" {
		return tok
	}
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}

// RouterConfig configures optional router features.
type RouterConfig struct {
	Metrics *metrics.Collector
	// Timeout bounds one request end to end. Zero means 10 minutes, sized
	// for minutes-scale dispatches.
	Timeout time.Duration
}

// NewRouter assembles the chi router for the service.
func NewRouter(h *AnalysisHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	metricsHandler := promhttp.Handler()
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
		metricsHandler = cfg.Metrics.Handler()
	}

	r.Get("/healthz", Health)
	r.Handle("/metrics", metricsHandler)

	r.Post("/analyze", h.Analyze)
	r.Post("/analyze/stream", h.AnalyzeStream)
	r.Get("/usage", h.Usage)

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.Status())
			m.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		})
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
