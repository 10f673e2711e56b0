// Package server exposes sentiment prediction over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/go-sentiment/internal/predict"
	"github.com/example/go-sentiment/internal/vocab"
)

// Predictor classifies one raw review. *predict.Predictor implements it.
type Predictor interface {
	Predict(ctx context.Context, review string) (predict.Prediction, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	rateLimit      int
	rateWindow     time.Duration
	logger         *slog.Logger
	registry       *prometheus.Registry
}

func defaultOptions() options {
	return options{
		maxTextBytes:   4096,
		workers:        2,
		requestTimeout: 60 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum review size in bytes for POST /v1/predict.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent predictions. Zero
// disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithRateLimit allows at most n predictions per client IP within window.
// n <= 0 disables the limit.
func WithRateLimit(n int, window time.Duration) Option {
	return func(o *options) {
		o.rateLimit = n
		o.rateWindow = window
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry collects metrics into reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	predictor Predictor
	opts      options
	sem       chan struct{}
	log       *slog.Logger
	metrics   *metrics
}

// NewHandler returns an http.Handler serving GET /health, GET /metrics and
// POST /v1/predict.
func NewHandler(p Predictor, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.registry == nil {
		opts.registry = prometheus.NewRegistry()
	}

	h := &handler{
		predictor: p,
		opts:      opts,
		log:       opts.logger,
		metrics:   newMetrics(opts.registry),
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(opts.registry, promhttp.HandlerOpts{}))
	r.With(h.rateLimiter()).Post("/v1/predict", h.handlePredict)

	return r
}

func (h *handler) rateLimiter() func(http.Handler) http.Handler {
	if h.opts.rateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(h.opts.rateLimit, h.opts.rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			h.reject(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
		}),
	)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type predictRequest struct {
	Text *string `json:"text"`
}

type unknownTokenResponse struct {
	Error    string `json:"error"`
	Token    string `json:"token"`
	Position int    `json:"position"`
}

// bodyLimit bounds the raw request body; JSON escaping can inflate the
// review text by up to six bytes per byte.
func (h *handler) bodyLimit() int64 {
	return int64(h.opts.maxTextBytes)*6 + 1024
}

func (h *handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.bodyLimit()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))

			return
		}

		h.reject(w, http.StatusBadRequest, "bad_request", "read body: "+err.Error())

		return
	}

	var req predictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.reject(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}

	if req.Text == nil {
		h.reject(w, http.StatusBadRequest, "bad_request", "text field is required")
		return
	}

	review := *req.Text
	if len(review) > h.opts.maxTextBytes {
		h.reject(w, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))

		return
	}

	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			h.reject(w, http.StatusServiceUnavailable, "canceled", "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	h.metrics.inFlight.Inc()
	defer h.metrics.inFlight.Dec()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	reqID := chimiddleware.GetReqID(r.Context())
	start := time.Now()
	pred, err := h.predictor.Predict(ctx, review)
	elapsed := time.Since(start)
	h.metrics.latency.Observe(elapsed.Seconds())

	if err != nil {
		h.writePredictError(w, r, err, reqID, len(review), elapsed)
		return
	}

	h.metrics.predictions.WithLabelValues(pred.Sentiment.String()).Inc()
	h.log.InfoContext(r.Context(), "prediction complete",
		slog.String("request_id", reqID),
		slog.String("sentiment", pred.Sentiment.String()),
		slog.Float64("score", pred.Score),
		slog.Int("tokens", pred.Tokens),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	)

	writeJSON(w, http.StatusOK, pred)
}

func (h *handler) writePredictError(w http.ResponseWriter, r *http.Request, err error, reqID string, textLen int, elapsed time.Duration) {
	var unknown *vocab.UnknownTokenError

	switch {
	case errors.As(err, &unknown):
		h.metrics.unknownTokens.Inc()
		h.metrics.rejections.WithLabelValues("unknown_token").Inc()
		h.log.InfoContext(r.Context(), "review has unknown token",
			slog.String("request_id", reqID),
			slog.String("token", unknown.Token),
			slog.Int("position", unknown.Position),
		)
		writeJSON(w, http.StatusUnprocessableEntity, unknownTokenResponse{
			Error:    err.Error(),
			Token:    unknown.Token,
			Position: unknown.Position,
		})
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		h.metrics.rejections.WithLabelValues("timeout").Inc()
		h.log.WarnContext(r.Context(), "prediction timed out",
			slog.String("request_id", reqID),
			slog.Int("text_len", textLen),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusGatewayTimeout, "prediction timed out")
	default:
		h.metrics.rejections.WithLabelValues("internal").Inc()
		h.log.ErrorContext(r.Context(), "prediction failed",
			slog.String("request_id", reqID),
			slog.Int("text_len", textLen),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *handler) reject(w http.ResponseWriter, status int, reason, msg string) {
	h.metrics.rejections.WithLabelValues(reason).Inc()
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
