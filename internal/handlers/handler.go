package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/telhawk-systems/logrelay/internal/delivery"
	"github.com/telhawk-systems/logrelay/internal/health"
	"github.com/telhawk-systems/logrelay/internal/httputil"
	"github.com/telhawk-systems/logrelay/internal/logging"
	"github.com/telhawk-systems/logrelay/internal/models"
	"github.com/telhawk-systems/logrelay/internal/ratelimit"
	"github.com/telhawk-systems/logrelay/internal/sink"
	"github.com/telhawk-systems/logrelay/internal/stats"
)

// Suggestion is returned to callers when neither sink accepted an event.
const Suggestion = "Try again in a few minutes - Elasticsearch may still be starting"

// Deliverer is the delivery surface the handlers need.
type Deliverer interface {
	Deliver(ctx context.Context, event models.Event) delivery.Outcome
	DeliverSecondary(ctx context.Context, event models.Event) delivery.Outcome
	Sinks() []sink.Descriptor
}

// Reporter produces the health report.
type Reporter interface {
	Report() health.Report
}

// StatsStore records and reads delivery counters. Optional.
type StatsStore interface {
	RecordDelivery(ctx context.Context, service, path string) error
	Get(ctx context.Context, service string) (*stats.Stats, error)
}

// Options configures a Handler.
type Options struct {
	Service      string
	Environment  string
	MaxEventSize int64
	Limiter      ratelimit.RateLimiter
	Stats        StatsStore
	Logger       *logging.Logger
}

type Handler struct {
	router       Deliverer
	reporter     Reporter
	limiter      ratelimit.RateLimiter
	stats        StatsStore
	service      string
	environment  string
	maxEventSize int64
	logger       *logging.Logger
}

func NewHandler(router Deliverer, reporter Reporter, opts Options) *Handler {
	h := &Handler{
		router:       router,
		reporter:     reporter,
		limiter:      opts.Limiter,
		stats:        opts.Stats,
		service:      opts.Service,
		environment:  opts.Environment,
		maxEventSize: opts.MaxEventSize,
		logger:       opts.Logger,
	}
	if h.limiter == nil {
		h.limiter = &ratelimit.NoOpRateLimiter{}
	}
	if h.logger == nil {
		h.logger = logging.Default()
	}
	if h.maxEventSize <= 0 {
		h.maxEventSize = 1 << 20
	}
	return h
}

// TestElasticsearch delivers an event through the primary/secondary cascade.
// The body may carry an event; an empty body sends a generated test event.
func (h *Handler) TestElasticsearch(w http.ResponseWriter, r *http.Request) {
	event, ok := h.prepare(w, r, "Test message from logrelay to Elasticsearch", "test_elasticsearch")
	if !ok {
		return
	}

	outcome := h.router.Deliver(r.Context(), event)
	h.record(r.Context(), event.Service, outcome)
	h.writeOutcome(w, outcome)
}

// TestLogstash sends an event straight to the secondary sink.
func (h *Handler) TestLogstash(w http.ResponseWriter, r *http.Request) {
	event, ok := h.prepare(w, r, "Test message from logrelay to Logstash", "test_logstash")
	if !ok {
		return
	}

	outcome := h.router.DeliverSecondary(r.Context(), event)
	h.record(r.Context(), event.Service, outcome)
	h.writeOutcome(w, outcome)
}

// Health reports configured backend topology. Always 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.reporter.Report())
}

// Healthz is the process liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready lists the configured sinks in the order they are tried.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"sinks":  h.router.Sinks(),
	})
}

// Stats returns Redis delivery counters for ?service= (default: this service).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.stats == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}

	service := r.URL.Query().Get("service")
	if service == "" {
		service = h.service
	}

	s, err := h.stats.Get(r.Context(), service)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read delivery stats", logging.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, "stats unavailable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

// prepare checks method and rate limit and builds the event to deliver.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request, defaultMessage, action string) (models.Event, bool) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return models.Event{}, false
	}

	clientIP := httputil.GetClientIP(r)

	allowed, err := h.limiter.Allow(r.Context(), "ip:"+clientIP)
	if err != nil {
		// Fail open: the limiter protects the sinks, it must not take delivery down.
		h.logger.WarnContext(r.Context(), "rate limiter unavailable", logging.Error(err))
	} else if !allowed {
		httputil.WriteJSON(w, http.StatusTooManyRequests, models.DeliveryResponse{
			Success: false,
			Error:   "rate limit exceeded",
		})
		return models.Event{}, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxEventSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, models.DeliveryResponse{Error: "event too large"})
			return models.Event{}, false
		}
		httputil.WriteJSON(w, http.StatusBadRequest, models.DeliveryResponse{Error: "failed to read request body"})
		return models.Event{}, false
	}

	data := map[string]any{
		"action":     action,
		"source":     "web_interface",
		"ip_address": clientIP,
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return models.NewEvent(models.LevelInfo, defaultMessage, h.service, h.environment, data), true
	}

	var req models.EventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, models.DeliveryResponse{Error: "invalid event JSON: " + err.Error()})
		return models.Event{}, false
	}

	level := req.Level
	if level == "" {
		level = models.LevelInfo
	}
	service := req.Service
	if service == "" {
		service = h.service
	}
	environment := req.Environment
	if environment == "" {
		environment = h.environment
	}
	if req.Data != nil {
		data = req.Data
	}

	return models.NewEvent(level, req.Message, service, environment, data), true
}

func (h *Handler) record(ctx context.Context, service string, outcome delivery.Outcome) {
	if h.stats == nil || errors.Is(outcome.Err, delivery.ErrInvalidEvent) {
		return
	}
	if err := h.stats.RecordDelivery(ctx, service, string(outcome.Path)); err != nil {
		h.logger.WarnContext(ctx, "failed to record delivery stats", logging.Error(err))
	}
}

func (h *Handler) writeOutcome(w http.ResponseWriter, outcome delivery.Outcome) {
	switch {
	case outcome.Success && outcome.Path == delivery.PathPrimary:
		httputil.WriteJSON(w, http.StatusOK, models.DeliveryResponse{
			Success:  true,
			Method:   models.MethodDirect,
			Response: outcome.Response,
		})
	case outcome.Success:
		httputil.WriteJSON(w, http.StatusOK, models.DeliveryResponse{
			Success:  true,
			Method:   models.MethodLogstash,
			Message:  "Sent via Logstash pipeline",
			Response: outcome.Response,
		})
	case errors.Is(outcome.Err, delivery.ErrInvalidEvent):
		httputil.WriteJSON(w, http.StatusBadRequest, models.DeliveryResponse{
			Success: false,
			Error:   outcome.Err.Error(),
		})
	default:
		resp := models.DeliveryResponse{
			Success: false,
			Error:   outcome.Detail(),
		}
		if !errors.Is(outcome.Err, delivery.ErrCanceled) {
			resp.Suggestion = Suggestion
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, resp)
	}
}
