// Package delivery routes telemetry events to a primary sink and falls back to
// a secondary sink when the primary fails.
//
// Every Deliver call is independent: the primary is always tried first, there
// is no retry beyond the single fallback hop, and no sink health is remembered
// between calls. Each attempt is bounded by the router's attempt timeout, so a
// call returns within twice that timeout.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/telhawk-systems/logrelay/internal/logging"
	"github.com/telhawk-systems/logrelay/internal/metrics"
	"github.com/telhawk-systems/logrelay/internal/models"
	"github.com/telhawk-systems/logrelay/internal/sink"
)

// DefaultAttemptTimeout bounds each sink attempt when none is configured.
const DefaultAttemptTimeout = 5 * time.Second

// Sink accepts a serialized event and returns the sink's response body.
// Implementations must honor ctx cancellation and must be safe for concurrent use.
type Sink interface {
	Name() string
	Endpoint() string
	Send(ctx context.Context, payload []byte) ([]byte, error)
}

// Router delivers events through the primary/secondary cascade.
// A Router is safe for concurrent use.
type Router struct {
	primary   Sink
	secondary Sink
	timeout   time.Duration
	logger    *logging.Logger
}

// NewRouter creates a router. A non-positive timeout selects DefaultAttemptTimeout.
func NewRouter(primary, secondary Sink, timeout time.Duration, logger *logging.Logger) *Router {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		logger:    logger,
	}
}

// Timeout returns the per-attempt bound.
func (r *Router) Timeout() time.Duration {
	return r.timeout
}

// Sinks describes the configured targets in the order they are tried.
func (r *Router) Sinks() []sink.Descriptor {
	return []sink.Descriptor{
		{Kind: sink.KindPrimary, Name: r.primary.Name(), Endpoint: r.primary.Endpoint(), Protocol: sink.Protocol},
		{Kind: sink.KindSecondary, Name: r.secondary.Name(), Endpoint: r.secondary.Endpoint(), Protocol: sink.Protocol},
	}
}

// Deliver sends event to the primary sink and, if that fails for any reason,
// to the secondary sink. Sink faults never escape: they are reported in the
// returned Outcome.
func (r *Router) Deliver(ctx context.Context, event models.Event) Outcome {
	payload, err := encode(event)
	if err != nil {
		return r.finish(ctx, Outcome{Path: PathNone, Err: err})
	}
	if ctx.Err() != nil {
		return r.finish(ctx, canceled(ctx, PathPrimary))
	}

	body, primaryErr := r.attempt(ctx, r.primary, payload)
	if primaryErr == nil {
		return r.finish(ctx, Outcome{Success: true, Path: PathPrimary, Response: responseJSON(body)})
	}
	if ctx.Err() != nil {
		return r.finish(ctx, canceled(ctx, PathPrimary))
	}

	r.logger.WarnContext(ctx, "primary sink failed, falling back",
		logging.Sink(r.primary.Name()),
		logging.Error(primaryErr),
	)
	metrics.FallbacksTotal.Inc()

	body, secondaryErr := r.attempt(ctx, r.secondary, payload)
	if secondaryErr == nil {
		return r.finish(ctx, Outcome{Success: true, Path: PathSecondary, Response: responseJSON(body)})
	}
	if ctx.Err() != nil {
		return r.finish(ctx, canceled(ctx, PathSecondary))
	}

	return r.finish(ctx, Outcome{
		Path: PathNone,
		Err: &FailureError{
			PrimarySink:   r.primary.Name(),
			SecondarySink: r.secondary.Name(),
			Primary:       primaryErr,
			Secondary:     secondaryErr,
		},
	})
}

// DeliverSecondary makes a single attempt against the secondary sink only,
// bypassing the primary.
func (r *Router) DeliverSecondary(ctx context.Context, event models.Event) Outcome {
	payload, err := encode(event)
	if err != nil {
		return r.finish(ctx, Outcome{Path: PathNone, Err: err})
	}
	if ctx.Err() != nil {
		return r.finish(ctx, canceled(ctx, PathSecondary))
	}

	body, sendErr := r.attempt(ctx, r.secondary, payload)
	if sendErr == nil {
		return r.finish(ctx, Outcome{Success: true, Path: PathSecondary, Response: responseJSON(body)})
	}
	if ctx.Err() != nil {
		return r.finish(ctx, canceled(ctx, PathSecondary))
	}
	return r.finish(ctx, Outcome{Path: PathNone, Err: fmt.Errorf("%s: %w", r.secondary.Name(), sendErr)})
}

// attempt makes one bounded call to s.
func (r *Router) attempt(ctx context.Context, s Sink, payload []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	body, err := s.Send(attemptCtx, payload)
	elapsed := time.Since(start)

	metrics.SinkAttemptDuration.WithLabelValues(s.Name()).Observe(elapsed.Seconds())

	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case ctx.Err() != nil:
		result = metrics.ResultCanceled
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		result = metrics.ResultTimeout
		err = fmt.Errorf("%s timed out after %s: %w", s.Name(), r.timeout, context.DeadlineExceeded)
	default:
		result = metrics.ResultError
	}
	metrics.SinkAttemptsTotal.WithLabelValues(s.Name(), result).Inc()

	r.logger.DebugContext(ctx, "sink attempt finished",
		logging.Sink(s.Name()),
		logging.Duration(elapsed),
		"result", result,
	)

	return body, err
}

func (r *Router) finish(ctx context.Context, o Outcome) Outcome {
	metrics.DeliveriesTotal.WithLabelValues(string(o.Path)).Inc()

	switch {
	case o.Success && o.Path == PathSecondary:
		r.logger.InfoContext(ctx, "event delivered via secondary sink", logging.DeliveryPath(string(o.Path)))
	case o.Success:
		r.logger.DebugContext(ctx, "event delivered", logging.DeliveryPath(string(o.Path)))
	case errors.Is(o.Err, ErrInvalidEvent):
		r.logger.WarnContext(ctx, "event rejected", logging.Error(o.Err))
	case errors.Is(o.Err, ErrCanceled):
		r.logger.WarnContext(ctx, "event delivery canceled", logging.Error(o.Err))
	default:
		r.logger.ErrorContext(ctx, "event delivery failed", logging.Error(o.Err))
	}
	return o
}

func encode(event models.Event) ([]byte, error) {
	if strings.TrimSpace(event.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(event.Service) == "" {
		return nil, fmt.Errorf("%w: service is required", ErrInvalidEvent)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: serialize event: %v", ErrInvalidEvent, err)
	}
	return payload, nil
}

func canceled(ctx context.Context, stage Path) Outcome {
	return Outcome{
		Path: PathNone,
		Err:  fmt.Errorf("%w during %s attempt: %w", ErrCanceled, stage, context.Cause(ctx)),
	}
}
