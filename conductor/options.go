package conductor

import (
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/model"
)

const tracerName = "github.com/signalsfoundry/time-conductor/conductor"

// Option customises a ViewCoordinator or a standalone ModeController.
type Option func(*environment)

// WithLogger sets the engine logger.
func WithLogger(log logging.Logger) Option {
	return func(e *environment) { e.log = logging.OrNoop(log) }
}

// WithMetrics records ticks, mode switches and live subscriptions.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *environment) { e.metrics = metricsOrNoop(m) }
}

// WithFallbackDefaults sets the defaults applied when a time system supplies
// none. Without it the fallback is zero bounds and zero deltas.
func WithFallbackDefaults(d model.Defaults) Option {
	return func(e *environment) { e.fallback = d }
}

// WithTracer replaces the global otel tracer used for mode transitions.
func WithTracer(t trace.Tracer) Option {
	return func(e *environment) {
		if t != nil {
			e.tracer = t
		}
	}
}

// environment bundles the collaborators shared by every controller a
// coordinator builds.
type environment struct {
	log      logging.Logger
	metrics  MetricsRecorder
	fallback model.Defaults
	tracer   trace.Tracer

	// live counts tick subscriptions held by controllers of this environment.
	live atomic.Int32
}

func newEnvironment(opts []Option) *environment {
	env := &environment{
		log:     logging.Noop(),
		metrics: noopMetrics{},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// defaultsFor resolves ts's defaults, falling back to the configured value.
func (e *environment) defaultsFor(ts model.TimeSystem) (model.Defaults, bool) {
	if d := ts.Defaults(); d != nil {
		return *d, true
	}
	return e.fallback, false
}

func (e *environment) subscriptionAdded() {
	e.metrics.RecordSubscriptions(int(e.live.Add(1)))
}

func (e *environment) subscriptionReleased() {
	e.metrics.RecordSubscriptions(int(e.live.Add(-1)))
}
