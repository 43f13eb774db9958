package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/time-conductor/model"
)

// ConductorCollector bundles Prometheus metrics for the mode engine and its
// RPC surface. It implements conductor.MetricsRecorder.
type ConductorCollector struct {
	gatherer prometheus.Gatherer

	Ticks             *prometheus.CounterVec
	ModeSwitches      *prometheus.CounterVec
	BoundsStart       prometheus.Gauge
	BoundsEnd         prometheus.Gauge
	Following         prometheus.Gauge
	TickSubscriptions prometheus.Gauge

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewConductorCollector registers conductor metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewConductorCollector(reg prometheus.Registerer) (*ConductorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_ticks_total",
		Help: "Ticks turned into bounds, labeled by mode.",
	}, []string{"mode"}), "conductor_ticks_total")
	if err != nil {
		return nil, err
	}

	switches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_mode_switches_total",
		Help: "Mode controllers constructed, labeled by mode.",
	}, []string{"mode"}), "conductor_mode_switches_total")
	if err != nil {
		return nil, err
	}

	boundsStart, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_bounds_start",
		Help: "Start of the displayed window in time system units.",
	}), "conductor_bounds_start")
	if err != nil {
		return nil, err
	}
	boundsEnd, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_bounds_end",
		Help: "End of the displayed window in time system units.",
	}), "conductor_bounds_end")
	if err != nil {
		return nil, err
	}
	following, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_following",
		Help: "1 while the bounds track a tick source, 0 otherwise.",
	}), "conductor_following")
	if err != nil {
		return nil, err
	}
	subs, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_tick_subscriptions",
		Help: "Live tick source subscriptions held by mode controllers.",
	}), "conductor_tick_subscriptions")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_rpc_requests_total",
		Help: "Total number of handled conductor RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "conductor_rpc_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conductor_rpc_duration_seconds",
		Help:    "Conductor RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "conductor_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &ConductorCollector{
		gatherer:          gatherer,
		Ticks:             ticks,
		ModeSwitches:      switches,
		BoundsStart:       boundsStart,
		BoundsEnd:         boundsEnd,
		Following:         following,
		TickSubscriptions: subs,
		RPCRequests:       requests,
		RPCDurations:      durations,
	}, nil
}

// RecordBounds updates the window gauges.
func (c *ConductorCollector) RecordBounds(b model.Bounds) {
	if c == nil {
		return
	}
	c.BoundsStart.Set(b.Start)
	c.BoundsEnd.Set(b.End)
}

// RecordFollowing updates the following gauge.
func (c *ConductorCollector) RecordFollowing(following bool) {
	if c == nil {
		return
	}
	if following {
		c.Following.Set(1)
		return
	}
	c.Following.Set(0)
}

// RecordTick counts a tick applied in mode.
func (c *ConductorCollector) RecordTick(mode model.ModeKey) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(string(mode)).Inc()
}

// RecordModeSwitch counts a controller built for mode.
func (c *ConductorCollector) RecordModeSwitch(mode model.ModeKey) {
	if c == nil {
		return
	}
	c.ModeSwitches.WithLabelValues(string(mode)).Inc()
}

// RecordSubscriptions sets the live subscription gauge.
func (c *ConductorCollector) RecordSubscriptions(n int) {
	if c == nil {
		return
	}
	c.TickSubscriptions.Set(float64(n))
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *ConductorCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ConductorCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
