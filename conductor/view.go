package conductor

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/model"
)

// ViewCoordinator offers the modes the registered time systems can support
// and swaps the active ModeController when the mode changes.
type ViewCoordinator struct {
	conductor   *Conductor
	timeSystems []model.TimeSystem
	modes       map[model.ModeKey]model.ModeMetadata
	env         *environment

	mu     sync.Mutex
	active *ModeController
}

// State is a point-in-time view of the engine.
type State struct {
	Mode                 model.ModeKey
	TimeSystem           string
	Bounds               model.Bounds
	HasBounds            bool
	Deltas               *model.Deltas
	Following            bool
	TickSource           string
	AvailableModes       []model.ModeKey
	AvailableTimeSystems []string
	AvailableTickSources []string
}

// NewViewCoordinator computes the available modes from systems. No mode is
// active until SetMode is called.
func NewViewCoordinator(c *Conductor, systems []model.TimeSystem, opts ...Option) *ViewCoordinator {
	v := &ViewCoordinator{
		conductor:   c,
		timeSystems: append([]model.TimeSystem(nil), systems...),
		env:         newEnvironment(opts),
	}
	v.modes = availableModes(v.timeSystems)
	return v
}

func availableModes(systems []model.TimeSystem) map[model.ModeKey]model.ModeMetadata {
	modes := make(map[model.ModeKey]model.ModeMetadata, 3)
	for _, key := range model.ModeKeys() {
		offered := key == model.Fixed
		for _, ts := range systems {
			if offered {
				break
			}
			offered = model.SupportsMode(ts, key)
		}
		if offered {
			meta, _ := model.DefaultModeMetadata(key)
			modes[key] = meta
		}
	}
	return modes
}

// Conductor returns the shared conductor.
func (v *ViewCoordinator) Conductor() *Conductor { return v.conductor }

// AvailableModes returns the selectable modes. Fixed is always present.
func (v *ViewCoordinator) AvailableModes() map[model.ModeKey]model.ModeMetadata {
	out := make(map[model.ModeKey]model.ModeMetadata, len(v.modes))
	for k, m := range v.modes {
		out[k] = m
	}
	return out
}

// Mode returns the active mode key.
func (v *ViewCoordinator) Mode() (model.ModeKey, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		return "", false
	}
	return v.active.Metadata().Key, true
}

// Active returns the active controller, or nil before SetMode.
func (v *ViewCoordinator) Active() *ModeController {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// SetMode destroys the active controller and builds one for key. If the
// selected time system is missing or unsupported by the new mode, the first
// compatible one is selected with its default bounds.
func (v *ViewCoordinator) SetMode(ctx context.Context, key model.ModeKey) error {
	ctx, span := v.env.tracer.Start(ctx, "conductor.SetMode",
		trace.WithAttributes(attribute.String("conductor.mode", string(key))))
	defer span.End()

	meta, ok := v.modes[key]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownMode, key)
		recordSpanError(span, err)
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.active != nil {
		v.active.Destroy()
		v.active = nil
	}
	mc := newModeController(meta, v.timeSystems, v.conductor, v.env)
	v.active = mc
	v.env.metrics.RecordModeSwitch(key)

	compatible := mc.AvailableTimeSystems()
	if current := v.conductor.TimeSystem(); current == nil || !containsTimeSystem(compatible, current) {
		if len(compatible) == 0 {
			v.env.log.Warn(ctx, "no time system supports mode", logging.String("mode", string(key)))
		} else if err := v.selectTimeSystem(compatible[0]); err != nil {
			recordSpanError(span, err)
			return err
		}
	}

	if ts := v.conductor.TimeSystem(); ts != nil {
		span.SetAttributes(attribute.String("conductor.time_system", ts.Metadata().Key))
	}
	v.env.log.Info(ctx, "mode changed",
		logging.String("mode", string(key)),
		logging.String("controller_id", mc.ID()),
	)
	return nil
}

// AvailableTimeSystems returns the time systems offered by the active mode,
// or nil before SetMode.
func (v *ViewCoordinator) AvailableTimeSystems() []model.TimeSystem {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		return nil
	}
	return v.active.AvailableTimeSystems()
}

// SetTimeSystem selects the time system with key, resetting the bounds to
// its defaults.
func (v *ViewCoordinator) SetTimeSystem(ctx context.Context, key string) error {
	ctx, span := v.env.tracer.Start(ctx, "conductor.SetTimeSystem",
		trace.WithAttributes(attribute.String("conductor.time_system", key)))
	defer span.End()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		recordSpanError(span, ErrNoActiveMode)
		return ErrNoActiveMode
	}
	ts, ok := model.FindTimeSystem(v.active.AvailableTimeSystems(), key)
	if !ok {
		err := fmt.Errorf("%w: %q in mode %q", ErrUnknownTimeSystem, key, v.active.Metadata().Key)
		recordSpanError(span, err)
		return err
	}
	if err := v.selectTimeSystem(ts); err != nil {
		recordSpanError(span, err)
		return err
	}
	v.env.log.Info(ctx, "time system selected", logging.String("time_system", key))
	return nil
}

func (v *ViewCoordinator) selectTimeSystem(ts model.TimeSystem) error {
	defaults, _ := v.env.defaultsFor(ts)
	if err := v.conductor.SetTimeSystem(ts, &defaults.Bounds); err != nil {
		return fmt.Errorf("select time system %q: %w", ts.Metadata().Key, err)
	}
	return nil
}

// SetTickSource attaches the tick source with key from the active mode's
// available sources.
func (v *ViewCoordinator) SetTickSource(ctx context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		return ErrNoActiveMode
	}
	for _, src := range v.active.AvailableTickSources() {
		if src.Metadata().Key == key {
			v.active.SetTickSource(src)
			v.env.log.Info(ctx, "tick source selected", logging.String("tick_source", key))
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTickSource, key)
}

// Deltas returns the active controller's offsets.
func (v *ViewCoordinator) Deltas() (model.Deltas, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		return model.Deltas{}, false, ErrNoActiveMode
	}
	d, ok := v.active.Deltas()
	return d, ok, nil
}

// SetDeltas forwards to the active controller.
func (v *ViewCoordinator) SetDeltas(ctx context.Context, d model.Deltas) error {
	ctx, span := v.env.tracer.Start(ctx, "conductor.SetDeltas",
		trace.WithAttributes(
			attribute.Float64("conductor.deltas.start", d.Start),
			attribute.Float64("conductor.deltas.end", d.End),
		))
	defer span.End()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		recordSpanError(span, ErrNoActiveMode)
		return ErrNoActiveMode
	}
	if err := v.active.SetDeltas(d); err != nil {
		recordSpanError(span, err)
		return err
	}
	v.env.log.Debug(ctx, "deltas updated", logging.Float("start", d.Start), logging.Float("end", d.End))
	return nil
}

// SetBounds forwards a manual window edit to the active controller.
func (v *ViewCoordinator) SetBounds(ctx context.Context, b model.Bounds) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		return ErrNoActiveMode
	}
	if err := v.active.SetBounds(b); err != nil {
		return err
	}
	v.env.log.Debug(ctx, "bounds edited", logging.Float("start", b.Start), logging.Float("end", b.End))
	return nil
}

// LiveSubscriptions returns the number of tick subscriptions currently held
// by controllers of this coordinator.
func (v *ViewCoordinator) LiveSubscriptions() int {
	return int(v.env.live.Load())
}

// State snapshots the engine.
func (v *ViewCoordinator) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	var st State
	for _, key := range model.ModeKeys() {
		if _, ok := v.modes[key]; ok {
			st.AvailableModes = append(st.AvailableModes, key)
		}
	}
	st.Bounds, st.HasBounds = v.conductor.Bounds()
	st.Following = v.conductor.Following()
	if ts := v.conductor.TimeSystem(); ts != nil {
		st.TimeSystem = ts.Metadata().Key
	}
	if v.active == nil {
		return st
	}

	st.Mode = v.active.Metadata().Key
	if d, ok := v.active.Deltas(); ok {
		st.Deltas = &d
	}
	if src := v.active.TickSource(); src != nil {
		st.TickSource = src.Metadata().Key
	}
	for _, ts := range v.active.AvailableTimeSystems() {
		st.AvailableTimeSystems = append(st.AvailableTimeSystems, ts.Metadata().Key)
	}
	for _, src := range v.active.AvailableTickSources() {
		st.AvailableTickSources = append(st.AvailableTickSources, src.Metadata().Key)
	}
	return st
}

// Close destroys the active controller and stops following.
func (v *ViewCoordinator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active != nil {
		v.active.Destroy()
		v.active = nil
	}
	v.conductor.Follow(false)
}

func containsTimeSystem(systems []model.TimeSystem, ts model.TimeSystem) bool {
	for _, candidate := range systems {
		if model.SameTimeSystem(candidate, ts) {
			return true
		}
	}
	return false
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
