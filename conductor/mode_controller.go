package conductor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/model"
)

// ModeController derives bounds for one mode. It lives exactly as long as
// its mode is active and owns at most one tick subscription.
//
// All mutations go through mu, so a tick, a delta edit and a time system
// change never interleave.
type ModeController struct {
	id          string
	meta        model.ModeMetadata
	timeSystems []model.TimeSystem
	conductor   *Conductor
	env         *environment
	log         logging.Logger

	mu          sync.Mutex
	deltas      model.Deltas
	hasDeltas   bool
	tickSources []model.TickSource
	source      model.TickSource
	sub         *subscription
	destroyed   bool
}

// subscription identifies one Listen call so that ticks racing an
// unsubscribe can be told apart from ticks of the active source.
type subscription struct {
	source      model.TickSource
	unsubscribe func()
}

// NewModeController builds a controller outside a ViewCoordinator.
func NewModeController(meta model.ModeMetadata, systems []model.TimeSystem, c *Conductor, opts ...Option) *ModeController {
	return newModeController(meta, systems, c, newEnvironment(opts))
}

func newModeController(meta model.ModeMetadata, systems []model.TimeSystem, c *Conductor, env *environment) *ModeController {
	mc := &ModeController{
		id:          uuid.NewString(),
		meta:        meta,
		timeSystems: systems,
		conductor:   c,
		env:         env,
	}
	mc.log = env.log.With(
		logging.String("mode", string(meta.Key)),
		logging.String("controller_id", mc.id),
	)

	if ts := c.TimeSystem(); ts != nil {
		mc.ChangeTimeSystem(ts)
	}
	c.On(EventTimeSystem, mc)
	return mc
}

// ID returns the instance id used in logs.
func (mc *ModeController) ID() string { return mc.id }

// Metadata returns the mode this controller serves.
func (mc *ModeController) Metadata() model.ModeMetadata { return mc.meta }

// AvailableTimeSystems returns every registered time system in fixed mode,
// and only those with a tick source for this mode otherwise.
func (mc *ModeController) AvailableTimeSystems() []model.TimeSystem {
	out := make([]model.TimeSystem, 0, len(mc.timeSystems))
	for _, ts := range mc.timeSystems {
		if ts == nil {
			continue
		}
		if mc.meta.Key == model.Fixed || model.SupportsMode(ts, mc.meta.Key) {
			out = append(out, ts)
		}
	}
	return out
}

// AvailableTickSources returns the current time system's tick sources
// tagged for this mode.
func (mc *ModeController) AvailableTickSources() []model.TickSource {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return append([]model.TickSource(nil), mc.tickSources...)
}

// Handle reacts to conductor time system events.
func (mc *ModeController) Handle(ev Event) {
	if ev.Name == EventTimeSystem && ev.TimeSystem != nil {
		mc.ChangeTimeSystem(ev.TimeSystem)
	}
}

// ChangeTimeSystem resets the window to ts's defaults, re-derives it from
// the default deltas, and attaches the first compatible tick source.
func (mc *ModeController) ChangeTimeSystem(ts model.TimeSystem) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.destroyed || ts == nil {
		return
	}

	ctx := context.Background()
	key := ts.Metadata().Key
	defaults, ok := mc.env.defaultsFor(ts)
	if !ok {
		mc.log.Debug(ctx, "time system supplies no defaults; using fallback", logging.String("time_system", key))
	}

	if err := mc.conductor.SetBounds(defaults.Bounds); err != nil {
		mc.log.Warn(ctx, "rejected default bounds", logging.String("time_system", key), logging.Err(err))
	}
	// Offsets of the previous time system are in other units; the default
	// bounds are the raw anchor.
	mc.deltas, mc.hasDeltas = model.Deltas{}, false
	if mc.meta.Key.Follows() {
		if err := mc.setDeltasLocked(defaults.Deltas); err != nil {
			mc.log.Warn(ctx, "rejected default deltas", logging.String("time_system", key), logging.Err(err))
		}
	}

	mc.tickSources = model.TickSourcesForMode(ts, mc.meta.Key)
	var first model.TickSource
	if len(mc.tickSources) > 0 {
		first = mc.tickSources[0]
	} else if mc.meta.Key.Follows() {
		mc.log.Warn(ctx, "no tick source for mode; bounds will not advance", logging.String("time_system", key))
	}
	mc.setTickSourceLocked(first)

	mc.log.Info(ctx, "time system changed",
		logging.String("time_system", key),
		logging.Int("tick_sources", len(mc.tickSources)),
		logging.Bool("following", first != nil),
	)
}

// TickSource returns the active tick source, or nil.
func (mc *ModeController) TickSource() model.TickSource {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.source
}

// SetTickSource detaches the current tick source and attaches src. A nil
// src leaves the controller without a source and stops following.
func (mc *ModeController) SetTickSource(src model.TickSource) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.destroyed {
		return
	}
	mc.setTickSourceLocked(src)
}

func (mc *ModeController) setTickSourceLocked(src model.TickSource) {
	mc.releaseLocked()
	mc.source = src

	if src == nil {
		mc.conductor.Follow(false)
		return
	}

	sub := &subscription{source: src}
	sub.unsubscribe = src.Listen(func(t float64) { mc.handleTick(sub, t) })
	mc.sub = sub
	mc.env.subscriptionAdded()
	mc.conductor.Follow(true)

	mc.log.Debug(context.Background(), "tick source attached", logging.String("tick_source", src.Metadata().Key))
}

// releaseLocked drops the active subscription, if any.
func (mc *ModeController) releaseLocked() {
	if mc.sub == nil {
		return
	}
	mc.sub.unsubscribe()
	mc.log.Debug(context.Background(), "tick source detached", logging.String("tick_source", mc.sub.source.Metadata().Key))
	mc.sub = nil
	mc.env.subscriptionReleased()
}

func (mc *ModeController) handleTick(sub *subscription, t float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.destroyed || mc.sub != sub {
		return
	}

	b := model.Bounds{Start: t, End: t}
	if mc.hasDeltas {
		b = mc.deltas.Around(t)
	}
	if err := mc.conductor.SetBounds(b); err != nil {
		mc.log.Warn(context.Background(), "dropped tick", logging.Float("t", t), logging.Err(err))
		return
	}
	mc.env.metrics.RecordTick(mc.meta.Key)
}

// Deltas returns the current offsets and whether any are set.
func (mc *ModeController) Deltas() (model.Deltas, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.deltas, mc.hasDeltas
}

// SetDeltas re-centres the window around the same raw end instant with new
// offsets: the previous end delta is removed from the current end before
// the new offsets are applied.
func (mc *ModeController) SetDeltas(d model.Deltas) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.destroyed {
		return ErrNoActiveMode
	}
	return mc.setDeltasLocked(d)
}

func (mc *ModeController) setDeltasLocked(d model.Deltas) error {
	if !mc.meta.Key.Follows() {
		return ErrDeltasUnsupported
	}
	if err := d.Validate(); err != nil {
		return err
	}
	current, ok := mc.conductor.Bounds()
	if !ok {
		return ErrNoBounds
	}

	rawEnd := current.End
	if mc.hasDeltas {
		rawEnd -= mc.deltas.End
	}
	if err := mc.conductor.SetBounds(d.Around(rawEnd)); err != nil {
		return fmt.Errorf("apply deltas %v: %w", d, err)
	}
	mc.deltas, mc.hasDeltas = d, true
	return nil
}

// SetBounds edits the window by hand. It fails while a tick source drives
// the bounds.
func (mc *ModeController) SetBounds(b model.Bounds) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.destroyed {
		return ErrNoActiveMode
	}
	if mc.sub != nil {
		return ErrFollowing
	}
	return mc.conductor.SetBounds(b)
}

// Destroy removes the conductor handler and the tick subscription. Calling
// it again has no effect.
func (mc *ModeController) Destroy() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.destroyed {
		return
	}
	mc.destroyed = true
	mc.conductor.Off(EventTimeSystem, mc)
	mc.releaseLocked()
	mc.source = nil
	mc.log.Debug(context.Background(), "mode controller destroyed")
}
