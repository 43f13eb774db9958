// Package conductor implements the time-conductor mode engine: a shared
// Conductor holding the displayed bounds, a ModeController deriving those
// bounds for one mode, and a ViewCoordinator swapping controllers when the
// mode changes.
package conductor

import (
	"fmt"
	"sync"

	"github.com/signalsfoundry/time-conductor/model"
)

// Conductor holds the single shared bounds value, the selected time system,
// and the following flag. Only the active ModeController writes to it.
type Conductor struct {
	mu         sync.RWMutex
	bounds     model.Bounds
	hasBounds  bool
	timeSystem model.TimeSystem
	following  bool
	handlers   map[EventName][]Handler

	metrics MetricsRecorder
}

// ConductorOption customises a Conductor.
type ConductorOption func(*Conductor)

// WithConductorMetrics records bounds and following updates.
func WithConductorMetrics(m MetricsRecorder) ConductorOption {
	return func(c *Conductor) { c.metrics = metricsOrNoop(m) }
}

// NewConductor returns a conductor with no time system and no bounds.
func NewConductor(opts ...ConductorOption) *Conductor {
	c := &Conductor{
		handlers: make(map[EventName][]Handler),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bounds returns the current window and whether one has been set.
func (c *Conductor) Bounds() (model.Bounds, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bounds, c.hasBounds
}

// SetBounds replaces the window. Invalid bounds are rejected and the
// previous value kept.
func (c *Conductor) SetBounds(b model.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.bounds, c.hasBounds = b, true
	handlers := c.snapshotLocked(EventBounds)
	c.mu.Unlock()

	c.metrics.RecordBounds(b)
	dispatch(handlers, Event{Name: EventBounds, Bounds: b})
	return nil
}

// TimeSystem returns the selected time system, or nil.
func (c *Conductor) TimeSystem() model.TimeSystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeSystem
}

// SetTimeSystem selects ts. When initial is non-nil it becomes the bounds
// before the time system event fires, so listeners reacting to the new time
// system see it and may replace it.
func (c *Conductor) SetTimeSystem(ts model.TimeSystem, initial *model.Bounds) error {
	if ts == nil {
		return fmt.Errorf("%w: nil time system", ErrUnknownTimeSystem)
	}
	if initial != nil {
		if err := initial.Validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.timeSystem = ts
	var boundsHandlers []Handler
	if initial != nil {
		c.bounds, c.hasBounds = *initial, true
		boundsHandlers = c.snapshotLocked(EventBounds)
	}
	tsHandlers := c.snapshotLocked(EventTimeSystem)
	c.mu.Unlock()

	if initial != nil {
		c.metrics.RecordBounds(*initial)
		dispatch(boundsHandlers, Event{Name: EventBounds, Bounds: *initial})
	}
	dispatch(tsHandlers, Event{Name: EventTimeSystem, TimeSystem: ts})
	return nil
}

// Following reports whether the bounds track a tick source.
func (c *Conductor) Following() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.following
}

// Follow sets the following flag. Handlers are notified only on change.
func (c *Conductor) Follow(following bool) {
	c.mu.Lock()
	changed := c.following != following
	c.following = following
	var handlers []Handler
	if changed {
		handlers = c.snapshotLocked(EventFollow)
	}
	c.mu.Unlock()

	c.metrics.RecordFollowing(following)
	if changed {
		dispatch(handlers, Event{Name: EventFollow, Following: following})
	}
}

// On registers h for name. Registering the same handler twice is a no-op.
func (c *Conductor) On(name EventName, h Handler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.handlers[name] {
		if existing == h {
			return
		}
	}
	c.handlers[name] = append(c.handlers[name], h)
}

// Off removes h from name.
func (c *Conductor) Off(name EventName, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.handlers[name]
	for i, existing := range list {
		if existing == h {
			c.handlers[name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// HandlerCount returns the number of handlers registered for name.
func (c *Conductor) HandlerCount(name EventName) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers[name])
}

func (c *Conductor) snapshotLocked(name EventName) []Handler {
	list := c.handlers[name]
	if len(list) == 0 {
		return nil
	}
	return append([]Handler(nil), list...)
}

func dispatch(handlers []Handler, ev Event) {
	for _, h := range handlers {
		h.Handle(ev)
	}
}
