package timectrl

import (
	"sync"
	"time"

	"github.com/signalsfoundry/time-conductor/model"
)

// Pace describes how a Clock advances between ticks.
type Pace int

const (
	// RealTime reads the wall clock on every tick.
	RealTime Pace = iota
	// Accelerated steps by Step on every tick, starting at StartTime,
	// regardless of how much wall time has passed.
	Accelerated
)

func (p Pace) String() string {
	switch p {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// Converter maps a wall-clock instant onto a time system's units.
type Converter func(time.Time) float64

// Clock is a tick source driven by a ticker. The ticker goroutine starts
// with the first listener and stops when the last one unsubscribes.
type Clock struct {
	mu        sync.RWMutex
	meta      model.TickSourceMetadata
	StartTime time.Time
	Tick      time.Duration
	Step      time.Duration
	Pace      Pace

	convert Converter
	wall    func() time.Time

	// currentTime is the instant of the most recent tick.
	currentTime time.Time

	listeners listenerSet
	stop      chan struct{}
	closed    bool
	loops     sync.WaitGroup

	// emitMu keeps deliveries ordered when Fire races the ticker.
	emitMu sync.Mutex
}

// ClockOption customises a Clock.
type ClockOption func(*Clock)

// WithStartTime sets the first instant of an Accelerated clock.
func WithStartTime(start time.Time) ClockOption {
	return func(c *Clock) { c.StartTime = start }
}

// WithStep sets how far an Accelerated clock advances per tick. It
// defaults to the tick interval.
func WithStep(step time.Duration) ClockOption {
	return func(c *Clock) { c.Step = step }
}

// WithWallClock replaces time.Now, mostly for tests.
func WithWallClock(now func() time.Time) ClockOption {
	return func(c *Clock) {
		if now != nil {
			c.wall = now
		}
	}
}

// NewClock constructs a clock tick source. A zero Mode in meta defaults to
// model.Realtime.
func NewClock(meta model.TickSourceMetadata, tick time.Duration, pace Pace, convert Converter, opts ...ClockOption) *Clock {
	if meta.Mode == "" {
		meta.Mode = model.Realtime
	}
	c := &Clock{
		meta:    meta,
		Tick:    tick,
		Pace:    pace,
		convert: convert,
		wall:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.StartTime.IsZero() {
		c.StartTime = c.wall()
	}
	if c.Step <= 0 {
		c.Step = c.Tick
	}
	c.currentTime = c.StartTime
	return c
}

// Metadata implements model.TickSource.
func (c *Clock) Metadata() model.TickSourceMetadata {
	return c.meta
}

// Now returns the instant of the most recent tick.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

// Listening returns the number of registered listeners.
func (c *Clock) Listening() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listeners.len()
}

// Listen implements model.TickSource.
func (c *Clock) Listen(h model.TickHandler) func() {
	if h == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.listeners.add(h)
	if c.listeners.len() == 1 {
		c.startLocked()
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.listeners.remove(id) && c.listeners.len() == 0 {
				c.stopLocked()
			}
		})
	}
}

// Fire advances the clock once and delivers the tick synchronously. It
// returns the delivered value.
func (c *Clock) Fire() float64 {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	return c.advance()
}

// Close stops the ticker goroutine and waits for it to exit. Listeners stay
// registered and still receive Fire calls.
func (c *Clock) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopLocked()
	c.mu.Unlock()
	c.loops.Wait()
}

func (c *Clock) startLocked() {
	if c.closed || c.stop != nil || c.Tick <= 0 {
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	c.loops.Add(1)
	go c.run(stop)
}

func (c *Clock) stopLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}

func (c *Clock) run(stop <-chan struct{}) {
	defer c.loops.Done()

	ticker := time.NewTicker(c.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.emitMu.Lock()
		select {
		case <-stop:
			c.emitMu.Unlock()
			return
		default:
		}
		c.advance()
		c.emitMu.Unlock()
	}
}

// advance must be called with emitMu held.
func (c *Clock) advance() float64 {
	c.mu.Lock()
	switch c.Pace {
	case Accelerated:
		c.currentTime = c.currentTime.Add(c.Step)
	default:
		c.currentTime = c.wall()
	}
	now := c.currentTime
	handlers := c.listeners.snapshot()
	c.mu.Unlock()

	v := c.value(now)
	for _, h := range handlers {
		h(v)
	}
	return v
}

func (c *Clock) value(t time.Time) float64 {
	if c.convert == nil {
		return float64(t.UnixMilli())
	}
	return c.convert(t)
}
