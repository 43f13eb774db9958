package timectrl

import (
	"sync"

	"github.com/signalsfoundry/time-conductor/model"
)

// LatestAvailable is a tick source that advances only when a producer
// reports data newer than anything seen so far.
type LatestAvailable struct {
	mu        sync.Mutex
	meta      model.TickSourceMetadata
	latest    float64
	seen      bool
	listeners listenerSet

	emitMu sync.Mutex
}

// NewLatestAvailable constructs a LAD tick source. A zero Mode in meta
// defaults to model.LAD.
func NewLatestAvailable(meta model.TickSourceMetadata) *LatestAvailable {
	if meta.Mode == "" {
		meta.Mode = model.LAD
	}
	return &LatestAvailable{meta: meta}
}

// Metadata implements model.TickSource.
func (l *LatestAvailable) Metadata() model.TickSourceMetadata {
	return l.meta
}

// Listen implements model.TickSource.
func (l *LatestAvailable) Listen(h model.TickHandler) func() {
	if h == nil {
		return func() {}
	}
	l.mu.Lock()
	id := l.listeners.add(h)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.listeners.remove(id)
			l.mu.Unlock()
		})
	}
}

// Push records a data timestamp. Listeners are notified, and true returned,
// only when t is newer than every earlier push.
func (l *LatestAvailable) Push(t float64) bool {
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	l.mu.Lock()
	if l.seen && t <= l.latest {
		l.mu.Unlock()
		return false
	}
	l.latest, l.seen = t, true
	handlers := l.listeners.snapshot()
	l.mu.Unlock()

	for _, h := range handlers {
		h(t)
	}
	return true
}

// Latest returns the newest timestamp pushed so far.
func (l *LatestAvailable) Latest() (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest, l.seen
}

// Listening returns the number of registered listeners.
func (l *LatestAvailable) Listening() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listeners.len()
}
