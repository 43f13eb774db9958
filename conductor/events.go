package conductor

import "github.com/signalsfoundry/time-conductor/model"

// EventName identifies a conductor notification.
type EventName string

const (
	EventBounds     EventName = "bounds"
	EventTimeSystem EventName = "timeSystem"
	EventFollow     EventName = "follow"
)

// Event carries the conductor state relevant to its Name.
type Event struct {
	Name       EventName
	Bounds     model.Bounds
	TimeSystem model.TimeSystem
	Following  bool
}

// Handler receives conductor events. Handlers are registered and removed by
// identity, so implementations should be pointers.
//
// Handle runs synchronously on the goroutine that changed the conductor and
// must not call back into the engine's mutators.
type Handler interface {
	Handle(Event)
}
