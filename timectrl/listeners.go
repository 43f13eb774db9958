package timectrl

import "github.com/signalsfoundry/time-conductor/model"

// listenerSet keeps handlers in registration order. Callers synchronise.
type listenerSet struct {
	next    uint64
	entries []listenerEntry
}

type listenerEntry struct {
	id uint64
	h  model.TickHandler
}

func (s *listenerSet) add(h model.TickHandler) uint64 {
	s.next++
	s.entries = append(s.entries, listenerEntry{id: s.next, h: h})
	return s.next
}

func (s *listenerSet) remove(id uint64) bool {
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *listenerSet) len() int { return len(s.entries) }

func (s *listenerSet) snapshot() []model.TickHandler {
	out := make([]model.TickHandler, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.h
	}
	return out
}
