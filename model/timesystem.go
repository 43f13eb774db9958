package model

import "strings"

// TimeSystemMetadata identifies a time system. Key is the identity used for
// compatibility checks.
type TimeSystemMetadata struct {
	Key   string
	Name  string
	Units string
}

// Defaults is the window and offsets a time system starts with.
type Defaults struct {
	Bounds Bounds
	Deltas Deltas
}

// TimeSystem is a unit/domain for time values. Implementations are
// immutable once handed to the engine.
type TimeSystem interface {
	Metadata() TimeSystemMetadata
	TickSources() []TickSource
	// Defaults returns nil when the time system supplies no defaults.
	Defaults() *Defaults
}

// SameTimeSystem compares two time systems by key.
func SameTimeSystem(a, b TimeSystem) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Metadata().Key == b.Metadata().Key
}

// TickSourcesForMode returns the tick sources of ts tagged for mode, in
// registration order. Tags match regardless of case.
func TickSourcesForMode(ts TimeSystem, mode ModeKey) []TickSource {
	if ts == nil {
		return nil
	}
	var out []TickSource
	for _, src := range ts.TickSources() {
		if src != nil && strings.EqualFold(string(src.Metadata().Mode), string(mode)) {
			out = append(out, src)
		}
	}
	return out
}

// SupportsMode reports whether ts is usable in mode. Every time system
// supports Fixed.
func SupportsMode(ts TimeSystem, mode ModeKey) bool {
	if ts == nil {
		return false
	}
	if mode == Fixed {
		return true
	}
	return len(TickSourcesForMode(ts, mode)) > 0
}

// FindTimeSystem looks a time system up by key.
func FindTimeSystem(systems []TimeSystem, key string) (TimeSystem, bool) {
	for _, ts := range systems {
		if ts != nil && ts.Metadata().Key == key {
			return ts, true
		}
	}
	return nil, false
}
