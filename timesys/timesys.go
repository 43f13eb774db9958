// Package timesys provides the concrete time systems the conductor ships
// with: UTC milliseconds, Julian dates, and mission elapsed time.
package timesys

import (
	"time"

	"github.com/signalsfoundry/time-conductor/model"
)

// System is a model.TimeSystem assembled from metadata, a defaults
// function, and the tick sources it supports.
type System struct {
	meta     model.TimeSystemMetadata
	sources  []model.TickSource
	defaults func() *model.Defaults
}

// New builds a time system. defaults may be nil, in which case the engine
// applies its configured fallback.
func New(meta model.TimeSystemMetadata, defaults func() *model.Defaults, sources ...model.TickSource) *System {
	return &System{
		meta:     meta,
		sources:  append([]model.TickSource(nil), sources...),
		defaults: defaults,
	}
}

// Metadata implements model.TimeSystem.
func (s *System) Metadata() model.TimeSystemMetadata { return s.meta }

// TickSources implements model.TimeSystem.
func (s *System) TickSources() []model.TickSource {
	return append([]model.TickSource(nil), s.sources...)
}

// Defaults implements model.TimeSystem.
func (s *System) Defaults() *model.Defaults {
	if s.defaults == nil {
		return nil
	}
	return s.defaults()
}

func nowOrWall(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
