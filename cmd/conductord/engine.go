package main

import (
	"time"

	"github.com/signalsfoundry/time-conductor/conductor"
	"github.com/signalsfoundry/time-conductor/internal/api"
	"github.com/signalsfoundry/time-conductor/internal/config"
	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/model"
	"github.com/signalsfoundry/time-conductor/timectrl"
	"github.com/signalsfoundry/time-conductor/timesys"
)

// engine owns the time systems, their tick sources, and the coordinator.
type engine struct {
	view   *conductor.ViewCoordinator
	clocks []*timectrl.Clock
	latest map[string]api.LatestPublisher
}

// newEngine registers UTC, Julian date, and mission elapsed time, each with
// a clock source for realtime mode and a latest-available source for LAD.
func newEngine(cfg *config.Config, log logging.Logger, metrics conductor.MetricsRecorder, now func() time.Time) *engine {
	e := &engine{latest: make(map[string]api.LatestPublisher)}

	pace := timectrl.RealTime
	if cfg.Tick.Accelerated() {
		pace = timectrl.Accelerated
	}
	sources := func(key, name string, convert timectrl.Converter) []model.TickSource {
		clock := timectrl.NewClock(
			model.TickSourceMetadata{Key: key + "-clock", Name: name + " clock", Mode: model.Realtime},
			cfg.Tick.Interval, pace, convert,
			timectrl.WithWallClock(now),
			timectrl.WithStep(cfg.Tick.Step),
		)
		lad := timectrl.NewLatestAvailable(model.TickSourceMetadata{Key: key + "-lad", Name: name + " latest available"})
		e.clocks = append(e.clocks, clock)
		e.latest[lad.Metadata().Key] = lad
		return []model.TickSource{clock, lad}
	}

	systems := []model.TimeSystem{
		timesys.NewUTC(now, sources(timesys.UTCKey, "UTC", timesys.UTCMillis)...),
		timesys.NewJulianDate(now, sources(timesys.JulianDateKey, "Julian date", timesys.JulianDate)...),
		timesys.NewMET(cfg.Mission.Epoch, now, sources(timesys.METKey, "MET", timesys.METMillis(cfg.Mission.Epoch))...),
	}

	c := conductor.NewConductor(conductor.WithConductorMetrics(metrics))
	e.view = conductor.NewViewCoordinator(c, systems,
		conductor.WithLogger(log),
		conductor.WithMetrics(metrics),
	)
	return e
}

// Close releases the active controller and stops every clock.
func (e *engine) Close() {
	e.view.Close()
	for _, clock := range e.clocks {
		clock.Close()
	}
}
