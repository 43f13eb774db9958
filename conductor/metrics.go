package conductor

import "github.com/signalsfoundry/time-conductor/model"

// MetricsRecorder receives engine activity. observability.ConductorCollector
// implements it.
type MetricsRecorder interface {
	RecordBounds(b model.Bounds)
	RecordFollowing(following bool)
	RecordTick(mode model.ModeKey)
	RecordModeSwitch(mode model.ModeKey)
	RecordSubscriptions(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordBounds(model.Bounds)      {}
func (noopMetrics) RecordFollowing(bool)           {}
func (noopMetrics) RecordTick(model.ModeKey)       {}
func (noopMetrics) RecordModeSwitch(model.ModeKey) {}
func (noopMetrics) RecordSubscriptions(int)        {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
