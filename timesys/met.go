package timesys

import (
	"time"

	"github.com/signalsfoundry/time-conductor/model"
)

const METKey = "met"

// METMillis returns a converter yielding milliseconds elapsed since epoch.
func METMillis(epoch time.Time) func(time.Time) float64 {
	return func(t time.Time) float64 {
		return float64(t.Sub(epoch).Milliseconds())
	}
}

// FromMETMillis maps milliseconds since epoch back to an instant.
func FromMETMillis(epoch time.Time, ms float64) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

// NewMET returns a mission elapsed time system anchored at epoch. Defaults
// span from the epoch to now (empty before launch).
func NewMET(epoch time.Time, now func() time.Time, sources ...model.TickSource) *System {
	now = nowOrWall(now)
	elapsed := METMillis(epoch)
	meta := model.TimeSystemMetadata{Key: METKey, Name: "Mission Elapsed Time", Units: "ms"}
	return New(meta, func() *model.Defaults {
		end := elapsed(now())
		if end < 0 {
			end = 0
		}
		return &model.Defaults{
			Bounds: model.Bounds{Start: 0, End: end},
			Deltas: model.Deltas{Start: float64(utcStartDelta.Milliseconds())},
		}
	}, sources...)
}
