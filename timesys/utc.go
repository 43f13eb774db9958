package timesys

import (
	"time"

	"github.com/signalsfoundry/time-conductor/model"
)

const (
	UTCKey = "utc"

	utcWindow     = 30 * time.Minute
	utcStartDelta = 15 * time.Minute
)

// UTCMillis converts t to milliseconds since the Unix epoch.
func UTCMillis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// FromUTCMillis is the inverse of UTCMillis.
func FromUTCMillis(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// NewUTC returns the UTC time system. Its defaults cover the half hour
// ending at now, trailing by fifteen minutes when following.
func NewUTC(now func() time.Time, sources ...model.TickSource) *System {
	now = nowOrWall(now)
	meta := model.TimeSystemMetadata{Key: UTCKey, Name: "UTC", Units: "ms"}
	return New(meta, func() *model.Defaults {
		end := UTCMillis(now())
		return &model.Defaults{
			Bounds: model.Bounds{Start: end - float64(utcWindow.Milliseconds()), End: end},
			Deltas: model.Deltas{Start: float64(utcStartDelta.Milliseconds())},
		}
	}, sources...)
}
