package timesys

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/time-conductor/model"
)

const (
	JulianDateKey = "jd"

	secondsPerDay = 86400.0
	unixEpochJD   = 2440587.5
)

// JulianDate converts t to a Julian date with sub-second precision.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/1e9/secondsPerDay
}

// FromJulianDate is the inverse of JulianDate, to roughly microsecond
// precision.
func FromJulianDate(jd float64) time.Time {
	days := jd - unixEpochJD
	whole := math.Floor(days)
	frac := time.Duration(math.Round((days - whole) * secondsPerDay * 1e6)) * time.Microsecond
	return time.Unix(int64(whole)*secondsPerDay, 0).UTC().Add(frac)
}

// SiderealDegrees returns Greenwich mean sidereal time for jd in degrees.
func SiderealDegrees(jd float64) float64 {
	deg := satellite.ThetaG_JD(jd) * 180 / math.Pi
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// NewJulianDate returns a time system counting days. Defaults cover the day
// ending at now, trailing by one hour when following.
func NewJulianDate(now func() time.Time, sources ...model.TickSource) *System {
	now = nowOrWall(now)
	meta := model.TimeSystemMetadata{Key: JulianDateKey, Name: "Julian Date", Units: "days"}
	return New(meta, func() *model.Defaults {
		end := JulianDate(now())
		return &model.Defaults{
			Bounds: model.Bounds{Start: end - 1, End: end},
			Deltas: model.Deltas{Start: 1.0 / 24},
		}
	}, sources...)
}
