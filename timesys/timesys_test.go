package timesys_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/time-conductor/model"
	"github.com/signalsfoundry/time-conductor/timectrl"
	"github.com/signalsfoundry/time-conductor/timesys"
)

var j2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestUTCDefaults(t *testing.T) {
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	clock := timectrl.NewClock(model.TickSourceMetadata{Key: "utc-clock"}, 0, timectrl.RealTime, timesys.UTCMillis)
	utc := timesys.NewUTC(fixedNow(now), clock)

	assert.Equal(t, timesys.UTCKey, utc.Metadata().Key)
	require.Len(t, utc.TickSources(), 1)

	d := utc.Defaults()
	require.NotNil(t, d)
	end := float64(now.UnixMilli())
	assert.Equal(t, model.Bounds{Start: end - 30*60*1000, End: end}, d.Bounds)
	assert.Equal(t, model.Deltas{Start: 15 * 60 * 1000}, d.Deltas)
	assert.NoError(t, d.Bounds.Validate())
}

func TestJulianDate(t *testing.T) {
	assert.InDelta(t, 2451545.0, timesys.JulianDate(j2000), 1e-6)
	assert.InDelta(t, 2451545.5, timesys.JulianDate(j2000.Add(12*time.Hour)), 1e-6)
	assert.InDelta(t, 2451545.0+0.5/86400, timesys.JulianDate(j2000.Add(500*time.Millisecond)), 1e-8)
}

func TestInverseConversions(t *testing.T) {
	instant := time.Date(2024, time.June, 1, 12, 34, 56, 789_000_000, time.UTC)

	assert.True(t, timesys.FromUTCMillis(timesys.UTCMillis(instant)).Equal(instant))
	assert.True(t, timesys.FromMETMillis(j2000, timesys.METMillis(j2000)(instant)).Equal(instant))
	assert.WithinDuration(t, instant, timesys.FromJulianDate(timesys.JulianDate(instant)), time.Millisecond)
	assert.True(t, timesys.FromJulianDate(2451545.0).Equal(j2000))
}

func TestSiderealDegreesAtJ2000(t *testing.T) {
	got := timesys.SiderealDegrees(2451545.0)
	assert.InDelta(t, 280.4606, got, 0.01)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.Less(t, got, 360.0)
}

func TestJulianDateDefaults(t *testing.T) {
	jd := timesys.NewJulianDate(fixedNow(j2000))
	d := jd.Defaults()
	require.NotNil(t, d)
	assert.InDelta(t, 2451545.0, d.Bounds.End, 1e-6)
	assert.InDelta(t, 1.0, d.Bounds.Width(), 1e-9)
	assert.InDelta(t, 1.0/24, d.Deltas.Start, 1e-12)
	assert.Empty(t, jd.TickSources())
}

func TestMETDefaults(t *testing.T) {
	epoch := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("after launch", func(t *testing.T) {
		met := timesys.NewMET(epoch, fixedNow(epoch.Add(time.Hour)))
		d := met.Defaults()
		require.NotNil(t, d)
		assert.Equal(t, model.Bounds{Start: 0, End: 3600 * 1000}, d.Bounds)
	})

	t.Run("before launch clamps to empty window", func(t *testing.T) {
		met := timesys.NewMET(epoch, fixedNow(epoch.Add(-time.Hour)))
		assert.Equal(t, model.Bounds{}, met.Defaults().Bounds)
	})

	t.Run("converter", func(t *testing.T) {
		assert.Equal(t, 1500.0, timesys.METMillis(epoch)(epoch.Add(1500*time.Millisecond)))
	})
}

func TestNewWithoutDefaults(t *testing.T) {
	ts := timesys.New(model.TimeSystemMetadata{Key: "bare"}, nil)
	assert.Nil(t, ts.Defaults())
	assert.False(t, model.SupportsMode(ts, model.Realtime))
}

func TestTickSourcesReturnsCopy(t *testing.T) {
	lad := timectrl.NewLatestAvailable(model.TickSourceMetadata{Key: "lad"})
	ts := timesys.New(model.TimeSystemMetadata{Key: "utc"}, nil, lad)

	sources := ts.TickSources()
	sources[0] = nil
	require.Len(t, ts.TickSources(), 1)
	assert.NotNil(t, ts.TickSources()[0])
}
