package model_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/time-conductor/model"
)

type stubSource struct {
	meta model.TickSourceMetadata
}

func (s stubSource) Metadata() model.TickSourceMetadata { return s.meta }
func (s stubSource) Listen(model.TickHandler) func()    { return func() {} }

type stubSystem struct {
	key     string
	sources []model.TickSource
}

func (s stubSystem) Metadata() model.TimeSystemMetadata { return model.TimeSystemMetadata{Key: s.key} }
func (s stubSystem) TickSources() []model.TickSource    { return s.sources }
func (s stubSystem) Defaults() *model.Defaults          { return nil }

func TestBoundsValidate(t *testing.T) {
	tests := []struct {
		name    string
		bounds  model.Bounds
		wantErr bool
	}{
		{name: "empty window", bounds: model.Bounds{Start: 5, End: 5}},
		{name: "ordered", bounds: model.Bounds{Start: -10, End: 10}},
		{name: "reversed", bounds: model.Bounds{Start: 10, End: 5}, wantErr: true},
		{name: "nan", bounds: model.Bounds{Start: math.NaN(), End: 5}, wantErr: true},
		{name: "inf", bounds: model.Bounds{Start: 0, End: math.Inf(1)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bounds.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalidBounds)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDeltas(t *testing.T) {
	t.Run("negative offsets rejected", func(t *testing.T) {
		assert.ErrorIs(t, model.Deltas{Start: -1}.Validate(), model.ErrInvalidDeltas)
		assert.ErrorIs(t, model.Deltas{End: -1}.Validate(), model.ErrInvalidDeltas)
	})

	t.Run("around derives window", func(t *testing.T) {
		got := model.Deltas{Start: 1000, End: 500}.Around(10000)
		assert.Equal(t, model.Bounds{Start: 9000, End: 10500}, got)
	})
}

func TestParseModeKey(t *testing.T) {
	key, ok := model.ParseModeKey(" LAD ")
	require.True(t, ok)
	assert.Equal(t, model.LAD, key)

	_, ok = model.ParseModeKey("paused")
	assert.False(t, ok)

	assert.True(t, model.Realtime.Follows())
	assert.False(t, model.Fixed.Follows())
}

func TestDefaultModeMetadataCoversAllKeys(t *testing.T) {
	for _, key := range model.ModeKeys() {
		meta, ok := model.DefaultModeMetadata(key)
		require.True(t, ok, key)
		assert.Equal(t, key, meta.Key)
		assert.NotEmpty(t, meta.Label)
	}
}

func TestTickSourcesForMode(t *testing.T) {
	rt := stubSource{meta: model.TickSourceMetadata{Key: "clock", Mode: model.Realtime}}
	lad := stubSource{meta: model.TickSourceMetadata{Key: "lad", Mode: model.LAD}}
	ts := stubSystem{key: "utc", sources: []model.TickSource{lad, rt}}

	got := model.TickSourcesForMode(ts, model.Realtime)
	require.Len(t, got, 1)
	assert.Equal(t, "clock", got[0].Metadata().Key)

	assert.True(t, model.SupportsMode(ts, model.Fixed))
	assert.True(t, model.SupportsMode(ts, model.LAD))
	assert.False(t, model.SupportsMode(stubSystem{key: "bare"}, model.Realtime))
	assert.True(t, model.SupportsMode(stubSystem{key: "bare"}, model.Fixed))
}

func TestTickSourcesForModeFoldsCase(t *testing.T) {
	upper := stubSource{meta: model.TickSourceMetadata{Key: "telemetry", Mode: model.ModeKey("LAD")}}
	ts := stubSystem{key: "utc", sources: []model.TickSource{upper}}

	got := model.TickSourcesForMode(ts, model.LAD)
	require.Len(t, got, 1)
	assert.Equal(t, "telemetry", got[0].Metadata().Key)
	assert.True(t, model.SupportsMode(ts, model.LAD))
}

func TestFindAndCompareTimeSystems(t *testing.T) {
	a := stubSystem{key: "utc"}
	b := stubSystem{key: "met"}
	systems := []model.TimeSystem{a, b}

	found, ok := model.FindTimeSystem(systems, "met")
	require.True(t, ok)
	assert.True(t, model.SameTimeSystem(found, b))
	assert.False(t, model.SameTimeSystem(a, b))
	assert.True(t, model.SameTimeSystem(nil, nil))
	assert.False(t, model.SameTimeSystem(a, nil))

	_, ok = model.FindTimeSystem(systems, "jd")
	assert.False(t, ok)
}
