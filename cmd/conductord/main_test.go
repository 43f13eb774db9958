package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/time-conductor/conductor"
	"github.com/signalsfoundry/time-conductor/internal/api"
	"github.com/signalsfoundry/time-conductor/internal/config"
	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/model"
	"github.com/signalsfoundry/time-conductor/timesys"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Log.Level = "error"
	cfg.Server.MetricsAddr = "127.0.0.1:0"
	return cfg
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Mode = "realtime"
	cfg.Engine.TimeSystem = timesys.JulianDateKey

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, lis, prometheus.NewRegistry()) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := api.NewClient(conn)

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	st, err := client.GetState(callCtx)
	require.NoError(t, err)
	assert.Equal(t, model.Realtime, st.Mode)
	assert.Equal(t, timesys.JulianDateKey, st.TimeSystem)
	assert.Equal(t, "jd-clock", st.TickSource)
	assert.True(t, st.Following)

	st, err = client.SetMode(callCtx, model.LAD)
	require.NoError(t, err)
	assert.Equal(t, "jd-lad", st.TickSource)

	st, err = client.PushLatest(callCtx, "jd-lad", 2460000.5)
	require.NoError(t, err)
	require.NotNil(t, st.Deltas)
	assert.Equal(t, 2460000.5, st.Bounds.End)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRunRejectsIncompatibleStartup(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.TimeSystem = "tai"

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	err = run(context.Background(), cfg, lis, prometheus.NewRegistry())

	assert.ErrorIs(t, err, conductor.ErrUnknownTimeSystem)
}

func TestEngineRegistersSourcesPerTimeSystem(t *testing.T) {
	cfg := config.Defaults()
	cfg.Tick.Pace = "accelerated"
	cfg.Tick.Interval = time.Hour
	cfg.Tick.Step = time.Minute
	now := func() time.Time { return cfg.Mission.Epoch.Add(time.Hour) }

	eng := newEngine(cfg, logging.Noop(), nil, now)
	defer eng.Close()

	assert.Len(t, eng.clocks, 3)
	assert.Len(t, eng.latest, 3)
	for _, key := range []string{"utc-lad", "jd-lad", "met-lad"} {
		assert.Contains(t, eng.latest, key)
	}

	require.NoError(t, eng.view.SetMode(context.Background(), model.Realtime))
	require.NoError(t, eng.view.SetTimeSystem(context.Background(), timesys.METKey))
	st := eng.view.State()
	assert.Equal(t, "met-clock", st.TickSource)
	assert.Equal(t, float64(time.Hour.Milliseconds()), st.Bounds.End)
}
