package timectrl

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/signalsfoundry/time-conductor/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestClockAcceleratedFire(t *testing.T) {
	c := NewClock(model.TickSourceMetadata{Key: "clock"}, time.Second, Accelerated, nil, WithStartTime(start))
	defer c.Close()

	var got []float64
	unsubscribe := c.Listen(func(v float64) { got = append(got, v) })
	defer unsubscribe()

	c.Fire()
	c.Fire()

	want := []float64{
		float64(start.Add(time.Second).UnixMilli()),
		float64(start.Add(2 * time.Second).UnixMilli()),
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("ticks = %v, want %v", got, want)
	}
	if now := c.Now(); !now.Equal(start.Add(2 * time.Second)) {
		t.Fatalf("Now() = %v, want %v", now, start.Add(2*time.Second))
	}
}

func TestClockStepDecouplesFromInterval(t *testing.T) {
	c := NewClock(model.TickSourceMetadata{Key: "clock"}, time.Hour, Accelerated, nil,
		WithStartTime(start), WithStep(10*time.Minute))
	defer c.Close()

	if got, want := c.Fire(), float64(start.Add(10*time.Minute).UnixMilli()); got != want {
		t.Fatalf("Fire() = %v, want %v", got, want)
	}
}

func TestClockRealTimeReadsWallClock(t *testing.T) {
	wall := start.Add(42 * time.Second)
	c := NewClock(model.TickSourceMetadata{Key: "clock"}, 0, RealTime,
		func(t time.Time) float64 { return float64(t.Unix()) },
		WithWallClock(func() time.Time { return wall }),
	)

	if got := c.Fire(); got != float64(wall.Unix()) {
		t.Fatalf("Fire() = %v, want %v", got, float64(wall.Unix()))
	}
	if got := c.Metadata().Mode; got != model.Realtime {
		t.Fatalf("default mode = %q, want realtime", got)
	}
}

func TestClockTickerFollowsListeners(t *testing.T) {
	c := NewClock(model.TickSourceMetadata{Key: "clock"}, 5*time.Millisecond, Accelerated, nil, WithStartTime(start))
	defer c.Close()

	ticks := make(chan float64, 16)
	unsubscribe := c.Listen(func(v float64) {
		select {
		case ticks <- v:
		default:
		}
	})

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick delivered by running clock")
	}

	unsubscribe()
	unsubscribe()
	if n := c.Listening(); n != 0 {
		t.Fatalf("Listening() = %d after unsubscribe, want 0", n)
	}
}

func TestClockCloseIsTerminal(t *testing.T) {
	c := NewClock(model.TickSourceMetadata{Key: "clock"}, time.Millisecond, Accelerated, nil, WithStartTime(start))
	c.Close()

	var mu sync.Mutex
	count := 0
	unsubscribe := c.Listen(func(float64) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer unsubscribe()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("closed clock delivered %d ticks", count)
	}
}

func TestLatestAvailableOnlyAdvances(t *testing.T) {
	lad := NewLatestAvailable(model.TickSourceMetadata{Key: "lad"})
	if lad.Metadata().Mode != model.LAD {
		t.Fatalf("default mode = %q, want lad", lad.Metadata().Mode)
	}

	var got []float64
	unsubscribe := lad.Listen(func(v float64) { got = append(got, v) })

	for _, v := range []float64{100, 90, 100, 150} {
		lad.Push(v)
	}
	if len(got) != 2 || got[0] != 100 || got[1] != 150 {
		t.Fatalf("delivered %v, want [100 150]", got)
	}
	if latest, ok := lad.Latest(); !ok || latest != 150 {
		t.Fatalf("Latest() = %v, %v; want 150, true", latest, ok)
	}

	unsubscribe()
	if !lad.Push(200) {
		t.Fatalf("Push(200) should still record newer data")
	}
	if len(got) != 2 {
		t.Fatalf("unsubscribed listener received %v", got)
	}
	if lad.Listening() != 0 {
		t.Fatalf("Listening() = %d, want 0", lad.Listening())
	}
}

func TestListenerSetRemoveKeepsOrder(t *testing.T) {
	var s listenerSet
	var order []int
	a := s.add(func(float64) { order = append(order, 1) })
	s.add(func(float64) { order = append(order, 2) })
	s.add(func(float64) { order = append(order, 3) })

	if !s.remove(a) || s.remove(a) {
		t.Fatalf("remove should succeed exactly once")
	}
	for _, h := range s.snapshot() {
		h(0)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 3 {
		t.Fatalf("order = %v, want [2 3]", order)
	}
}
