package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/time-conductor/conductor"
	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/model"
	"github.com/signalsfoundry/time-conductor/timectrl"
	"github.com/signalsfoundry/time-conductor/timesys"
)

const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

type options struct {
	duration   time.Duration
	tick       time.Duration
	step       time.Duration
	mode       string
	timeSystem string
	start      time.Time
	tle1, tle2 string
	logLevel   string
}

func main() {
	var opts options
	flag.DurationVar(&opts.duration, "duration", 10*time.Second, "total run time (wall clock)")
	flag.DurationVar(&opts.tick, "tick", time.Second, "tick interval")
	flag.DurationVar(&opts.step, "step", time.Minute, "simulated time added per tick")
	flag.StringVar(&opts.mode, "mode", "realtime", "conductor mode: fixed, realtime or lad")
	flag.StringVar(&opts.timeSystem, "time-system", timesys.UTCKey, "time system: utc, jd or met")
	flag.StringVar(&opts.tle1, "tle1", issTLE1, "first TLE line of the tracked satellite")
	flag.StringVar(&opts.tle2, "tle2", issTLE2, "second TLE line of the tracked satellite")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flag.Parse()
	opts.start = time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

// run drives the conductor with accelerated clocks for opts.duration and
// prints every window change along with the satellite position at the
// window end.
func run(ctx context.Context, opts options, out io.Writer) error {
	mode, ok := model.ParseModeKey(opts.mode)
	if !ok {
		return fmt.Errorf("%w: %q", conductor.ErrUnknownMode, opts.mode)
	}
	log := logging.New(logging.Config{Level: opts.logLevel, Format: "text", Output: os.Stderr})

	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	var clocks []*timectrl.Clock
	clockFor := func(key string, convert timectrl.Converter) *timectrl.Clock {
		clock := timectrl.NewClock(
			model.TickSourceMetadata{Key: key + "-clock", Name: key + " clock", Mode: model.Realtime},
			opts.tick, timectrl.Accelerated, convert,
			timectrl.WithStartTime(opts.start),
			timectrl.WithStep(opts.step),
		)
		clocks = append(clocks, clock)
		return clock
	}
	now := func() time.Time { return opts.start }
	systems := []model.TimeSystem{
		timesys.NewUTC(now, clockFor(timesys.UTCKey, timesys.UTCMillis)),
		timesys.NewJulianDate(now, clockFor(timesys.JulianDateKey, timesys.JulianDate)),
		timesys.NewMET(opts.start, now, clockFor(timesys.METKey, timesys.METMillis(opts.start))),
	}
	defer func() {
		for _, clock := range clocks {
			clock.Close()
		}
	}()

	c := conductor.NewConductor()
	view := conductor.NewViewCoordinator(c, systems, conductor.WithLogger(log))
	defer view.Close()

	p := &printer{
		out:   out,
		c:     c,
		sat:   satellite.TLEToSat(opts.tle1, opts.tle2, satellite.GravityWGS72),
		epoch: opts.start,
	}
	c.On(conductor.EventBounds, p)
	defer c.Off(conductor.EventBounds, p)

	fmt.Fprintf(out, "Starting conductor: mode=%s time-system=%s tick=%s step=%s\n",
		mode, opts.timeSystem, opts.tick, opts.step)
	if err := view.SetMode(ctx, mode); err != nil {
		return err
	}
	if view.State().TimeSystem != opts.timeSystem {
		if err := view.SetTimeSystem(ctx, opts.timeSystem); err != nil {
			return err
		}
	}

	<-ctx.Done()
	p.println("Simulation complete.")
	return nil
}

// printer reports each window and where the satellite is at its end.
type printer struct {
	mu    sync.Mutex
	out   io.Writer
	c     *conductor.Conductor
	sat   satellite.Satellite
	epoch time.Time
}

func (p *printer) Handle(ev conductor.Event) {
	ts := p.c.TimeSystem()
	if ts == nil {
		return
	}
	key := ts.Metadata().Key
	at := instantAt(key, ev.Bounds.End, p.epoch)

	year, month, day := at.Date()
	hour, min, sec := at.Clock()
	posECI, _ := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	posECEF := satellite.ECIToECEF(posECI, satellite.ThetaG_JD(jd))

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s] %s window [%.6f, %.6f] %s; sat ECEF (%.0f, %.0f, %.0f) km, GMST %.2f deg\n",
		at.Format(time.RFC3339), key, ev.Bounds.Start, ev.Bounds.End, ts.Metadata().Units,
		posECEF.X, posECEF.Y, posECEF.Z, timesys.SiderealDegrees(jd),
	)
}

func (p *printer) println(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, msg)
}

func instantAt(key string, value float64, epoch time.Time) time.Time {
	switch key {
	case timesys.JulianDateKey:
		return timesys.FromJulianDate(value)
	case timesys.METKey:
		return timesys.FromMETMillis(epoch, value)
	default:
		return timesys.FromUTCMillis(value)
	}
}
