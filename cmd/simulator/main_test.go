package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/time-conductor/conductor"
	"github.com/signalsfoundry/time-conductor/timesys"
)

func testOptions(mode, timeSystem string) options {
	return options{
		duration:   200 * time.Millisecond,
		tick:       10 * time.Millisecond,
		step:       time.Minute,
		mode:       mode,
		timeSystem: timeSystem,
		start:      time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC),
		tle1:       issTLE1,
		tle2:       issTLE2,
		logLevel:   "error",
	}
}

// TestRealtimeRunAdvancesWindow runs a short accelerated simulation.
func TestRealtimeRunAdvancesWindow(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), testOptions("realtime", timesys.UTCKey), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := windowLines(out.String())
	if len(lines) < 3 {
		t.Fatalf("expected several window lines, got %d:\n%s", len(lines), out.String())
	}
	if lines[0] == lines[len(lines)-1] {
		t.Fatalf("expected the window to move, first == last: %s", lines[0])
	}
	if !strings.Contains(out.String(), "Simulation complete.") {
		t.Fatalf("missing completion line:\n%s", out.String())
	}
}

func TestJulianDateRunReportsDays(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), testOptions("realtime", timesys.JulianDateKey), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "jd window") || !strings.Contains(out.String(), "days") {
		t.Fatalf("expected Julian date windows:\n%s", out.String())
	}
}

func TestFixedRunHoldsWindow(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), testOptions("fixed", timesys.METKey), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := windowLines(out.String())
	if len(lines) == 0 {
		t.Fatalf("expected the initial window to be printed:\n%s", out.String())
	}
	if last := lines[len(lines)-1]; !strings.Contains(last, "met window [0.000000, 0.000000]") {
		t.Fatalf("fixed MET window should stay at the epoch, got %s", last)
	}
}

func TestUnknownModeFails(t *testing.T) {
	err := run(context.Background(), testOptions("paused", timesys.UTCKey), &bytes.Buffer{})
	if !errors.Is(err, conductor.ErrUnknownMode) {
		t.Fatalf("run error = %v, want ErrUnknownMode", err)
	}
}

func windowLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, " window [") {
			lines = append(lines, line)
		}
	}
	return lines
}
