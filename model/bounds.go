package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidBounds is returned when a window has start after end or a
	// non-finite edge.
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrInvalidDeltas is returned when an offset is negative or non-finite.
	ErrInvalidDeltas = errors.New("invalid deltas")
)

// Bounds is the displayed time window, expressed in the units of the active
// time system (milliseconds for UTC, days for Julian dates, ...).
type Bounds struct {
	Start float64
	End   float64
}

// Validate reports whether b describes a usable window.
func (b Bounds) Validate() error {
	if !finite(b.Start) || !finite(b.End) {
		return fmt.Errorf("%w: non-finite edge {%v, %v}", ErrInvalidBounds, b.Start, b.End)
	}
	if b.Start > b.End {
		return fmt.Errorf("%w: start %v after end %v", ErrInvalidBounds, b.Start, b.End)
	}
	return nil
}

// Width returns End - Start.
func (b Bounds) Width() float64 { return b.End - b.Start }

func (b Bounds) String() string {
	return fmt.Sprintf("{%v, %v}", b.Start, b.End)
}

// Deltas are non-negative offsets applied around a reference instant t to
// derive Bounds{t - Start, t + End}.
type Deltas struct {
	Start float64
	End   float64
}

// Validate reports whether d holds two finite, non-negative offsets.
func (d Deltas) Validate() error {
	if !finite(d.Start) || !finite(d.End) {
		return fmt.Errorf("%w: non-finite offset {%v, %v}", ErrInvalidDeltas, d.Start, d.End)
	}
	if d.Start < 0 || d.End < 0 {
		return fmt.Errorf("%w: negative offset {%v, %v}", ErrInvalidDeltas, d.Start, d.End)
	}
	return nil
}

// Around returns the window these offsets describe around t.
func (d Deltas) Around(t float64) Bounds {
	return Bounds{Start: t - d.Start, End: t + d.End}
}

func (d Deltas) String() string {
	return fmt.Sprintf("{%v, %v}", d.Start, d.End)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
