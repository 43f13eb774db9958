package conductor

import (
	"errors"

	"github.com/signalsfoundry/time-conductor/model"
)

var (
	// ErrUnknownMode is returned when a mode key is not in AvailableModes.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrNoActiveMode is returned by pass-through operations before SetMode.
	ErrNoActiveMode = errors.New("no active mode")
	// ErrUnknownTimeSystem is returned when a time system is not offered by
	// the active mode.
	ErrUnknownTimeSystem = errors.New("time system not available")
	// ErrUnknownTickSource is returned when a tick source is not offered by
	// the active time system in the active mode.
	ErrUnknownTickSource = errors.New("tick source not available")
	// ErrDeltasUnsupported is returned when deltas are set in fixed mode.
	ErrDeltasUnsupported = errors.New("deltas are not defined in fixed mode")
	// ErrNoBounds is returned when deltas are applied before any bounds exist.
	ErrNoBounds = errors.New("conductor has no bounds")
	// ErrFollowing is returned when bounds are edited by hand while a tick
	// source drives them.
	ErrFollowing = errors.New("bounds are driven by a tick source")

	ErrInvalidBounds = model.ErrInvalidBounds
	ErrInvalidDeltas = model.ErrInvalidDeltas
)
