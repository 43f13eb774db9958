package model

import "strings"

// ModeKey identifies one of the three conductor modes.
type ModeKey string

const (
	// Fixed holds a static window edited by hand.
	Fixed ModeKey = "fixed"
	// Realtime follows a clock tick source.
	Realtime ModeKey = "realtime"
	// LAD follows the latest available data timestamp.
	LAD ModeKey = "lad"
)

// ModeMetadata describes a mode for presentation layers.
type ModeMetadata struct {
	Key         ModeKey
	Label       string
	Name        string
	Description string
	Glyph       string
}

var modeMetadata = map[ModeKey]ModeMetadata{
	Fixed: {
		Key:         Fixed,
		Label:       "Fixed",
		Name:        "Fixed Timespan Mode",
		Description: "Query and explore data that falls between two fixed datetimes.",
		Glyph:       "icon-calendar",
	},
	Realtime: {
		Key:         Realtime,
		Label:       "Real-time",
		Name:        "Real-time Mode",
		Description: "Monitor real-time streaming data as it comes in. The Time Conductor and displays will automatically advance themselves based on a UTC clock.",
		Glyph:       "icon-clock",
	},
	LAD: {
		Key:         LAD,
		Label:       "LAD",
		Name:        "LAD Mode",
		Description: "Latest Available Data mode monitors real-time streaming data as it comes in. The Time Conductor and displays will only advance when data becomes available.",
		Glyph:       "icon-database",
	},
}

// ModeKeys lists the known modes in presentation order.
func ModeKeys() []ModeKey {
	return []ModeKey{Fixed, Realtime, LAD}
}

// DefaultModeMetadata returns the canonical metadata for key.
func DefaultModeMetadata(key ModeKey) (ModeMetadata, bool) {
	m, ok := modeMetadata[key]
	return m, ok
}

// ParseModeKey maps user input onto a known key, ignoring case and
// surrounding whitespace.
func ParseModeKey(s string) (ModeKey, bool) {
	key := ModeKey(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := modeMetadata[key]; !ok {
		return "", false
	}
	return key, true
}

// Follows reports whether the mode derives bounds from a tick source.
func (k ModeKey) Follows() bool {
	return k == Realtime || k == LAD
}
