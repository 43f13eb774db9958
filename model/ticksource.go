package model

// TickSourceMetadata describes a tick source and the mode it serves.
type TickSourceMetadata struct {
	Key  string
	Name string
	Mode ModeKey
}

// TickHandler receives raw timestamps in the owning time system's units.
type TickHandler func(t float64)

// TickSource produces timestamps for one mode.
type TickSource interface {
	Metadata() TickSourceMetadata
	// Listen registers h and returns a function that removes it. The
	// returned function is safe to call more than once.
	Listen(h TickHandler) (unsubscribe func())
}
