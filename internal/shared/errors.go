package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Source errors
	ErrSourceNotFound    = fmt.Errorf("source not found")
	ErrSourceUnavailable = fmt.Errorf("source unavailable")
	ErrInvalidSource     = fmt.Errorf("invalid source configuration")

	// Playback errors
	ErrNoPlayableTracks = fmt.Errorf("no playable tracks")
	ErrNoPlayer         = fmt.Errorf("player not attached")
	ErrNotRestorable    = fmt.Errorf("persisted playback state not restorable")
	ErrCueUnresolved    = fmt.Errorf("cue sheet references no resolvable audio file")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
