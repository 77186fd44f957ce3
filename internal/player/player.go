// package player drives an external audio player process. The engine treats
// it as a black box: load a queue, control transport, watch events.
package player

import (
	"strings"

	"github.com/soundleaf/folderplay/internal/queue"
)

// State is the player's readiness.
type State int

const (
	StateIdle State = iota
	StateBuffering
	StateReady
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return "idle"
	}
}

// RepeatMode selects what happens when the queue runs out.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

// ParseRepeatMode maps a user-supplied string onto a RepeatMode, defaulting
// to off.
func ParseRepeatMode(s string) RepeatMode {
	switch strings.ToLower(s) {
	case "one":
		return RepeatOne
	case "all":
		return RepeatAll
	default:
		return RepeatOff
	}
}

// EventKind discriminates Event payloads.
type EventKind int

const (
	// EventTransition fires when the current item changes, including the
	// automatic advance at end of track.
	EventTransition EventKind = iota
	// EventStateChange fires on readiness changes.
	EventStateChange
	// EventPlayingChange fires when playback starts or pauses.
	EventPlayingChange
	// EventError fires on playback failures. The player stays usable.
	EventError
)

// Event is one observation from the player.
type Event struct {
	Kind    EventKind
	MediaID string
	State   State
	Playing bool
	Err     error
}

// Snapshot is the player's observable state at one instant.
type Snapshot struct {
	MediaID    string
	Index      int
	PositionMs int64
	DurationMs int64
	Playing    bool
	State      State
	BitrateBps int64
}

// Player is the transport contract the reconciliation engine drives.
type Player interface {
	// SetQueue replaces the loaded queue and cues up startIndex at
	// startPositionMs without starting playback.
	SetQueue(tracks []queue.Track, startIndex int, startPositionMs int64) error

	Play() error
	Pause() error
	SeekTo(index int, positionMs int64) error
	SeekToNext() error
	SeekToPrevious() error

	SetShuffle(enabled bool) error
	SetRepeat(mode RepeatMode) error

	// Snapshot reports current transport state. Safe from any goroutine.
	Snapshot() Snapshot

	// Queue returns the loaded tracks in queue order.
	Queue() []queue.Track

	// Events streams player observations until Close.
	Events() <-chan Event

	Close() error
}
