// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/soundleaf/folderplay/internal/player"
	"github.com/soundleaf/folderplay/internal/queue"
)

// FakePlayer is a scriptable test double for [player.Player]. Tests load a
// queue, poke its state, and emit events as if a real player produced them.
type FakePlayer struct {
	mu         sync.Mutex
	tracks     []queue.Track
	index      int
	positionMs int64
	durationMs int64
	bitrateBps int64
	playing    bool
	state      player.State
	shuffle    bool
	repeat     player.RepeatMode

	events chan player.Event
	Calls  []string
}

func NewFakePlayer() *FakePlayer {
	return &FakePlayer{events: make(chan player.Event, 64)}
}

func (f *FakePlayer) SetQueue(tracks []queue.Track, startIndex int, startPositionMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = tracks
	f.index = startIndex
	f.positionMs = startPositionMs
	f.state = player.StateReady
	f.record("SetQueue")
	return nil
}

func (f *FakePlayer) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	f.record("Play")
	return nil
}

func (f *FakePlayer) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	f.record("Pause")
	return nil
}

func (f *FakePlayer) SeekTo(index int, positionMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = index
	f.positionMs = positionMs
	f.record("SeekTo")
	return nil
}

func (f *FakePlayer) SeekToNext() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index+1 < len(f.tracks) {
		f.index++
	}
	f.record("SeekToNext")
	return nil
}

func (f *FakePlayer) SeekToPrevious() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index > 0 {
		f.index--
	}
	f.record("SeekToPrevious")
	return nil
}

func (f *FakePlayer) SetShuffle(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shuffle = enabled
	f.record("SetShuffle")
	return nil
}

func (f *FakePlayer) SetRepeat(mode player.RepeatMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repeat = mode
	f.record("SetRepeat")
	return nil
}

func (f *FakePlayer) Snapshot() player.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := player.Snapshot{
		Index:      f.index,
		PositionMs: f.positionMs,
		DurationMs: f.durationMs,
		BitrateBps: f.bitrateBps,
		Playing:    f.playing,
		State:      f.state,
	}
	if f.index >= 0 && f.index < len(f.tracks) {
		snap.MediaID = f.tracks[f.index].MediaID
	}
	return snap
}

func (f *FakePlayer) Queue() []queue.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]queue.Track, len(f.tracks))
	copy(out, f.tracks)
	return out
}

func (f *FakePlayer) Events() <-chan player.Event {
	return f.events
}

func (f *FakePlayer) Close() error {
	close(f.events)
	return nil
}

// Emit pushes an event as if the player produced it.
func (f *FakePlayer) Emit(ev player.Event) {
	f.events <- ev
}

// JumpTo moves the fake onto a queue index and returns its transition event.
func (f *FakePlayer) JumpTo(index int) player.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = index
	f.positionMs = 0
	return player.Event{Kind: player.EventTransition, MediaID: f.tracks[index].MediaID}
}

// Advance moves the playhead by ms.
func (f *FakePlayer) Advance(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionMs += ms
}

// SetBitrate sets the measured bitrate in bits per second.
func (f *FakePlayer) SetBitrate(bps int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bitrateBps = bps
}

// Playing reports the fake's transport state.
func (f *FakePlayer) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// Shuffled reports the fake's shuffle flag.
func (f *FakePlayer) Shuffled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shuffle
}

// Called reports whether a method was invoked.
func (f *FakePlayer) Called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c == name {
			return true
		}
	}
	return false
}

// record appends a call name. Callers must hold f.mu.
func (f *FakePlayer) record(name string) {
	f.Calls = append(f.Calls, name)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
