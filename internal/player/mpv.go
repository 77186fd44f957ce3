package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soundleaf/folderplay/internal/queue"
	"github.com/soundleaf/folderplay/internal/shared"
)

// DefaultBinary is the player binary used when none is configured.
const DefaultBinary = "mpv"

// MPV drives an mpv subprocess over its JSON IPC socket.
type MPV struct {
	cmd    *exec.Cmd
	conn   net.Conn
	logger *log.Logger

	mu       sync.Mutex
	list     playlist
	snap     Snapshot
	clip     queue.Track
	reqID    int
	closed   bool
	events   chan Event
	done     chan struct{}
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

type ipcMessage struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	Error     string          `json:"error"`
	RequestID int             `json:"request_id"`
}

// NewMPV launches mpv and connects to its control socket.
func NewMPV(binary string, logger *log.Logger) (*MPV, error) {
	if binary == "" {
		binary = DefaultBinary
	}

	socket := filepath.Join(os.TempDir(), fmt.Sprintf("folderplay-%s.sock", shared.GenerateID()[:8]))
	cmd := exec.Command(binary,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--pause",
		"--input-ipc-server="+socket,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %v", shared.ErrNoPlayer, binary, err)
	}

	conn, err := dialWithRetry(socket, 5*time.Second)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("%w: connecting to %s: %v", shared.ErrNoPlayer, binary, err)
	}

	p := &MPV{
		cmd:    cmd,
		conn:   conn,
		logger: logger,
		events: make(chan Event, 32),
		done:   make(chan struct{}),
	}

	go p.readLoop()

	for i, prop := range []string{"time-pos", "duration", "pause", "audio-bitrate"} {
		if err := p.send("observe_property", i+1, prop); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

func dialWithRetry(socket string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (p *MPV) SetQueue(tracks []queue.Track, startIndex int, startPositionMs int64) error {
	p.mu.Lock()
	p.list.set(tracks, startIndex)
	track, ok := p.list.current()
	p.mu.Unlock()

	if !ok {
		return shared.ErrNoPlayableTracks
	}
	return p.load(track, startPositionMs)
}

func (p *MPV) Play() error {
	return p.send("set_property", "pause", false)
}

func (p *MPV) Pause() error {
	return p.send("set_property", "pause", true)
}

func (p *MPV) SeekTo(index int, positionMs int64) error {
	p.mu.Lock()
	sameTrack := index == p.list.index
	if index >= 0 && index < len(p.list.tracks) {
		p.list.index = index
	}
	track, ok := p.list.current()
	p.mu.Unlock()

	if !ok {
		return shared.ErrNoPlayableTracks
	}
	if sameTrack {
		seconds := float64(track.ClipStartMs+positionMs) / 1000
		return p.send("seek", seconds, "absolute")
	}
	if err := p.load(track, positionMs); err != nil {
		return err
	}
	p.emit(Event{Kind: EventTransition, MediaID: track.MediaID})
	return nil
}

func (p *MPV) SeekToNext() error {
	return p.jump((*playlist).next)
}

func (p *MPV) SeekToPrevious() error {
	return p.jump((*playlist).previous)
}

func (p *MPV) SetShuffle(enabled bool) error {
	p.mu.Lock()
	p.list.setShuffle(enabled)
	p.mu.Unlock()
	return nil
}

func (p *MPV) SetRepeat(mode RepeatMode) error {
	p.mu.Lock()
	p.list.repeat = mode
	p.mu.Unlock()
	return nil
}

func (p *MPV) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.snap
	snap.Index = p.list.index
	if track, ok := p.list.current(); ok {
		snap.MediaID = track.MediaID
	}
	return snap
}

func (p *MPV) Queue() []queue.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]queue.Track, len(p.list.tracks))
	copy(out, p.list.tracks)
	return out
}

func (p *MPV) Events() <-chan Event {
	return p.events
}

func (p *MPV) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	_ = p.send("quit")
	close(p.done)
	_ = p.conn.Close()
	return p.cmd.Wait()
}

func (p *MPV) jump(pick func(*playlist) (int, bool)) error {
	p.mu.Lock()
	index, ok := pick(&p.list)
	if ok {
		p.list.index = index
	}
	track, found := p.list.current()
	p.mu.Unlock()

	if !ok || !found {
		return nil
	}
	if err := p.load(track, 0); err != nil {
		return err
	}
	p.emit(Event{Kind: EventTransition, MediaID: track.MediaID})
	return nil
}

// load replaces the playing file, honoring the track's clip window.
func (p *MPV) load(track queue.Track, positionMs int64) error {
	opts := ""
	start := track.ClipStartMs + positionMs
	if start > 0 {
		opts = fmt.Sprintf("start=%.3f", float64(start)/1000)
	}
	if track.ClipEndMs > 0 {
		if opts != "" {
			opts += ","
		}
		opts += fmt.Sprintf("end=%.3f", float64(track.ClipEndMs)/1000)
	}

	p.mu.Lock()
	p.clip = track
	p.snap.State = StateBuffering
	p.snap.PositionMs = positionMs
	p.mu.Unlock()
	p.emit(Event{Kind: EventStateChange, State: StateBuffering, MediaID: track.MediaID})

	if opts != "" {
		return p.send("loadfile", track.URI, "replace", opts)
	}
	return p.send("loadfile", track.URI, "replace")
}

func (p *MPV) send(command ...any) error {
	p.mu.Lock()
	p.reqID++
	req := ipcRequest{Command: command, RequestID: p.reqID}
	p.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = p.conn.Write(append(data, '\n'))
	return err
}

// readLoop owns the events channel and closes it on exit.
func (p *MPV) readLoop() {
	defer close(p.events)

	scanner := bufio.NewScanner(p.conn)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		p.handle(msg)
	}

	select {
	case <-p.done:
	default:
		p.emit(Event{Kind: EventError, Err: fmt.Errorf("%w: control socket closed", shared.ErrNoPlayer)})
	}
}

func (p *MPV) handle(msg ipcMessage) {
	switch msg.Event {
	case "property-change":
		p.handleProperty(msg)
	case "file-loaded":
		p.mu.Lock()
		p.snap.State = StateReady
		mediaID := p.clip.MediaID
		p.mu.Unlock()
		p.emit(Event{Kind: EventStateChange, State: StateReady, MediaID: mediaID})
	case "end-file":
		if msg.Reason == "eof" {
			p.advance()
		} else if msg.Reason == "error" {
			p.emit(Event{Kind: EventError, Err: fmt.Errorf("playback failed: %s", msg.Error)})
		}
	}
}

func (p *MPV) handleProperty(msg ipcMessage) {
	switch msg.Name {
	case "time-pos":
		var seconds float64
		if json.Unmarshal(msg.Data, &seconds) != nil {
			return
		}
		p.mu.Lock()
		pos := int64(seconds*1000) - p.clip.ClipStartMs
		if pos < 0 {
			pos = 0
		}
		p.snap.PositionMs = pos
		p.mu.Unlock()

	case "duration":
		var seconds float64
		if json.Unmarshal(msg.Data, &seconds) != nil {
			return
		}
		p.mu.Lock()
		if d := p.clip.DurationMs(); d > 0 {
			p.snap.DurationMs = d
		} else {
			p.snap.DurationMs = int64(seconds*1000) - p.clip.ClipStartMs
		}
		p.mu.Unlock()

	case "pause":
		var paused bool
		if json.Unmarshal(msg.Data, &paused) != nil {
			return
		}
		p.mu.Lock()
		changed := p.snap.Playing == paused
		p.snap.Playing = !paused
		mediaID := p.clip.MediaID
		p.mu.Unlock()
		if changed {
			p.emit(Event{Kind: EventPlayingChange, Playing: !paused, MediaID: mediaID})
		}

	case "audio-bitrate":
		var bps float64
		if json.Unmarshal(msg.Data, &bps) != nil {
			return
		}
		p.mu.Lock()
		p.snap.BitrateBps = int64(bps)
		p.mu.Unlock()
	}
}

// advance moves to the next queue item when a file finishes on its own.
func (p *MPV) advance() {
	p.mu.Lock()
	index, ok := p.list.next()
	if ok {
		p.list.index = index
	}
	track, found := p.list.current()
	if !ok {
		p.snap.State = StateEnded
		p.snap.Playing = false
	}
	p.mu.Unlock()

	if !ok || !found {
		p.emit(Event{Kind: EventStateChange, State: StateEnded})
		return
	}
	if err := p.load(track, 0); err != nil {
		p.emit(Event{Kind: EventError, Err: err})
		return
	}
	p.emit(Event{Kind: EventTransition, MediaID: track.MediaID})
	_ = p.Play()
}

func (p *MPV) emit(event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Debug("event dropped", "kind", event.Kind)
	}
}
