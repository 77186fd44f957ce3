// package engine reconciles what the player reports against what the user
// asked for: it tells engine-driven track changes apart from organic ones,
// persists progress, and layers folder advance, sleep timers, bitrate, and
// lyrics on top of a black-box player.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soundleaf/folderplay/internal/browse"
	"github.com/soundleaf/folderplay/internal/lyrics"
	"github.com/soundleaf/folderplay/internal/player"
	"github.com/soundleaf/folderplay/internal/prefs"
	"github.com/soundleaf/folderplay/internal/queue"
	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/soundleaf/folderplay/internal/source"
)

// Status is where the engine stands relative to the player.
type Status int

const (
	// StatusIdle means nothing is loaded.
	StatusIdle Status = iota
	// StatusIntentPending means the engine changed the queue and is waiting
	// for the player to confirm the transition.
	StatusIntentPending
	// StatusSynced means the player reflects the engine's last command.
	StatusSynced
	// StatusRestoring means a saved session is being rebuilt; placeholder
	// transitions are expected and ignored.
	StatusRestoring
)

func (s Status) String() string {
	switch s {
	case StatusIntentPending:
		return "intent-pending"
	case StatusSynced:
		return "synced"
	case StatusRestoring:
		return "restoring"
	default:
		return "idle"
	}
}

// Options tunes engine behavior.
type Options struct {
	// ProgressInterval is how often the progress loop samples the player.
	ProgressInterval time.Duration
	// DriftThresholdMs is how far the position may wander from the last
	// persisted value before it is written again.
	DriftThresholdMs int64
	// WebDAV carries transport limits for sources the engine opens.
	WebDAV source.WebDAVOptions
}

// DefaultOptions returns the stock engine tuning.
func DefaultOptions() Options {
	return Options{
		ProgressInterval: time.Second,
		DriftThresholdMs: 5000,
		WebDAV:           source.DefaultWebDAVOptions(),
	}
}

// NowPlaying is a snapshot of the full playback picture for display.
type NowPlaying struct {
	Track       queue.Track
	Status      Status
	Playing     bool
	PositionMs  int64
	DurationMs  int64
	BitrateKbps int
	Sleep       SleepStatus
	LyricLine   string
}

// Engine drives one player against the configured sources.
type Engine struct {
	player    player.Player
	sources   *prefs.Sources
	playback  *prefs.Playback
	lyricsAPI *lyrics.Client
	cache     *browse.Cache
	newSource func(source.Config) source.Source
	bitrate   *BitrateResolver
	opts      Options
	logger    *log.Logger

	mu           sync.Mutex
	status       Status
	intent       playIntent
	sleep        *sleepTimer
	active       source.Config
	src          source.Source
	folder       string
	sortField    source.SortField
	sortAsc      bool
	shuffle      bool
	repeat       player.RepeatMode
	lastSavedPos int64
	lyricMediaID string
	lyricLines   []lyrics.Line
}

// New creates an engine. lyricsAPI and probe may be nil.
func New(p player.Player, sources *prefs.Sources, playback *prefs.Playback, lyricsAPI *lyrics.Client, probe TagProbe, opts Options, logger *log.Logger) *Engine {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultOptions().ProgressInterval
	}
	if opts.DriftThresholdMs <= 0 {
		opts.DriftThresholdMs = DefaultOptions().DriftThresholdMs
	}

	e := &Engine{
		player:    p,
		sources:   sources,
		playback:  playback,
		lyricsAPI: lyricsAPI,
		cache:     browse.NewCache(0),
		bitrate:   NewBitrateResolver(probe),
		sleep:     newSleepTimer(nil),
		opts:      opts,
		logger:    logger,
	}
	e.newSource = func(cfg source.Config) source.Source {
		return source.New(cfg, opts.WebDAV, logger)
	}
	return e
}

// PlayFolder builds the queue for a folder and starts it at startIndex.
func (e *Engine) PlayFolder(ctx context.Context, sourceID, folderPath string, startIndex int, shuffle bool) error {
	cfg, err := e.sources.Get(ctx, sourceID)
	if err != nil {
		return err
	}
	src := e.newSource(cfg)

	field, asc, err := e.sortFor(ctx, sourceID, folderPath)
	if err != nil {
		return err
	}

	builder := queue.NewBuilder(src, e.logger)
	var tracks []queue.Track
	if queue.IsCueSheet(folderPath) {
		// Playing a cue sheet directly queues its virtual tracks, with the
		// containing folder taken as the playback folder.
		entry := source.Entry{Name: source.BaseName(folderPath), Path: folderPath}
		siblings := src.List(ctx, source.ParentPath(folderPath))
		tracks, err = builder.FromCue(ctx, entry, siblings)
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			return fmt.Errorf("%w: %s", shared.ErrNoPlayableTracks, folderPath)
		}
		folderPath = source.ParentPath(folderPath)
	} else {
		browser := browse.NewBrowser(cfg, src, e.cache, e.logger)
		listing := browser.Load(ctx, folderPath, field, asc)
		tracks = builder.FromFolder(ctx, folderPath, listing.Entries, e.parentListing(ctx, src, folderPath, field, asc))
		if len(tracks) == 0 {
			// Shuffling a listing of nothing but folders plays a random one.
			if sub, ok := randomSubfolder(listing.Entries); shuffle && ok {
				return e.PlayFolder(ctx, sourceID, sub.Path, 0, true)
			}
			return fmt.Errorf("%w: %s", shared.ErrNoPlayableTracks, folderPath)
		}
	}
	if startIndex < 0 || startIndex >= len(tracks) {
		startIndex = 0
	}

	before := e.player.Snapshot().MediaID

	e.mu.Lock()
	e.active = cfg
	e.src = src
	e.folder = folderPath
	e.sortField = field
	e.sortAsc = asc
	e.shuffle = shuffle
	e.status = StatusIntentPending
	if shuffle {
		e.intent.expect(AnyNewMedia, before)
	} else {
		e.intent.expect(tracks[startIndex].MediaID, before)
	}
	e.mu.Unlock()

	if err := e.player.SetShuffle(shuffle); err != nil {
		return err
	}
	if err := e.player.SetQueue(tracks, startIndex, 0); err != nil {
		return err
	}
	if err := e.player.Play(); err != nil {
		return err
	}

	if err := e.sources.SetLastBrowsed(ctx, sourceID, folderPath); err != nil {
		e.logger.Warn("saving last browsed failed", "error", err)
	}
	return e.persist(ctx)
}

// Restore rebuilds the last saved session, cued up and paused.
func (e *Engine) Restore(ctx context.Context) error {
	state, ok, err := e.playback.State(ctx)
	if err != nil {
		return err
	}
	if !ok || len(state.Queue) == 0 {
		return shared.ErrNotRestorable
	}

	cfg, err := e.sources.Get(ctx, state.SourceID)
	if err != nil {
		return fmt.Errorf("%w: its source is gone", shared.ErrNotRestorable)
	}

	index := 0
	for i, t := range state.Queue {
		if t.MediaID == state.MediaID {
			index = i
			break
		}
	}

	e.mu.Lock()
	e.active = cfg
	e.src = e.newSource(cfg)
	e.folder = state.FolderPath
	e.sortField = state.Sort.Field
	e.sortAsc = state.Sort.Ascending
	e.shuffle = state.Shuffle
	e.repeat = player.RepeatMode(state.Repeat)
	e.status = StatusRestoring
	e.intent.expect(state.MediaID, "")
	e.lastSavedPos = state.PositionMs
	e.mu.Unlock()

	if err := e.player.SetShuffle(state.Shuffle); err != nil {
		return err
	}
	if err := e.player.SetRepeat(player.RepeatMode(state.Repeat)); err != nil {
		return err
	}
	return e.player.SetQueue(state.Queue, index, state.PositionMs)
}

// Run consumes player events and drives the progress loop until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.opts.ProgressInterval)
	defer ticker.Stop()

	events := e.player.Events()
	for {
		select {
		case <-ctx.Done():
			e.persistQuiet(context.WithoutCancel(ctx))
			return
		case ev, open := <-events:
			if !open {
				return
			}
			e.handleEvent(ctx, ev)
		case <-ticker.C:
			e.progressTick(ctx)
		}
	}
}

// Next skips forward. The jump is engine-driven, so the resulting transition
// is expected rather than organic.
func (e *Engine) Next(ctx context.Context) error {
	before := e.player.Snapshot().MediaID
	e.mu.Lock()
	e.intent.expect(AnyNewMedia, before)
	e.status = StatusIntentPending
	e.mu.Unlock()
	return e.player.SeekToNext()
}

// Previous skips backward.
func (e *Engine) Previous(ctx context.Context) error {
	before := e.player.Snapshot().MediaID
	e.mu.Lock()
	e.intent.expect(AnyNewMedia, before)
	e.status = StatusIntentPending
	e.mu.Unlock()
	return e.player.SeekToPrevious()
}

// Pause pauses playback and persists position immediately.
func (e *Engine) Pause(ctx context.Context) error {
	if err := e.player.Pause(); err != nil {
		return err
	}
	return e.persist(ctx)
}

// Play resumes playback.
func (e *Engine) Play(ctx context.Context) error {
	return e.player.Play()
}

// SetShuffle toggles shuffle on the live queue and persists the choice.
func (e *Engine) SetShuffle(ctx context.Context, enabled bool) error {
	e.mu.Lock()
	e.shuffle = enabled
	e.mu.Unlock()

	if err := e.player.SetShuffle(enabled); err != nil {
		return err
	}
	return e.persist(ctx)
}

// SetRepeat changes the repeat mode and persists the choice.
func (e *Engine) SetRepeat(ctx context.Context, mode player.RepeatMode) error {
	e.mu.Lock()
	e.repeat = mode
	e.mu.Unlock()

	if err := e.player.SetRepeat(mode); err != nil {
		return err
	}
	return e.persist(ctx)
}

// SleepAfter arms the time-based sleep timer, disarming any song count.
func (e *Engine) SleepAfter(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sleep.startTime(d)
}

// SleepAfterSongs arms the song-count sleep timer, disarming any deadline.
func (e *Engine) SleepAfterSongs(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sleep.startSongs(n)
}

// CancelSleep disarms the sleep timer.
func (e *Engine) CancelSleep() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sleep.cancel()
}

// NowPlaying assembles the current playback picture.
func (e *Engine) NowPlaying(ctx context.Context) NowPlaying {
	snap := e.player.Snapshot()
	track, _ := e.currentTrack(snap)

	e.mu.Lock()
	np := NowPlaying{
		Track:      track,
		Status:     e.status,
		Playing:    snap.Playing,
		PositionMs: snap.PositionMs,
		DurationMs: snap.DurationMs,
		Sleep:      e.sleep.status(),
	}
	lines := e.lyricLines
	lyricFor := e.lyricMediaID
	e.mu.Unlock()

	np.BitrateKbps = e.bitrate.Resolve(ctx, track, snap.BitrateBps, snap.DurationMs)

	if lyricFor == track.MediaID {
		if i := lyrics.LineAt(lines, snap.PositionMs); i >= 0 {
			np.LyricLine = lines[i].Text
		}
	}
	return np
}

func (e *Engine) handleEvent(ctx context.Context, ev player.Event) {
	switch ev.Kind {
	case player.EventTransition:
		e.handleTransition(ctx, ev.MediaID)
	case player.EventStateChange:
		if ev.State == player.StateEnded {
			e.handleQueueEnded(ctx)
		}
	case player.EventPlayingChange:
		e.logger.Debug("playing change", "playing", ev.Playing)
	case player.EventError:
		e.logger.Error("player error", "error", ev.Err)
	}
}

// handleTransition is the heart of reconciliation. Expected transitions
// confirm a command the engine already issued; organic ones mean the player
// moved on its own and the engine's view must follow.
func (e *Engine) handleTransition(ctx context.Context, mediaID string) {
	snap := e.player.Snapshot()
	track, found := e.currentTrack(snap)

	e.mu.Lock()
	if e.status == StatusRestoring {
		// While restoring, the player surfaces placeholder items with no
		// metadata before the real one is ready. Only the restored track
		// itself, fully described, ends the restore.
		if mediaID != e.intent.mediaID || !found || track.Title == "" {
			e.mu.Unlock()
			return
		}
		e.intent.clear()
		e.status = StatusSynced
		e.mu.Unlock()
		e.logger.Debug("restore confirmed", "media", mediaID)
		e.resolveLyrics(ctx, track)
		return
	}

	armed := e.intent.armed
	expected := e.intent.consume(mediaID)
	if armed && !expected {
		// Churn left over from a command still in flight. Syncing to it
		// would adopt a track the user is already leaving.
		e.mu.Unlock()
		e.logger.Debug("transition suppressed", "media", mediaID)
		return
	}
	e.status = StatusSynced
	organic := !expected
	sleepExpired := false
	if organic {
		sleepExpired = e.sleep.trackDone()
	}
	e.mu.Unlock()

	e.logger.Debug("transition", "media", mediaID, "organic", organic)

	if sleepExpired {
		if err := e.player.Pause(); err != nil {
			e.logger.Error("sleep pause failed", "error", err)
		}
	}
	if organic {
		e.persistQuiet(ctx)
	}
	e.resolveLyrics(ctx, track)
}

// handleQueueEnded optionally rolls playback into the next sibling folder.
func (e *Engine) handleQueueEnded(ctx context.Context) {
	e.mu.Lock()
	sleepExpired := e.sleep.trackDone()
	src := e.src
	folder := e.folder
	sourceID := e.active.ID
	field, asc := e.sortField, e.sortAsc
	e.status = StatusIdle
	e.mu.Unlock()

	e.persistQuiet(ctx)
	if sleepExpired || src == nil {
		return
	}

	autoNext, err := e.playback.AutoNextFolder(ctx)
	if err != nil || !autoNext {
		return
	}

	next, ok := nextSibling(src.List(ctx, source.ParentPath(folder)), folder, field, asc)
	if !ok {
		e.logger.Info("no next folder", "after", folder)
		return
	}

	e.logger.Info("advancing to next folder", "folder", next.Path)
	if err := e.PlayFolder(ctx, sourceID, next.Path, 0, false); err != nil {
		e.logger.Error("next folder failed", "folder", next.Path, "error", err)
	}
}

func (e *Engine) progressTick(ctx context.Context) {
	e.mu.Lock()
	expired := e.sleep.tick()
	lastSaved := e.lastSavedPos
	e.mu.Unlock()

	if expired {
		if err := e.player.Pause(); err != nil {
			e.logger.Error("sleep pause failed", "error", err)
		}
		e.persistQuiet(ctx)
		return
	}

	snap := e.player.Snapshot()
	if !snap.Playing {
		return
	}

	drift := snap.PositionMs - lastSaved
	if drift < 0 {
		drift = -drift
	}
	if drift >= e.opts.DriftThresholdMs {
		e.persistQuiet(ctx)
	}
}

// persist writes the full resume record.
func (e *Engine) persist(ctx context.Context) error {
	snap := e.player.Snapshot()
	tracks := e.player.Queue()
	if len(tracks) == 0 {
		return nil
	}

	e.mu.Lock()
	state := prefs.PlaybackState{
		SourceID:   e.active.ID,
		FolderPath: e.folder,
		MediaID:    snap.MediaID,
		PositionMs: snap.PositionMs,
		Shuffle:    e.shuffle,
		Repeat:     int(e.repeat),
		Sort:       prefs.SortOverride{Field: e.sortField, Ascending: e.sortAsc},
		Queue:      tracks,
		SavedAtMs:  time.Now().UnixMilli(),
	}
	e.lastSavedPos = snap.PositionMs
	e.mu.Unlock()

	return e.playback.SaveState(ctx, state)
}

func (e *Engine) persistQuiet(ctx context.Context) {
	if err := e.persist(ctx); err != nil {
		e.logger.Error("persisting playback state failed", "error", err)
	}
}

// resolveLyrics walks the sidecar, embedded, then remote chain. The fetched
// result is dropped if the track changed while the lookup was in flight.
func (e *Engine) resolveLyrics(ctx context.Context, track queue.Track) {
	if track.MediaID == "" {
		return
	}

	e.mu.Lock()
	if e.lyricMediaID == track.MediaID {
		e.mu.Unlock()
		return
	}
	src := e.src
	e.mu.Unlock()

	text, ok := "", false
	if src != nil && !track.Clipped() {
		sidecar := strings.TrimSuffix(track.Path, "."+shared.ExtOf(track.Path)) + ".lrc"
		text, ok = src.ReadText(ctx, sidecar)
	}
	if !ok && !track.Clipped() && strings.HasPrefix(track.URI, "file://") {
		if f, err := os.Open(strings.TrimPrefix(track.URI, "file://")); err == nil {
			text, ok = lyrics.Embedded(f)
			f.Close()
		}
	}
	if !ok && e.lyricsAPI != nil {
		text, ok = e.lyricsAPI.Fetch(ctx, track.Title, track.Artist)
	}

	lines := []lyrics.Line{}
	if ok {
		lines = lyrics.ParseLRC(text)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if current := e.player.Snapshot().MediaID; current != track.MediaID {
		return
	}
	e.lyricMediaID = track.MediaID
	e.lyricLines = lines
}

func (e *Engine) currentTrack(snap player.Snapshot) (queue.Track, bool) {
	for _, t := range e.player.Queue() {
		if t.MediaID == snap.MediaID {
			return t, true
		}
	}
	return queue.Track{}, false
}

func (e *Engine) sortFor(ctx context.Context, sourceID, path string) (source.SortField, bool, error) {
	if override, ok, err := e.sources.SortOverrideFor(ctx, sourceID, path); err != nil {
		return source.SortByName, true, err
	} else if ok {
		return override.Field, override.Ascending, nil
	}

	def, err := e.playback.DefaultSort(ctx)
	if err != nil {
		return source.SortByName, true, err
	}
	return def.Field, def.Ascending, nil
}

// parentListing fetches the parent folder only when artwork fallback could
// use it.
func (e *Engine) parentListing(ctx context.Context, src source.Source, folderPath string, field source.SortField, asc bool) []source.Entry {
	if len(source.BaseName(folderPath)) > queue.ShortFolderName {
		return nil
	}
	parent := source.ParentPath(folderPath)
	if parent == "" {
		return nil
	}
	return src.List(ctx, parent)
}

// randomSubfolder picks a random folder out of a listing.
func randomSubfolder(entries []source.Entry) (source.Entry, bool) {
	var folders []source.Entry
	for _, e := range entries {
		if e.IsDir {
			folders = append(folders, e)
		}
	}
	if len(folders) == 0 {
		return source.Entry{}, false
	}
	return folders[rand.Intn(len(folders))], true
}

// nextSibling finds the folder after current in the parent listing, under
// the same sort the user browsed with.
func nextSibling(siblings []source.Entry, current string, field source.SortField, asc bool) (source.Entry, bool) {
	var folders []source.Entry
	for _, s := range siblings {
		if s.IsDir {
			folders = append(folders, s)
		}
	}
	source.SortEntries(folders, field, asc)

	currentName := strings.ToLower(source.BaseName(current))
	for i, f := range folders {
		if strings.ToLower(strings.TrimRight(f.Name, "/")) == currentName {
			if i+1 < len(folders) {
				return folders[i+1], true
			}
			return source.Entry{}, false
		}
	}
	return source.Entry{}, false
}
