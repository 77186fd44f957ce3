package engine

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/soundleaf/folderplay/internal/player"
	"github.com/soundleaf/folderplay/internal/prefs"
	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/soundleaf/folderplay/internal/source"
	helpers "github.com/soundleaf/folderplay/internal/testing"
)

type stubSource struct {
	listings map[string][]source.Entry
	texts    map[string]string
}

func (s *stubSource) List(_ context.Context, path string) []source.Entry {
	return s.listings[path]
}

func (s *stubSource) ResolveURI(path string) string { return path }

func (s *stubSource) ReadText(_ context.Context, path string) (string, bool) {
	text, ok := s.texts[path]
	return text, ok
}

type fixture struct {
	engine   *Engine
	player   *helpers.FakePlayer
	playback *prefs.Playback
	sourceID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := prefs.NewSQLiteStore(db)
	if err != nil {
		t.Fatal(err)
	}

	sources := prefs.NewSources(store)
	playback := prefs.NewPlayback(store)

	cfg := source.NewConfig("nas", source.KindLocal, "/music", "", "", "")
	if err := sources.Add(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	stub := &stubSource{
		listings: map[string][]source.Entry{
			"/music": {
				{Name: "AlbumA", Path: "/music/AlbumA", IsDir: true},
				{Name: "AlbumB", Path: "/music/AlbumB", IsDir: true},
			},
			"/music/AlbumA": {
				{Name: "01 - One.mp3", Path: "/music/AlbumA/01 - One.mp3", Size: 100},
				{Name: "02 - Two.mp3", Path: "/music/AlbumA/02 - Two.mp3", Size: 100},
				{Name: "03 - Three.mp3", Path: "/music/AlbumA/03 - Three.mp3", Size: 100},
			},
			"/music/AlbumB": {
				{Name: "01 - Other.mp3", Path: "/music/AlbumB/01 - Other.mp3", Size: 100},
			},
			"/music/AlbumC": {
				{Name: "album.cue", Path: "/music/AlbumC/album.cue", Size: 10},
				{Name: "album.flac", Path: "/music/AlbumC/album.flac", Size: 100},
			},
		},
		texts: map[string]string{
			"/music/AlbumA/01 - One.lrc": "[00:01.00]first words",
			"/music/AlbumC/album.cue": `FILE "album.flac" WAVE
  TRACK 01 AUDIO
    TITLE "Intro"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Outro"
    INDEX 01 03:00:00`,
		},
	}

	fake := helpers.NewFakePlayer()
	e := New(fake, sources, playback, nil, nil, DefaultOptions(), log.New(os.Stderr))
	e.newSource = func(source.Config) source.Source { return stub }

	return &fixture{engine: e, player: fake, playback: playback, sourceID: cfg.ID}
}

func (f *fixture) playAlbumA(t *testing.T) {
	t.Helper()
	if err := f.engine.PlayFolder(context.Background(), f.sourceID, "/music/AlbumA", 0, false); err != nil {
		t.Fatal(err)
	}
}

func TestPlayFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadsQueueAndPlays", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)

		if !f.player.Called("SetQueue") || !f.player.Called("Play") {
			t.Error("player was not driven")
		}

		tracks := f.player.Queue()
		if len(tracks) != 3 || tracks[0].Title != "One" {
			t.Errorf("queue = %+v", tracks)
		}

		state, ok, err := f.playback.State(ctx)
		if err != nil || !ok {
			t.Fatalf("State = (ok=%v, err=%v)", ok, err)
		}
		if state.FolderPath != "/music/AlbumA" {
			t.Errorf("persisted folder = %q", state.FolderPath)
		}

		if f.engine.status != StatusIntentPending {
			t.Errorf("status = %v, want intent-pending", f.engine.status)
		}
	})

	t.Run("ExpectedTransitionSyncs", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)

		f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)
		if f.engine.status != StatusSynced {
			t.Errorf("status = %v, want synced", f.engine.status)
		}
		if f.engine.intent.armed {
			t.Error("intent must be consumed")
		}
	})

	t.Run("EmptyFolderErrors", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.PlayFolder(ctx, f.sourceID, "/music/Empty", 0, false)
		if !errors.Is(err, shared.ErrNoPlayableTracks) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("UnknownSourceErrors", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.PlayFolder(ctx, "ghost", "/music/AlbumA", 0, false)
		if !errors.Is(err, shared.ErrSourceNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("CueSheetPathQueuesVirtualTracks", func(t *testing.T) {
		f := newFixture(t)
		if err := f.engine.PlayFolder(ctx, f.sourceID, "/music/AlbumC/album.cue", 0, false); err != nil {
			t.Fatal(err)
		}

		tracks := f.player.Queue()
		if len(tracks) != 2 || tracks[0].Title != "Intro" || tracks[1].Title != "Outro" {
			t.Fatalf("queue = %+v", tracks)
		}
		if tracks[1].ClipStartMs != 180000 {
			t.Errorf("second track starts at %d, want 180000", tracks[1].ClipStartMs)
		}
		if f.engine.folder != "/music/AlbumC" {
			t.Errorf("folder = %q, want the sheet's directory", f.engine.folder)
		}
	})

	t.Run("ShuffleOfFoldersOnlyDescends", func(t *testing.T) {
		f := newFixture(t)
		if err := f.engine.PlayFolder(ctx, f.sourceID, "/music", 0, true); err != nil {
			t.Fatal(err)
		}

		if tracks := f.player.Queue(); len(tracks) == 0 {
			t.Fatal("no queue built from a subfolder")
		}
		if f.engine.folder == "/music" {
			t.Errorf("folder = %q, want a subfolder", f.engine.folder)
		}
	})

	t.Run("ShuffleArmsWildcard", func(t *testing.T) {
		f := newFixture(t)
		if err := f.engine.PlayFolder(ctx, f.sourceID, "/music/AlbumA", 0, true); err != nil {
			t.Fatal(err)
		}
		if !f.player.Shuffled() {
			t.Error("shuffle not forwarded to player")
		}
		if f.engine.intent.mediaID != AnyNewMedia {
			t.Errorf("intent = %q, want wildcard", f.engine.intent.mediaID)
		}

		// Whatever track shuffle lands on counts as expected.
		ev := f.player.JumpTo(2)
		f.engine.handleTransition(ctx, ev.MediaID)
		if f.engine.status != StatusSynced {
			t.Errorf("status = %v", f.engine.status)
		}
	})
}

func TestOrganicTransitionPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.playAlbumA(t)
	f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)

	ev := f.player.JumpTo(1)
	f.engine.handleTransition(ctx, ev.MediaID)

	state, ok, err := f.playback.State(ctx)
	if err != nil || !ok {
		t.Fatalf("State = (ok=%v, err=%v)", ok, err)
	}
	if state.MediaID != "/music/AlbumA/02 - Two.mp3" {
		t.Errorf("persisted media = %q", state.MediaID)
	}
}

func TestTransitionSuppression(t *testing.T) {
	ctx := context.Background()

	t.Run("StaleEventAfterSkip", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)
		first := f.player.Snapshot().MediaID
		f.engine.handleTransition(ctx, first)

		if err := f.engine.Next(ctx); err != nil {
			t.Fatal(err)
		}

		// The player often re-announces the outgoing track before a skip
		// lands. That event must not satisfy the wildcard.
		f.engine.handleTransition(ctx, first)
		if f.engine.status != StatusIntentPending {
			t.Fatalf("status = %v, stale event consumed the skip", f.engine.status)
		}
		if !f.engine.intent.armed {
			t.Fatal("intent disarmed by a stale event")
		}

		f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)
		if f.engine.status != StatusSynced {
			t.Errorf("status = %v, want synced", f.engine.status)
		}
	})

	t.Run("MismatchLeavesNoSideEffects", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)
		f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)
		f.engine.SleepAfterSongs(1)

		// A new folder arms an exact intent for its first track.
		if err := f.engine.PlayFolder(ctx, f.sourceID, "/music/AlbumB", 0, false); err != nil {
			t.Fatal(err)
		}

		f.engine.handleTransition(ctx, "/music/AlbumA/02 - Two.mp3")
		if f.engine.status != StatusIntentPending {
			t.Fatalf("status = %v, want still intent-pending", f.engine.status)
		}
		if !f.player.Playing() {
			t.Error("suppressed event burned the sleep song count")
		}

		f.engine.handleTransition(ctx, "/music/AlbumB/01 - Other.mp3")
		if f.engine.status != StatusSynced {
			t.Errorf("status = %v, want synced", f.engine.status)
		}
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("NothingSaved", func(t *testing.T) {
		f := newFixture(t)
		if err := f.engine.Restore(ctx); !errors.Is(err, shared.ErrNotRestorable) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("RebuildsPausedAtSavedPosition", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)
		f.player.Advance(42000)
		if err := f.engine.persist(ctx); err != nil {
			t.Fatal(err)
		}

		f2 := newFixture(t)
		state, _, _ := f.playback.State(ctx)
		// The saved record names a source from the first fixture.
		state.SourceID = f2.sourceID
		if err := f2.playback.SaveState(ctx, state); err != nil {
			t.Fatal(err)
		}

		if err := f2.engine.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if f2.engine.status != StatusRestoring {
			t.Errorf("status = %v, want restoring", f2.engine.status)
		}
		if f2.player.Called("Play") {
			t.Error("restore must cue up paused")
		}
		if snap := f2.player.Snapshot(); snap.PositionMs != 42000 {
			t.Errorf("position = %d, want 42000", snap.PositionMs)
		}
	})

	t.Run("RestoresShuffleAndRepeat", func(t *testing.T) {
		f := newFixture(t)
		if err := f.engine.PlayFolder(ctx, f.sourceID, "/music/AlbumA", 0, true); err != nil {
			t.Fatal(err)
		}
		if err := f.engine.SetRepeat(ctx, player.RepeatAll); err != nil {
			t.Fatal(err)
		}

		f2 := newFixture(t)
		state, _, _ := f.playback.State(ctx)
		state.SourceID = f2.sourceID
		f2.playback.SaveState(ctx, state)

		if err := f2.engine.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if !f2.player.Shuffled() {
			t.Error("shuffle not restored")
		}
		if f2.engine.repeat != player.RepeatAll {
			t.Errorf("repeat = %v, want all", f2.engine.repeat)
		}
	})

	t.Run("PlaceholderTransitionsSwallowed", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)
		tracks := f.player.Queue()
		tracks[0].Title = ""

		f.playback.SaveState(ctx, prefs.PlaybackState{
			SourceID:   f.sourceID,
			FolderPath: "/music/AlbumA",
			MediaID:    tracks[0].MediaID,
			Queue:      tracks,
		})

		f2 := newFixture(t)
		state, _, _ := f.playback.State(ctx)
		state.SourceID = f2.sourceID
		f2.playback.SaveState(ctx, state)
		if err := f2.engine.Restore(ctx); err != nil {
			t.Fatal(err)
		}

		// The first item carries no metadata yet; its transition must not
		// end the restore.
		f2.engine.handleTransition(ctx, tracks[0].MediaID)
		if f2.engine.status != StatusRestoring {
			t.Errorf("status = %v, want still restoring", f2.engine.status)
		}

		// Neither does a transition onto some other track.
		ev := f2.player.JumpTo(1)
		f2.engine.handleTransition(ctx, ev.MediaID)
		if f2.engine.status != StatusRestoring {
			t.Errorf("status = %v, want still restoring", f2.engine.status)
		}
	})

	t.Run("RestoreEndsOnRestoredTrack", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)
		if err := f.engine.persist(ctx); err != nil {
			t.Fatal(err)
		}

		f2 := newFixture(t)
		state, _, _ := f.playback.State(ctx)
		state.SourceID = f2.sourceID
		f2.playback.SaveState(ctx, state)
		if err := f2.engine.Restore(ctx); err != nil {
			t.Fatal(err)
		}

		ev := f2.player.JumpTo(0)
		f2.engine.handleTransition(ctx, ev.MediaID)
		if f2.engine.status != StatusSynced {
			t.Errorf("status = %v, want synced", f2.engine.status)
		}
		if f2.engine.intent.armed {
			t.Error("intent must be consumed by the restored track")
		}
	})
}

func TestSleep(t *testing.T) {
	ctx := context.Background()

	t.Run("SongsCountdownPauses", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)
		f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)
		f.engine.SleepAfterSongs(2)

		ev := f.player.JumpTo(1)
		f.engine.handleTransition(ctx, ev.MediaID)
		if !f.player.Playing() {
			t.Fatal("paused one song early")
		}

		ev = f.player.JumpTo(2)
		f.engine.handleTransition(ctx, ev.MediaID)
		if f.player.Playing() {
			t.Error("second organic transition must pause")
		}
	})

	t.Run("ExpectedTransitionsDoNotCount", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)
		f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)
		f.engine.SleepAfterSongs(1)

		if err := f.engine.Next(ctx); err != nil {
			t.Fatal(err)
		}
		ev := f.player.JumpTo(1)
		f.engine.handleTransition(ctx, ev.MediaID)
		if !f.player.Playing() {
			t.Error("an engine-driven skip must not burn the song count")
		}
	})

	t.Run("TimeCountdownPausesOnTick", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)

		current := time.Unix(1000, 0)
		f.engine.sleep.now = func() time.Time { return current }
		f.engine.SleepAfter(10 * time.Minute)

		f.engine.progressTick(ctx)
		if !f.player.Playing() {
			t.Fatal("paused before the deadline")
		}

		current = current.Add(11 * time.Minute)
		f.engine.progressTick(ctx)
		if f.player.Playing() {
			t.Error("deadline passed but playback continues")
		}
	})
}

func TestDriftPersistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.playAlbumA(t)
	f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)

	f.player.Advance(6000)
	f.engine.progressTick(ctx)

	state, _, _ := f.playback.State(ctx)
	if state.PositionMs != 6000 {
		t.Fatalf("persisted position = %d, want 6000", state.PositionMs)
	}

	// Small drift stays in memory.
	f.player.Advance(2000)
	f.engine.progressTick(ctx)
	state, _, _ = f.playback.State(ctx)
	if state.PositionMs != 6000 {
		t.Errorf("persisted position = %d, want unchanged 6000", state.PositionMs)
	}
}

func TestAutoNextFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("AdvancesIntoSibling", func(t *testing.T) {
		f := newFixture(t)
		f.playback.SetAutoNextFolder(ctx, true)
		f.playAlbumA(t)

		f.engine.handleQueueEnded(ctx)

		tracks := f.player.Queue()
		if len(tracks) != 1 || tracks[0].MediaID != "/music/AlbumB/01 - Other.mp3" {
			t.Errorf("queue = %+v", tracks)
		}
	})

	t.Run("DisabledStaysPut", func(t *testing.T) {
		f := newFixture(t)
		f.playAlbumA(t)

		f.engine.handleQueueEnded(ctx)

		tracks := f.player.Queue()
		if tracks[0].MediaID != "/music/AlbumA/01 - One.mp3" {
			t.Errorf("queue = %+v", tracks)
		}
	})

	t.Run("LastFolderStops", func(t *testing.T) {
		f := newFixture(t)
		f.playback.SetAutoNextFolder(ctx, true)
		if err := f.engine.PlayFolder(ctx, f.sourceID, "/music/AlbumB", 0, false); err != nil {
			t.Fatal(err)
		}

		f.engine.handleQueueEnded(ctx)
		tracks := f.player.Queue()
		if tracks[0].MediaID != "/music/AlbumB/01 - Other.mp3" {
			t.Errorf("queue = %+v", tracks)
		}
	})
}

func TestNextSibling(t *testing.T) {
	siblings := []source.Entry{
		{Name: "AlbumC", Path: "/m/AlbumC", IsDir: true},
		{Name: "AlbumA", Path: "/m/AlbumA", IsDir: true},
		{Name: "notes.txt", Path: "/m/notes.txt"},
		{Name: "AlbumB", Path: "/m/AlbumB", IsDir: true},
	}

	t.Run("FollowsSortOrder", func(t *testing.T) {
		next, ok := nextSibling(siblings, "/m/AlbumA", source.SortByName, true)
		if !ok || next.Name != "AlbumB" {
			t.Errorf("nextSibling = (%+v, %v)", next, ok)
		}
	})

	t.Run("DescendingReverses", func(t *testing.T) {
		next, ok := nextSibling(siblings, "/m/AlbumB", source.SortByName, false)
		if !ok || next.Name != "AlbumA" {
			t.Errorf("nextSibling = (%+v, %v)", next, ok)
		}
	})

	t.Run("LastHasNoNext", func(t *testing.T) {
		if _, ok := nextSibling(siblings, "/m/AlbumC", source.SortByName, true); ok {
			t.Error("expected no sibling after the last folder")
		}
	})

	t.Run("UnknownCurrent", func(t *testing.T) {
		if _, ok := nextSibling(siblings, "/m/Ghost", source.SortByName, true); ok {
			t.Error("expected no sibling for unknown folder")
		}
	})
}

func TestLyricsSidecar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.playAlbumA(t)
	f.engine.handleTransition(ctx, f.player.Snapshot().MediaID)

	f.player.Advance(2000)
	np := f.engine.NowPlaying(ctx)
	if np.LyricLine != "first words" {
		t.Errorf("LyricLine = %q", np.LyricLine)
	}
}

// fileURISource resolves paths to file:// URIs so embedded tag lookups see a
// real file on disk.
type fileURISource struct{ stubSource }

func (s *fileURISource) ResolveURI(path string) string { return "file://" + path }

// id3WithLyrics builds a minimal ID3v2.3 tag whose USLT frame carries text.
func id3WithLyrics(text string) []byte {
	body := append([]byte{0x00}, []byte("eng")...)
	body = append(body, 0x00)
	body = append(body, []byte(text)...)

	frame := []byte("USLT")
	frame = append(frame,
		byte(len(body)>>24), byte(len(body)>>16), byte(len(body)>>8), byte(len(body)),
		0x00, 0x00)
	frame = append(frame, body...)

	n := len(frame)
	tag := []byte{'I', 'D', '3', 0x03, 0x00, 0x00,
		byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
	return append(tag, frame...)
}

func TestLyricsPrecedence(t *testing.T) {
	ctx := context.Background()

	start := func(t *testing.T, withSidecar bool) *Engine {
		t.Helper()

		dir := t.TempDir()
		audio := filepath.Join(dir, "01 - One.mp3")
		if err := os.WriteFile(audio, id3WithLyrics("[00:01.00]from the tag"), 0o644); err != nil {
			t.Fatal(err)
		}

		stub := &fileURISource{stubSource{
			listings: map[string][]source.Entry{
				dir: {{Name: "01 - One.mp3", Path: audio, Size: 100}},
			},
			texts: map[string]string{},
		}}
		if withSidecar {
			stub.texts[filepath.Join(dir, "01 - One.lrc")] = "[00:01.00]from the sidecar"
		}

		db, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { db.Close() })
		store, err := prefs.NewSQLiteStore(db)
		if err != nil {
			t.Fatal(err)
		}
		sources := prefs.NewSources(store)

		cfg := source.NewConfig("disk", source.KindLocal, dir, "", "", "")
		if err := sources.Add(ctx, cfg); err != nil {
			t.Fatal(err)
		}

		fake := helpers.NewFakePlayer()
		e := New(fake, sources, prefs.NewPlayback(store), nil, nil, DefaultOptions(), log.New(os.Stderr))
		e.newSource = func(source.Config) source.Source { return stub }

		if err := e.PlayFolder(ctx, cfg.ID, dir, 0, false); err != nil {
			t.Fatal(err)
		}
		e.handleTransition(ctx, fake.Snapshot().MediaID)
		fake.Advance(2000)
		return e
	}

	t.Run("SidecarBeatsEmbedded", func(t *testing.T) {
		e := start(t, true)
		if np := e.NowPlaying(ctx); np.LyricLine != "from the sidecar" {
			t.Errorf("LyricLine = %q, want the sidecar text", np.LyricLine)
		}
	})

	t.Run("EmbeddedUsedWithoutSidecar", func(t *testing.T) {
		e := start(t, false)
		if np := e.NowPlaying(ctx); np.LyricLine != "from the tag" {
			t.Errorf("LyricLine = %q, want the embedded text", np.LyricLine)
		}
	})
}
