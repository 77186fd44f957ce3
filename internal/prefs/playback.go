package prefs

import (
	"context"
	"encoding/json"

	"github.com/soundleaf/folderplay/internal/queue"
	"github.com/soundleaf/folderplay/internal/source"
)

const (
	nsPlayback = "playback"
	nsSettings = "settings"

	keyPlaybackState = "state"
	keyAutoNext      = "auto_next_folder"
	keyDefaultSort   = "default_sort"
)

// PlaybackState is everything needed to resume where the user left off. The
// queue snapshot carries enough metadata to show a title before the folder
// has been re-listed.
type PlaybackState struct {
	SourceID   string        `json:"source_id"`
	FolderPath string        `json:"folder_path"`
	MediaID    string        `json:"media_id"`
	PositionMs int64         `json:"position_ms"`
	Shuffle    bool          `json:"shuffle"`
	Repeat     int           `json:"repeat"`
	Sort       SortOverride  `json:"sort"`
	Queue      []queue.Track `json:"queue"`
	SavedAtMs  int64         `json:"saved_at_ms"`
}

// Playback persists resume state and playback settings.
type Playback struct {
	store Store
}

// NewPlayback creates the playback repository.
func NewPlayback(store Store) *Playback {
	return &Playback{store: store}
}

// SaveState writes the resume record in one durable write.
func (r *Playback) SaveState(ctx context.Context, state PlaybackState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, nsPlayback, keyPlaybackState, string(data))
}

// State returns the saved resume record, ok false when nothing was saved.
func (r *Playback) State(ctx context.Context) (PlaybackState, bool, error) {
	raw, ok, err := r.store.Get(ctx, nsPlayback, keyPlaybackState)
	if err != nil || !ok {
		return PlaybackState{}, false, err
	}

	var state PlaybackState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return PlaybackState{}, false, nil
	}
	return state, true, nil
}

// ClearState drops the resume record.
func (r *Playback) ClearState(ctx context.Context) error {
	return r.store.Delete(ctx, nsPlayback, keyPlaybackState)
}

// SetAutoNextFolder toggles advancing into the next sibling folder when a
// queue finishes.
func (r *Playback) SetAutoNextFolder(ctx context.Context, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return r.store.Set(ctx, nsSettings, keyAutoNext, value)
}

// AutoNextFolder reports the sibling-folder toggle, defaulting to off.
func (r *Playback) AutoNextFolder(ctx context.Context) (bool, error) {
	raw, ok, err := r.store.Get(ctx, nsSettings, keyAutoNext)
	if err != nil || !ok {
		return false, err
	}
	return raw == "1", nil
}

// SetDefaultSort stores the sort order used where no directory override
// exists.
func (r *Playback) SetDefaultSort(ctx context.Context, o SortOverride) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, nsSettings, keyDefaultSort, string(data))
}

// DefaultSort returns the stored default, or name-ascending.
func (r *Playback) DefaultSort(ctx context.Context) (SortOverride, error) {
	fallback := SortOverride{Field: source.SortByName, Ascending: true}

	raw, ok, err := r.store.Get(ctx, nsSettings, keyDefaultSort)
	if err != nil || !ok {
		return fallback, err
	}

	var o SortOverride
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return fallback, nil
	}
	return o, nil
}

// Reset wipes all persisted playback and browse data. Source configs stay.
func (r *Playback) Reset(ctx context.Context) error {
	if err := r.store.DeleteNamespace(ctx, nsPlayback); err != nil {
		return err
	}
	if err := r.store.DeleteNamespace(ctx, nsSettings); err != nil {
		return err
	}
	return r.store.DeleteNamespace(ctx, nsBrowse)
}
