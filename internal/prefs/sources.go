package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/soundleaf/folderplay/internal/source"
)

const (
	nsSources = "sources"
	nsBrowse  = "browse"

	keySourceList = "list"
)

// Sources persists the ordered list of configured sources along with
// per-directory browse preferences.
type Sources struct {
	store Store
}

// NewSources creates the sources repository.
func NewSources(store Store) *Sources {
	return &Sources{store: store}
}

// List returns all configured sources in user order.
func (r *Sources) List(ctx context.Context) ([]source.Config, error) {
	raw, ok, err := r.store.Get(ctx, nsSources, keySourceList)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []source.Config{}, nil
	}

	var configs []source.Config
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		return nil, fmt.Errorf("%w: stored source list: %v", shared.ErrInvalidSource, err)
	}
	return configs, nil
}

// Get returns one source by ID.
func (r *Sources) Get(ctx context.Context, id string) (source.Config, error) {
	configs, err := r.List(ctx)
	if err != nil {
		return source.Config{}, err
	}
	for _, cfg := range configs {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return source.Config{}, fmt.Errorf("%w: %s", shared.ErrSourceNotFound, id)
}

// Add appends a source to the list.
func (r *Sources) Add(ctx context.Context, cfg source.Config) error {
	if cfg.Name == "" || cfg.URL == "" {
		return fmt.Errorf("%w: name and url are required", shared.ErrInvalidSource)
	}

	configs, err := r.List(ctx)
	if err != nil {
		return err
	}
	return r.save(ctx, append(configs, cfg))
}

// Update replaces the source with the same ID.
func (r *Sources) Update(ctx context.Context, cfg source.Config) error {
	configs, err := r.List(ctx)
	if err != nil {
		return err
	}
	for i, existing := range configs {
		if existing.ID == cfg.ID {
			configs[i] = cfg
			return r.save(ctx, configs)
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrSourceNotFound, cfg.ID)
}

// Remove deletes a source and its browse preferences.
func (r *Sources) Remove(ctx context.Context, id string) error {
	configs, err := r.List(ctx)
	if err != nil {
		return err
	}

	kept := configs[:0]
	for _, cfg := range configs {
		if cfg.ID != id {
			kept = append(kept, cfg)
		}
	}
	if len(kept) == len(configs) {
		return fmt.Errorf("%w: %s", shared.ErrSourceNotFound, id)
	}
	if err := r.save(ctx, kept); err != nil {
		return err
	}
	return r.store.Delete(ctx, nsBrowse, lastBrowsedKey(id))
}

// Duplicate copies a source under a new ID, appending it after the original.
func (r *Sources) Duplicate(ctx context.Context, id string) (source.Config, error) {
	configs, err := r.List(ctx)
	if err != nil {
		return source.Config{}, err
	}

	for i, cfg := range configs {
		if cfg.ID != id {
			continue
		}
		copied := cfg
		copied.ID = shared.GenerateID()
		copied.Name = cfg.Name + " (copy)"

		configs = append(configs[:i+1], append([]source.Config{copied}, configs[i+1:]...)...)
		return copied, r.save(ctx, configs)
	}
	return source.Config{}, fmt.Errorf("%w: %s", shared.ErrSourceNotFound, id)
}

// Move shifts a source to a new position in the list.
func (r *Sources) Move(ctx context.Context, id string, position int) error {
	configs, err := r.List(ctx)
	if err != nil {
		return err
	}

	from := -1
	for i, cfg := range configs {
		if cfg.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("%w: %s", shared.ErrSourceNotFound, id)
	}
	if position < 0 || position >= len(configs) {
		return fmt.Errorf("%w: position %d", shared.ErrInvalidInput, position)
	}

	moved := configs[from]
	configs = append(configs[:from], configs[from+1:]...)
	configs = append(configs[:position], append([]source.Config{moved}, configs[position:]...)...)
	return r.save(ctx, configs)
}

// SetLastBrowsed remembers the directory the user last visited in a source.
func (r *Sources) SetLastBrowsed(ctx context.Context, sourceID, path string) error {
	return r.store.Set(ctx, nsBrowse, lastBrowsedKey(sourceID), path)
}

// LastBrowsed returns the last visited directory, ok false when none.
func (r *Sources) LastBrowsed(ctx context.Context, sourceID string) (string, bool, error) {
	return r.store.Get(ctx, nsBrowse, lastBrowsedKey(sourceID))
}

// SortOverride is a per-directory sort choice that differs from the default.
type SortOverride struct {
	Field     source.SortField `json:"field"`
	Ascending bool             `json:"ascending"`
}

// SetSortOverride pins a sort order to one directory.
func (r *Sources) SetSortOverride(ctx context.Context, sourceID, path string, o SortOverride) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, nsBrowse, sortKey(sourceID, path), string(data))
}

// SortOverrideFor returns the pinned sort order for a directory, ok false
// when the directory follows the default.
func (r *Sources) SortOverrideFor(ctx context.Context, sourceID, path string) (SortOverride, bool, error) {
	raw, ok, err := r.store.Get(ctx, nsBrowse, sortKey(sourceID, path))
	if err != nil || !ok {
		return SortOverride{}, false, err
	}

	var o SortOverride
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return SortOverride{}, false, nil
	}
	return o, true, nil
}

func (r *Sources) save(ctx context.Context, configs []source.Config) error {
	data, err := json.Marshal(configs)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, nsSources, keySourceList, string(data))
}

func lastBrowsedKey(sourceID string) string {
	return "last:" + sourceID
}

func sortKey(sourceID, path string) string {
	return "sort:" + sourceID + ":" + path
}
