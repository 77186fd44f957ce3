package browse

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/soundleaf/folderplay/internal/source"
)

// Listing is one visited directory, sorted and ready to render.
type Listing struct {
	Path         string         `json:"path"`
	Entries      []source.Entry `json:"entries"`
	ScrollIndex  int            `json:"scroll_index"`
	ScrollOffset int            `json:"scroll_offset"`
	FromCache    bool           `json:"from_cache"`
}

// Browser walks one configured source's tree, serving listings from the
// cache when it can.
type Browser struct {
	cfg    source.Config
	src    source.Source
	cache  *Cache
	logger *log.Logger
}

// NewBrowser creates a browser over one configured source.
func NewBrowser(cfg source.Config, src source.Source, cache *Cache, logger *log.Logger) *Browser {
	return &Browser{cfg: cfg, src: src, cache: cache, logger: logger}
}

// Root returns the source's effective root path.
func (b *Browser) Root() string {
	return b.cfg.Root()
}

// Load returns the listing for a directory in the requested order, fetching
// from the source only on a cache miss.
func (b *Browser) Load(ctx context.Context, path string, field source.SortField, ascending bool) Listing {
	if entries, ok := b.cache.Get(b.cfg.ID, path, field, ascending); ok {
		index, offset := b.cache.Scroll(b.cfg.ID, path)
		return Listing{
			Path:         path,
			Entries:      entries,
			ScrollIndex:  index,
			ScrollOffset: offset,
			FromCache:    true,
		}
	}
	return b.fetch(ctx, path, field, ascending)
}

// Refresh refetches a directory, replacing whatever the cache held.
func (b *Browser) Refresh(ctx context.Context, path string, field source.SortField, ascending bool) Listing {
	b.cache.Invalidate(b.cfg.ID, path)
	return b.fetch(ctx, path, field, ascending)
}

// NavigateUp loads the parent directory, restoring the scroll position the
// user left it at. At the root it reloads the root.
func (b *Browser) NavigateUp(ctx context.Context, path string, field source.SortField, ascending bool) Listing {
	parent := source.ParentPath(path)
	if parent == "" || len(parent) < len(b.Root())-1 {
		parent = b.Root()
	}
	return b.Load(ctx, parent, field, ascending)
}

// SaveScroll records where the user left a directory.
func (b *Browser) SaveScroll(path string, index, offset int) {
	b.cache.SaveScroll(b.cfg.ID, path, index, offset)
}

func (b *Browser) fetch(ctx context.Context, path string, field source.SortField, ascending bool) Listing {
	entries := source.SortListing(b.src.List(ctx, path), field, ascending)
	if len(entries) > 0 {
		b.cache.Put(b.cfg.ID, path, entries, field, ascending)
	}
	b.logger.Debug("fetched listing", "source", b.cfg.Name, "path", path, "entries", len(entries))

	return Listing{
		Path:    path,
		Entries: entries,
	}
}
