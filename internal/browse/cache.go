// package browse navigates a source's directory tree through a short-lived
// listing cache, so moving around a slow remote share stays responsive.
package browse

import (
	"sync"
	"time"

	"github.com/soundleaf/folderplay/internal/source"
)

// DefaultTTL is how long a cached listing stays usable.
const DefaultTTL = 20 * time.Minute

type cacheEntry struct {
	entries      []source.Entry
	field        source.SortField
	ascending    bool
	fetchedAt    time.Time
	scrollIndex  int
	scrollOffset int
}

// Cache remembers directory listings per (source, path) for a fixed TTL,
// along with the scroll position the user left each directory at.
//
// A lookup under a different sort order still hits: the cached entries are
// re-sorted rather than refetched. Scroll position lives inside the entry,
// so it is discarded only when the listing itself is evicted.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	listings map[string]*cacheEntry
}

// NewCache creates a cache with the given TTL. A zero ttl means DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:      ttl,
		now:      time.Now,
		listings: make(map[string]*cacheEntry),
	}
}

func key(sourceID, path string) string {
	return sourceID + "\x00" + path
}

// Get returns the cached listing for a directory, re-sorted when the
// requested order differs from the cached one. Expired listings are swept
// before the lookup.
func (c *Cache) Get(sourceID, path string, field source.SortField, ascending bool) ([]source.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()

	entry, ok := c.listings[key(sourceID, path)]
	if !ok {
		return nil, false
	}

	if entry.field != field || entry.ascending != ascending {
		entry.entries = source.SortListing(entry.entries, field, ascending)
		entry.field = field
		entry.ascending = ascending
	}

	out := make([]source.Entry, len(entry.entries))
	copy(out, entry.entries)
	return out, true
}

// Put stores a freshly fetched listing under the sort order it was built with.
func (c *Cache) Put(sourceID, path string, entries []source.Entry, field source.SortField, ascending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]source.Entry, len(entries))
	copy(stored, entries)

	c.listings[key(sourceID, path)] = &cacheEntry{
		entries:   stored,
		field:     field,
		ascending: ascending,
		fetchedAt: c.now(),
	}
}

// Invalidate drops the cached listing for one directory.
func (c *Cache) Invalidate(sourceID, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, key(sourceID, path))
}

// SaveScroll records where the user left a directory. Without a live listing
// there is nothing to attach the position to, so the call is a no-op.
func (c *Cache) SaveScroll(sourceID, path string, index, offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()

	if entry, ok := c.listings[key(sourceID, path)]; ok {
		entry.scrollIndex = index
		entry.scrollOffset = offset
	}
}

// Scroll returns the saved position for a directory, zeros when the listing
// holds none or has been evicted.
func (c *Cache) Scroll(sourceID, path string) (index, offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()

	if entry, ok := c.listings[key(sourceID, path)]; ok {
		return entry.scrollIndex, entry.scrollOffset
	}
	return 0, 0
}

func (c *Cache) sweep() {
	cutoff := c.now().Add(-c.ttl)
	for k, entry := range c.listings {
		if entry.fetchedAt.Before(cutoff) {
			delete(c.listings, k)
		}
	}
}
