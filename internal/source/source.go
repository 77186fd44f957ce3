// package source enumerates music locations behind one interface, regardless
// of whether the files live on the local filesystem or on a WebDAV share.
//
// Listing is fail-soft: transport and parse failures surface through the
// client's logger and resolve to an empty listing, never to an error crossing
// the package boundary.
package source

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/soundleaf/folderplay/internal/shared"
)

// Entry describes one filesystem-like entry in a listing.
//
// Path is the canonical identity of the entry within its source; it is not
// guaranteed unique across sources.
type Entry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	IsDir   bool   `json:"is_dir"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"` // epoch milliseconds
}

// Kind identifies the transport behind a configured source.
type Kind string

const (
	KindLocal  Kind = "local"
	KindWebDAV Kind = "webdav"
)

// Config describes one configured music location. Configs are created by the
// user, persisted as an ordered list, and read as a snapshot per operation.
type Config struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	URL      string `json:"url"`
	SubPath  string `json:"sub_path,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// NewConfig creates a Config with a generated ID.
func NewConfig(name string, kind Kind, rawURL, subPath, user, pass string) Config {
	if kind == KindWebDAV && !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	return Config{
		ID:       shared.GenerateID(),
		Name:     name,
		Kind:     kind,
		URL:      rawURL,
		SubPath:  subPath,
		Username: user,
		Password: pass,
	}
}

// Root returns the effective root path for browsing this source.
//
// WebDAV roots always end with a slash; most servers refuse to list a
// collection addressed without one. Spaces are percent-encoded if the
// configured URL carries them raw.
func (c Config) Root() string {
	if c.Kind == KindLocal {
		return c.URL
	}

	root := strings.TrimRight(c.URL, "/")
	if c.SubPath != "" {
		root = root + "/" + strings.TrimLeft(c.SubPath, "/")
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	if strings.Contains(root, " ") && !strings.Contains(root, "%20") {
		root = strings.ReplaceAll(root, " ", "%20")
	}
	return root
}

// Source is the capability contract shared by all transports.
type Source interface {
	// List enumerates the entries under path. Any failure yields an empty
	// listing; errors never propagate past this call.
	List(ctx context.Context, path string) []Entry

	// ResolveURI converts a source path into an opaque playable URI.
	ResolveURI(path string) string

	// ReadText fetches a text file's contents. The second return is false
	// when the file does not exist or cannot be read.
	ReadText(ctx context.Context, path string) (string, bool)
}

// New builds a Source for the given config.
func New(cfg Config, opts WebDAVOptions, logger *log.Logger) Source {
	if cfg.Kind == KindWebDAV {
		return NewWebDAV(cfg.URL, cfg.Username, cfg.Password, opts, logger)
	}
	return NewLocal(logger)
}

// SortField selects the attribute directory listings are ordered by.
type SortField string

const (
	SortByName SortField = "NAME"
	SortByDate SortField = "DATE"
	SortBySize SortField = "SIZE"
)

// ParseSortField maps a user-supplied string onto a SortField, defaulting to
// name order.
func ParseSortField(s string) SortField {
	switch strings.ToUpper(s) {
	case string(SortByDate):
		return SortByDate
	case string(SortBySize):
		return SortBySize
	default:
		return SortByName
	}
}

// SortEntries orders entries in place by the given field and direction.
// Name comparisons are case-folded.
func SortEntries(entries []Entry, field SortField, ascending bool) {
	less := func(a, b Entry) bool {
		switch field {
		case SortByDate:
			return a.ModTime < b.ModTime
		case SortBySize:
			return a.Size < b.Size
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if ascending {
			return less(entries[i], entries[j])
		}
		return less(entries[j], entries[i])
	})
}

// SortListing orders a browse listing: folders first, then files, each group
// sorted by the given field and direction.
func SortListing(entries []Entry, field SortField, ascending bool) []Entry {
	folders := make([]Entry, 0, len(entries))
	files := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			folders = append(folders, e)
		} else {
			files = append(files, e)
		}
	}

	SortEntries(folders, field, ascending)
	SortEntries(files, field, ascending)
	return append(folders, files...)
}

// ParentPath returns the parent of a slash-separated path, or "" at the root.
func ParentPath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return ""
	}
	return trimmed[:idx]
}

// BaseName returns the last path segment, percent-decoded when possible.
func BaseName(path string) string {
	trimmed := strings.TrimRight(path, "/")
	name := trimmed
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		name = trimmed[idx+1:]
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
