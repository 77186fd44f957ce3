package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// localSource lists directories on the local filesystem.
type localSource struct {
	logger *log.Logger
}

// NewLocal creates a filesystem-backed source.
func NewLocal(logger *log.Logger) Source {
	return &localSource{logger: logger}
}

func (s *localSource) List(_ context.Context, path string) []Entry {
	dirents, err := os.ReadDir(path)
	if err != nil {
		s.logger.Warn("listing failed", "path", path, "error", err)
		return []Entry{}
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    d.Name(),
			Path:    filepath.Join(path, d.Name()),
			IsDir:   d.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime().UnixMilli(),
		})
	}
	return entries
}

func (s *localSource) ResolveURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

func (s *localSource) ReadText(_ context.Context, path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
