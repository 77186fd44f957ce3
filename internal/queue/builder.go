package queue

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/soundleaf/folderplay/internal/cue"
	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/soundleaf/folderplay/internal/source"
)

// coverStems are the file stems recognized as folder artwork, in priority
// order.
var coverStems = []string{"cover", "folder", "album", "front", "disk"}

var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "bmp": true,
}

// ShortFolderName is the longest folder name still treated as a disc
// subfolder when looking for artwork in the parent.
const ShortFolderName = 6

// Builder assembles play queues from directory listings.
type Builder struct {
	src    source.Source
	logger *log.Logger
}

// NewBuilder creates a Builder over one source.
func NewBuilder(src source.Source, logger *log.Logger) *Builder {
	return &Builder{src: src, logger: logger}
}

// FromFolder builds the queue for a folder listing, in listing order. Audio
// files referenced by a cue sheet in the same folder are replaced by that
// sheet's virtual tracks; everything else plays whole.
func (b *Builder) FromFolder(ctx context.Context, folderPath string, entries []source.Entry, parent []source.Entry) []Track {
	album := AlbumName(folderPath)
	artwork := b.coverURI(entries, source.BaseName(folderPath), parent)

	sheets := b.parseSheets(ctx, entries)
	consumed := map[string]bool{}
	for _, sheet := range sheets {
		if sheet.sheet.File != "" {
			consumed[strings.ToLower(sheet.sheet.File)] = true
		}
	}

	var tracks []Track
	for _, e := range entries {
		if e.IsDir || !IsAudio(e.Name) {
			continue
		}
		if consumed[strings.ToLower(e.Name)] {
			if sheet, ok := findSheet(sheets, e.Name); ok {
				tracks = append(tracks, b.virtualTracks(sheet, e, album, artwork)...)
			}
			continue
		}
		tracks = append(tracks, Track{
			MediaID:    b.src.ResolveURI(e.Path),
			URI:        b.src.ResolveURI(e.Path),
			Path:       e.Path,
			Title:      CleanTitle(shared.StemOf(e.Name)),
			Album:      album,
			ArtworkURI: artwork,
			MIME:       MIMEForExt(shared.ExtOf(e.Name)),
			Size:       e.Size,
		})
	}

	if len(tracks) == 0 {
		b.logger.Debug("no playable tracks", "path", folderPath)
	}
	return tracks
}

// FromCue builds the virtual tracks for one cue sheet, resolving the sheet's
// FILE against its siblings.
func (b *Builder) FromCue(ctx context.Context, cueEntry source.Entry, siblings []source.Entry) ([]Track, error) {
	text, ok := b.src.ReadText(ctx, cueEntry.Path)
	if !ok {
		return nil, shared.ErrCueUnresolved
	}

	sheet := cue.Parse(text)
	audio, ok := resolveCueFile(sheet, cueEntry, siblings)
	if !ok {
		return nil, shared.ErrCueUnresolved
	}

	folder := source.ParentPath(cueEntry.Path)
	album := AlbumName(folder)
	artwork := b.coverURI(siblings, source.BaseName(folder), nil)
	parsed := parsedSheet{sheet: sheet, cuePath: cueEntry.Path}
	return b.virtualTracks(parsed, audio, album, artwork), nil
}

// FindCover picks the artwork file for a folder listing, preferring cover
// stems in their priority order over any other image.
func FindCover(entries []source.Entry) (source.Entry, bool) {
	var images []source.Entry
	for _, e := range entries {
		if !e.IsDir && imageExts[shared.ExtOf(e.Name)] {
			images = append(images, e)
		}
	}
	if len(images) == 0 {
		return source.Entry{}, false
	}

	for _, stem := range coverStems {
		for _, img := range images {
			if strings.EqualFold(shared.StemOf(img.Name), stem) {
				return img, true
			}
		}
	}
	return images[0], true
}

type parsedSheet struct {
	sheet   cue.Sheet
	cuePath string
}

func (b *Builder) parseSheets(ctx context.Context, entries []source.Entry) []parsedSheet {
	var sheets []parsedSheet
	for _, e := range entries {
		if e.IsDir || !IsCueSheet(e.Name) {
			continue
		}
		text, ok := b.src.ReadText(ctx, e.Path)
		if !ok {
			b.logger.Warn("cue sheet unreadable", "path", e.Path)
			continue
		}
		sheet := cue.Parse(text)
		if len(sheet.Tracks) == 0 || sheet.File == "" {
			continue
		}
		sheets = append(sheets, parsedSheet{sheet: sheet, cuePath: e.Path})
	}
	return sheets
}

func (b *Builder) virtualTracks(parsed parsedSheet, audio source.Entry, album, artwork string) []Track {
	uri := b.src.ResolveURI(audio.Path)
	if album == "" {
		album = parsed.sheet.Title
	}

	tracks := make([]Track, 0, len(parsed.sheet.Tracks))
	for _, ct := range parsed.sheet.Tracks {
		title := ct.Title
		if title == "" {
			title = CleanTitle(shared.StemOf(audio.Name))
		}
		tracks = append(tracks, Track{
			MediaID:     VirtualMediaID(uri, ct.StartMs),
			URI:         uri,
			Path:        audio.Path,
			Title:       title,
			Artist:      ct.Performer,
			Album:       album,
			ArtworkURI:  artwork,
			MIME:        MIMEForExt(shared.ExtOf(audio.Name)),
			Size:        audio.Size,
			ClipStartMs: ct.StartMs,
			ClipEndMs:   ct.EndMs,
		})
	}
	return tracks
}

// AlbumName labels a folder for display. Bare disc folders like "CD1" take
// their parent's name as a prefix.
func AlbumName(folderPath string) string {
	name := source.BaseName(folderPath)
	if IsDiscFolder(name) {
		if parent := source.BaseName(source.ParentPath(folderPath)); parent != "" {
			return CleanFolderName(parent) + " - " + name
		}
	}
	return CleanFolderName(name)
}

// coverURI resolves the folder's artwork, falling back to the parent listing
// for disc subfolders with short names like "CD1" or "Disc 2".
func (b *Builder) coverURI(entries []source.Entry, folderName string, parent []source.Entry) string {
	if cover, ok := FindCover(entries); ok {
		return b.src.ResolveURI(cover.Path)
	}
	if len(parent) > 0 && len(folderName) <= ShortFolderName {
		if cover, ok := FindCover(parent); ok {
			return b.src.ResolveURI(cover.Path)
		}
	}
	return ""
}

func findSheet(sheets []parsedSheet, audioName string) (parsedSheet, bool) {
	for _, s := range sheets {
		if strings.EqualFold(s.sheet.File, audioName) {
			return s, true
		}
	}
	return parsedSheet{}, false
}

func resolveCueFile(sheet cue.Sheet, cueEntry source.Entry, siblings []source.Entry) (source.Entry, bool) {
	for _, e := range siblings {
		if !e.IsDir && strings.EqualFold(e.Name, sheet.File) {
			return e, true
		}
	}
	// Some rippers name the sheet after the audio file.
	stem := shared.StemOf(cueEntry.Name)
	for _, e := range siblings {
		if !e.IsDir && IsAudio(e.Name) && strings.EqualFold(shared.StemOf(e.Name), stem) {
			return e, true
		}
	}
	return source.Entry{}, false
}
