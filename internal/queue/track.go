// package queue turns a folder listing into an ordered play queue, expanding
// cue sheets into virtual tracks and attaching folder artwork.
package queue

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/soundleaf/folderplay/internal/shared"
)

// Track is one playable item in a queue. A clipped track plays a window of
// its file; ClipEndMs of 0 means "to the end".
type Track struct {
	MediaID     string `json:"media_id"`
	URI         string `json:"uri"`
	Path        string `json:"path"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ArtworkURI  string `json:"artwork_uri,omitempty"`
	MIME        string `json:"mime"`
	Size        int64  `json:"size"`
	ClipStartMs int64  `json:"clip_start_ms"`
	ClipEndMs   int64  `json:"clip_end_ms"`
}

// Clipped reports whether the track plays a window of its file rather than
// the whole thing.
func (t Track) Clipped() bool {
	return t.ClipStartMs > 0 || t.ClipEndMs > 0
}

// DurationMs returns the clip length, or 0 when it is open ended.
func (t Track) DurationMs() int64 {
	if t.ClipEndMs > 0 {
		return t.ClipEndMs - t.ClipStartMs
	}
	return 0
}

// VirtualMediaID builds the identity of a cue-derived track. The start offset
// keeps tracks of the same file distinct and stable across rebuilds.
func VirtualMediaID(uri string, startMs int64) string {
	return fmt.Sprintf("%s#track_%d", uri, startMs)
}

var audioMIME = map[string]string{
	"mp3":  "audio/mpeg",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"opus": "audio/opus",
	"m4a":  "audio/mp4",
	"m4b":  "audio/mp4",
	"aac":  "audio/aac",
	"wma":  "audio/x-ms-wma",
	"ape":  "audio/x-ape",
	"aif":  "audio/aiff",
	"aiff": "audio/aiff",
}

// MIMEForExt maps a file extension to its audio MIME type, falling back to
// the generic audio type.
func MIMEForExt(ext string) string {
	if mime, ok := audioMIME[strings.ToLower(ext)]; ok {
		return mime
	}
	return "audio/*"
}

// IsAudio reports whether a file name looks like a playable audio file.
func IsAudio(name string) bool {
	_, ok := audioMIME[shared.ExtOf(name)]
	return ok
}

// IsCueSheet reports whether a file name is a cue sheet.
func IsCueSheet(name string) bool {
	return shared.ExtOf(name) == "cue"
}

var leadingTrackNumber = regexp.MustCompile(`^\d{1,3}[\s.\-_]+`)

// CleanTitle strips a leading track number like "07 - " or "03." from a file
// stem, unless that would leave nothing.
func CleanTitle(stem string) string {
	cleaned := strings.TrimSpace(leadingTrackNumber.ReplaceAllString(stem, ""))
	if cleaned == "" {
		return stem
	}
	return cleaned
}

var bracketNoise = regexp.MustCompile(`\s*[\[{][^\]}]*[\]}]`)

var discFolder = regexp.MustCompile(`(?i)^(cd|disc|disk)[\s\-_]*\d+$`)

// CleanFolderName strips bracketed release noise like "[FLAC]" or "{2004}"
// from a folder name, unless that would leave nothing.
func CleanFolderName(name string) string {
	cleaned := bracketNoise.ReplaceAllString(name, " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.Trim(cleaned, " -")
	if cleaned == "" {
		return name
	}
	return cleaned
}

// IsDiscFolder reports whether a folder name is a bare disc label like "CD1"
// or "Disc 2".
func IsDiscFolder(name string) bool {
	return discFolder.MatchString(name)
}
