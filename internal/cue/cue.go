// package cue parses cue sheets into per-track timing so a single audio file
// can be played as individual songs.
package cue

import (
	"strconv"
	"strings"
)

// Track is one TRACK block from a cue sheet.
//
// EndMs is derived, not read: each track ends where the next one starts, and
// the final track's EndMs of 0 means "to the end of the file".
type Track struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Performer string `json:"performer"`
	StartMs   int64  `json:"start_ms"`
	EndMs     int64  `json:"end_ms"`
}

// Sheet is a parsed cue sheet.
type Sheet struct {
	Title     string  `json:"title"`
	Performer string  `json:"performer"`
	File      string  `json:"file"`
	Tracks    []Track `json:"tracks"`
}

// Parse reads cue sheet text. Unknown commands are skipped, and a TRACK is
// only kept once its INDEX 01 has been seen. Sheet-level TITLE and PERFORMER
// apply to tracks that do not declare their own.
func Parse(text string) Sheet {
	var sheet Sheet
	var current *Track
	indexed := false

	flush := func() {
		if current != nil && indexed {
			sheet.Tracks = append(sheet.Tracks, *current)
		}
		current = nil
		indexed = false
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		cmd, rest := splitCommand(line)

		switch cmd {
		case "TRACK":
			flush()
			fields := strings.Fields(rest)
			if len(fields) < 2 || !strings.EqualFold(fields[1], "AUDIO") {
				continue
			}
			number, err := strconv.Atoi(fields[0])
			if err != nil {
				continue
			}
			current = &Track{Number: number}

		case "INDEX":
			fields := strings.Fields(rest)
			if current == nil || len(fields) < 2 || fields[0] != "01" {
				continue
			}
			ms, ok := ParseTime(fields[1])
			if !ok {
				continue
			}
			current.StartMs = ms
			indexed = true

		case "TITLE":
			if current != nil {
				current.Title = unquote(rest)
			} else {
				sheet.Title = unquote(rest)
			}

		case "PERFORMER":
			if current != nil {
				current.Performer = unquote(rest)
			} else {
				sheet.Performer = unquote(rest)
			}

		case "FILE":
			if sheet.File == "" {
				sheet.File = unquote(strings.TrimSuffix(strings.TrimSpace(rest), " WAVE"))
			}
		}
	}
	flush()

	for i := range sheet.Tracks {
		t := &sheet.Tracks[i]
		if t.Title == "" {
			t.Title = sheet.Title
		}
		if t.Performer == "" {
			t.Performer = sheet.Performer
		}
		if i+1 < len(sheet.Tracks) {
			t.EndMs = sheet.Tracks[i+1].StartMs
		}
	}
	return sheet
}

// ParseTime converts a cue mm:ss:ff timestamp to milliseconds. Cue audio runs
// at 75 frames per second; the frame component is rounded to the nearest
// millisecond and may legally overflow a second.
func ParseTime(s string) (int64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, false
	}

	minutes, err1 := strconv.ParseInt(parts[0], 10, 64)
	seconds, err2 := strconv.ParseInt(parts[1], 10, 64)
	frames, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	if minutes < 0 || seconds < 0 || frames < 0 {
		return 0, false
	}

	return (minutes*60+seconds)*1000 + (frames*1000+37)/75, true
}

func splitCommand(line string) (string, string) {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return strings.ToUpper(line), ""
	}
	return strings.ToUpper(line[:idx]), strings.TrimSpace(line[idx+1:])
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	// FILE lines carry a type suffix after the closing quote.
	if strings.HasPrefix(s, `"`) {
		if end := strings.LastIndexByte(s[1:], '"'); end >= 0 {
			return s[1 : end+1]
		}
	}
	return strings.Trim(s, `"`)
}
