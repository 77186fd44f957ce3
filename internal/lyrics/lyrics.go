// package lyrics resolves synced lyrics for a playing track, from embedded
// tags, sidecar .lrc files, or a remote lookup service.
package lyrics

import (
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// Line is one timed lyric line.
type Line struct {
	TimeMs int64  `json:"time_ms"`
	Text   string `json:"text"`
}

var timestampRe = regexp.MustCompile(`\[(\d+):(\d{1,2})(?:[.:](\d{1,3}))?\]`)

// ParseLRC parses LRC text into lines sorted by time. A line prefixed with
// several timestamps repeats at each of them. Metadata tags like [ar:] and
// untimed lines are ignored.
func ParseLRC(text string) []Line {
	var lines []Line

	for _, raw := range strings.Split(text, "\n") {
		matches := timestampRe.FindAllStringSubmatchIndex(raw, -1)
		if len(matches) == 0 {
			continue
		}

		content := strings.TrimSpace(raw[matches[len(matches)-1][1]:])
		for _, m := range matches {
			ms, ok := stampToMs(raw[m[0]:m[1]])
			if !ok {
				continue
			}
			lines = append(lines, Line{TimeMs: ms, Text: content})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].TimeMs < lines[j].TimeMs })
	return lines
}

// LineAt returns the index of the line active at positionMs, or -1 before the
// first line.
func LineAt(lines []Line, positionMs int64) int {
	active := -1
	for i, l := range lines {
		if l.TimeMs > positionMs {
			break
		}
		active = i
	}
	return active
}

// Embedded extracts lyrics stored in the audio file's metadata tags.
func Embedded(r io.ReadSeeker) (string, bool) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(m.Lyrics())
	return text, text != ""
}

func stampToMs(stamp string) (int64, bool) {
	m := timestampRe.FindStringSubmatch(stamp)
	if m == nil {
		return 0, false
	}

	minutes, _ := strconv.ParseInt(m[1], 10, 64)
	seconds, _ := strconv.ParseInt(m[2], 10, 64)
	ms := (minutes*60 + seconds) * 1000

	if m[3] != "" {
		frac, _ := strconv.ParseInt(m[3], 10, 64)
		switch len(m[3]) {
		case 1:
			frac *= 100
		case 2:
			frac *= 10
		}
		ms += frac
	}
	return ms, true
}
