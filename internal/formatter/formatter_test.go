package formatter

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soundleaf/folderplay/internal/browse"
	"github.com/soundleaf/folderplay/internal/queue"
	"github.com/soundleaf/folderplay/internal/source"
	helpers "github.com/soundleaf/folderplay/internal/testing"
)

func sampleTracks() []queue.Track {
	return []queue.Track{
		{Title: "One", Artist: "The Band", Album: "Live", MIME: "audio/flac", URI: "http://h/a.flac", ClipEndMs: 210000},
		{Title: "Two", Album: "Live", MIME: "audio/flac", URI: "http://h/a.flac", ClipStartMs: 210000},
	}
}

func TestQueueToCSV(t *testing.T) {
	data, err := QueueToCSV(sampleTracks())
	if err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(records))
	}
	if records[1][1] != "One" || records[1][5] != "3:30" {
		t.Errorf("row = %v", records[1])
	}
	if records[2][4] != "3:30" {
		t.Errorf("row = %v", records[2])
	}
}

func TestQueueToText(t *testing.T) {
	text := string(QueueToText("/music/Live", sampleTracks()))

	if !strings.Contains(text, "Folder: /music/Live") {
		t.Error("missing folder header")
	}
	if !strings.Contains(text, "1. The Band - One [0:00-3:30]") {
		t.Errorf("text = %s", text)
	}
	if !strings.Contains(text, "2. Two") {
		t.Errorf("text = %s", text)
	}
}

func TestQueueToJSON(t *testing.T) {
	data, err := QueueToJSON(sampleTracks())
	if err != nil {
		t.Fatal(err)
	}

	var decoded []queue.Track
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 || decoded[0].Title != "One" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestListingToText(t *testing.T) {
	listing := browse.Listing{
		Path: "/music",
		Entries: []source.Entry{
			{Name: "Albums", IsDir: true},
			{Name: "track.mp3", Size: 2048},
		},
	}

	text := string(ListingToText(listing))
	if !strings.Contains(text, "/music (2 entries)") {
		t.Errorf("text = %s", text)
	}
	if !strings.Contains(text, "Albums/") {
		t.Error("folders must be marked with a trailing slash")
	}
	if !strings.Contains(text, "2.0 KB") {
		t.Error("file sizes must be rendered")
	}
}

func TestWriteQueueExport(t *testing.T) {
	dir := t.TempDir()

	t.Run("CSVByExtension", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv")
		written, err := WriteQueueExport("/music", sampleTracks(), path)
		if err != nil {
			t.Fatal(err)
		}
		helpers.AssertFileExists(t, written)
		if !strings.HasPrefix(helpers.MustReadFile(t, written), "Index,Title") {
			t.Error("not CSV output")
		}
	})

	t.Run("DefaultIsText", func(t *testing.T) {
		helpers.MustChdir(t, dir)
		written, err := WriteQueueExport("/music", sampleTracks(), "")
		if err != nil {
			t.Fatal(err)
		}
		if written != "queue.txt" {
			t.Errorf("written = %q", written)
		}
		helpers.AssertFileExists(t, written)
	})
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:      "0:00",
		1000:   "0:01",
		90000:  "1:30",
		210000: "3:30",
	}
	for ms, want := range cases {
		if got := FormatDuration(ms); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KB",
		5 << 20: "5.0 MB",
		3 << 30: "3.0 GB",
	}
	for size, want := range cases {
		if got := FormatSize(size); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", size, got, want)
		}
	}
}
