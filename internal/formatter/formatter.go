// package formatter provides functions to export queues and listings to various formats (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/soundleaf/folderplay/internal/browse"
	"github.com/soundleaf/folderplay/internal/queue"
	"github.com/soundleaf/folderplay/internal/shared"
)

// QueueToCSV converts a queue to CSV with columns: Index, Title, Artist, Album, Start, End, MIME, URI
func QueueToCSV(tracks []queue.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artist", "Album", "Start", "End", "MIME", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			track.Album,
			FormatDuration(track.ClipStartMs),
			FormatDuration(track.ClipEndMs),
			track.MIME,
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// QueueToText converts a queue to a numbered plain text listing
func QueueToText(folder string, tracks []queue.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Folder: %s\n", folder))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		line := fmt.Sprintf("%d. %s", i+1, track.Title)
		if track.Artist != "" {
			line = fmt.Sprintf("%d. %s - %s", i+1, track.Artist, track.Title)
		}
		if track.Clipped() {
			line += fmt.Sprintf(" [%s-%s]", FormatDuration(track.ClipStartMs), FormatDuration(track.ClipEndMs))
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes()
}

// QueueToJSON converts a queue to indented JSON
func QueueToJSON(tracks []queue.Track) ([]byte, error) {
	return json.MarshalIndent(tracks, "", "  ")
}

// ListingToText renders a directory listing with folders marked and sizes
// and entry counts in the margin
func ListingToText(listing browse.Listing) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s (%d entries)\n\n", listing.Path, len(listing.Entries)))
	for _, e := range listing.Entries {
		if e.IsDir {
			buf.WriteString(fmt.Sprintf("  %s/\n", e.Name))
			continue
		}
		buf.WriteString(fmt.Sprintf("  %-48s %s\n", e.Name, FormatSize(e.Size)))
	}

	return buf.Bytes()
}

// WriteQueueExport writes a queue to a file, picking the format from the
// file extension. Unrecognized extensions fall back to plain text.
//
// Defaults to queue.txt as the filename.
func WriteQueueExport(folder string, tracks []queue.Track, filepath string) (string, error) {
	if filepath == "" {
		filepath = "queue.txt"
	}

	var data []byte
	var err error
	switch shared.ExtOf(filepath) {
	case "csv":
		data, err = QueueToCSV(tracks)
	case "json":
		data, err = QueueToJSON(tracks)
	default:
		data = QueueToText(folder, tracks)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate export: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return filepath, nil
}

// FormatDuration renders milliseconds as m:ss
func FormatDuration(ms int64) string {
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatSize renders a byte count in a human unit
func FormatSize(size int64) string {
	switch {
	case size >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(size)/(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
