// package formatter reads and writes scraped playlist CSVs and renders playlists as plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/radiotx/internal/models"
)

// Column names of a scraped playlist CSV.
const (
	ColumnTime   = "time"
	ColumnArtist = "artist_name"
	ColumnSong   = "song_name"
)

// TimeLayout is how play times are written.
const TimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{TimeLayout, "2006-01-02T15:04:05", time.RFC3339, "2006-01-02 15:04"}

// Headers are written as the first CSV record.
var Headers = []string{ColumnTime, ColumnArtist, ColumnSong}

// EncodeRows writes rows as CSV with a header record. A nil time is written as an empty cell.
func EncodeRows(w io.Writer, rows []models.ScrapedRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		ts := ""
		if row.Time != nil {
			ts = row.Time.Format(TimeLayout)
		}
		if err := writer.Write([]string{ts, row.ArtistName, row.SongName}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// RowsToCSV is [EncodeRows] into memory.
func RowsToCSV(rows []models.ScrapedRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeRows(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRowsFile writes rows as CSV to path.
func WriteRowsFile(path string, rows []models.ScrapedRow) error {
	data, err := RowsToCSV(rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

// DecodeRows parses a scraped playlist CSV.
//
// Columns are looked up by header name; a missing column reads as an empty string, and an
// unparseable time as nil. Only a malformed CSV is an error.
func DecodeRows(data []byte) ([]models.ScrapedRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.ScrapedRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := []models.ScrapedRow{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		rows = append(rows, models.ScrapedRow{
			Time:       parseTime(field(record, ColumnTime)),
			ArtistName: field(record, ColumnArtist),
			SongName:   field(record, ColumnSong),
		})
	}

	return rows, nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// RowsToText renders rows one play per line.
func RowsToText(name string, rows []models.ScrapedRow) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", name))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(rows)))

	for i, row := range rows {
		ts := "--:--"
		if row.Time != nil {
			ts = row.Time.Format("15:04")
		}
		buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s\n", i+1, ts, row.ArtistName, row.SongName))
	}

	return buf.Bytes()
}

// PlaylistsToText renders remote playlists one per line.
func PlaylistsToText(playlists []models.Playlist) []byte {
	var buf bytes.Buffer

	for _, p := range playlists {
		visibility := "private"
		if p.Public {
			visibility = "public"
		}
		buf.WriteString(fmt.Sprintf("%s  %s (%d tracks, %s)\n", p.ID, p.Name, p.TrackCount, visibility))
	}

	return buf.Bytes()
}

// PlaylistName derives a playlist name from a blob key by dropping the last extension.
func PlaylistName(key string) string {
	if i := strings.LastIndex(key, "."); i > 0 {
		return key[:i]
	}
	return key
}
