package formatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/radiotx/internal/models"
)

func TestRowsCSV(t *testing.T) {
	played := time.Date(2024, 3, 1, 15, 4, 0, 0, time.Local)

	t.Run("EncodeRows", func(t *testing.T) {
		data, err := RowsToCSV([]models.ScrapedRow{
			{Time: &played, ArtistName: "Khruangbin", SongName: "Maria También"},
			{ArtistName: "Big Thief", SongName: "Not, Again"},
		})
		if err != nil {
			t.Fatalf("RowsToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "time,artist_name,song_name\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "2024-03-01 15:04:00,Khruangbin,Maria También") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if !strings.Contains(output, `,Big Thief,"Not, Again"`) {
			t.Errorf("CSV should quote commas and leave nil time empty, got: %s", output)
		}
	})

	t.Run("DecodeRows", func(t *testing.T) {
		data := "time,artist_name,song_name\n2024-03-01 15:04:00,Khruangbin,Maria También\n,Big Thief,\"Not, Again\"\n"

		rows, err := DecodeRows([]byte(data))
		if err != nil {
			t.Fatalf("DecodeRows failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[0].Time == nil || !rows[0].Time.Equal(played) {
			t.Errorf("expected parsed time %v, got %v", played, rows[0].Time)
		}
		if rows[1].Time != nil {
			t.Errorf("expected nil time for empty cell, got %v", rows[1].Time)
		}
		if rows[1].SongName != "Not, Again" {
			t.Errorf("unexpected song %q", rows[1].SongName)
		}
	})

	t.Run("Missing Columns Read Empty", func(t *testing.T) {
		rows, err := DecodeRows([]byte("song_name,extra\nHeroes,x\n"))
		if err != nil {
			t.Fatalf("DecodeRows failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if rows[0].ArtistName != "" || rows[0].SongName != "Heroes" {
			t.Errorf("unexpected row %+v", rows[0])
		}
	})

	t.Run("Short Records And Column Order", func(t *testing.T) {
		rows, err := DecodeRows([]byte("artist_name,time,song_name\nSade\n"))
		if err != nil {
			t.Fatalf("DecodeRows failed: %v", err)
		}
		if rows[0].ArtistName != "Sade" || rows[0].SongName != "" {
			t.Errorf("unexpected row %+v", rows[0])
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		rows, err := DecodeRows(nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("expected no rows, got %d", len(rows))
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		if _, err := DecodeRows([]byte("time,artist_name\n\"unterminated,x\n")); err == nil {
			t.Error("expected error for malformed CSV")
		}
	})

	t.Run("WriteRowsFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kexp_2024-03-01.csv")
		if err := WriteRowsFile(path, []models.ScrapedRow{{ArtistName: "A", SongName: "S"}}); err != nil {
			t.Fatalf("WriteRowsFile failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read written file: %v", err)
		}
		rows, err := DecodeRows(data)
		if err != nil || len(rows) != 1 || rows[0].ArtistName != "A" {
			t.Errorf("unexpected round trip: %v %+v", err, rows)
		}
	})

	t.Run("Unwritable Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "x.csv")
		if err := WriteRowsFile(path, nil); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}

func TestText(t *testing.T) {
	t.Run("RowsToText", func(t *testing.T) {
		played := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
		out := string(RowsToText("kexp_2024-03-01", []models.ScrapedRow{
			{Time: &played, ArtistName: "A", SongName: "One"},
			{ArtistName: "B", SongName: "Two"},
		}))

		if !strings.Contains(out, "Playlist: kexp_2024-03-01") {
			t.Errorf("missing title, got: %s", out)
		}
		if !strings.Contains(out, "1. [09:30] A - One") {
			t.Errorf("missing first row, got: %s", out)
		}
		if !strings.Contains(out, "2. [--:--] B - Two") {
			t.Errorf("missing untimed row, got: %s", out)
		}
	})

	t.Run("PlaylistsToText", func(t *testing.T) {
		out := string(PlaylistsToText([]models.Playlist{{ID: "p1", Name: "Morning", TrackCount: 3}}))
		if out != "p1  Morning (3 tracks, private)\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("PlaylistName", func(t *testing.T) {
		tests := map[string]string{
			"kexp_2024-03-01.csv": "kexp_2024-03-01",
			"archive.tar.csv":     "archive.tar",
			"noext":               "noext",
			".hidden":             ".hidden",
		}
		for in, want := range tests {
			if got := PlaylistName(in); got != want {
				t.Errorf("PlaylistName(%q) = %q, want %q", in, got, want)
			}
		}
	})
}
