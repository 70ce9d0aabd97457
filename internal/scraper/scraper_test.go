package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/radiotx/internal/formatter"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/tasks"
	tu "github.com/desertthunder/radiotx/internal/testing"
)

const stationPage = `<html><body>
<div class="PlaylistItem">
  <span class="PlaylistItem-time">9:04 AM</span>
  <div class="PlaylistItem-primaryContent"><h3>Maria   También</h3></div>
  <div class="PlaylistItem-artist">Khruangbin</div>
</div>
<div class="PlaylistItem">
  <span class="PlaylistItem-time">Air break</span>
</div>
<div class="PlaylistItem">
  <span class="PlaylistItem-time">9:12 AM</span>
  <div class="PlaylistItem-primaryContent"><h3>Not</h3></div>
  <div class="PlaylistItem-artist">Big Thief</div>
</div>
</body></html>`

func testStation(url string) shared.StationConfig {
	return shared.StationConfig{
		Name:           "kexp",
		URL:            url,
		RowSelector:    "div.PlaylistItem",
		TimeSelector:   ".PlaylistItem-time",
		ArtistSelector: ".PlaylistItem-artist",
		SongSelector:   ".PlaylistItem-primaryContent h3",
		TimeLayout:     "3:04 PM",
	}
}

func stationServer(t *testing.T) *httptest.Server {
	t.Helper()
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path != "/playlist" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(stationPage))
	}))
	t.Cleanup(func() {
		server.Close()
		if gotUA != "" && gotUA != "radiotx-test" {
			t.Errorf("unexpected user agent %q", gotUA)
		}
	})
	return server
}

func TestScraper(t *testing.T) {
	day := time.Date(2024, 3, 1, 23, 55, 0, 0, time.Local)

	t.Run("Scrape", func(t *testing.T) {
		server := stationServer(t)
		s := New(server.Client(), "radiotx-test", nil)
		s.now = func() time.Time { return day }

		rows, err := s.Scrape(context.Background(), testStation(server.URL+"/playlist"))
		if err != nil {
			t.Fatalf("scrape failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows (air break skipped), got %d", len(rows))
		}
		if rows[0].ArtistName != "Khruangbin" || rows[0].SongName != "Maria También" {
			t.Errorf("unexpected first row %+v", rows[0])
		}
		want := time.Date(2024, 3, 1, 9, 4, 0, 0, time.Local)
		if rows[0].Time == nil || !rows[0].Time.Equal(want) {
			t.Errorf("expected play time %v, got %v", want, rows[0].Time)
		}
	})

	t.Run("Bad Status", func(t *testing.T) {
		server := stationServer(t)
		s := New(server.Client(), "radiotx-test", nil)

		if _, err := s.Scrape(context.Background(), testStation(server.URL+"/gone")); err == nil {
			t.Error("expected error for 404 page")
		}
	})

	t.Run("Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection reset"))}
		s := New(client, "radiotx-test", nil)

		_, err := s.Scrape(context.Background(), testStation("http://station.invalid/playlist"))
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Incomplete Station", func(t *testing.T) {
		s := New(nil, "", nil)
		if _, err := s.Scrape(context.Background(), shared.StationConfig{Name: "x"}); err == nil {
			t.Error("expected config error")
		}
	})

	t.Run("Unparseable Time", func(t *testing.T) {
		if got := playTime("noonish", "3:04 PM", day); got != nil {
			t.Errorf("expected nil time, got %v", got)
		}
		full := playTime("2024-02-29 10:00", "2006-01-02 15:04", day)
		if full == nil || full.Day() != 29 {
			t.Errorf("layouts with a date keep it, got %v", full)
		}
	})
}

func TestJob(t *testing.T) {
	day := time.Date(2024, 3, 1, 23, 55, 0, 0, time.Local)

	t.Run("Uploads One CSV Per Station", func(t *testing.T) {
		server := stationServer(t)
		s := New(server.Client(), "radiotx-test", nil)
		store := tu.NewMemoryStore(nil)

		broken := testStation(server.URL + "/gone")
		broken.Name = "broken"

		job := NewJob(s, store, "radio-playlists", []shared.StationConfig{testStation(server.URL + "/playlist"), broken}, 0, nil)
		job.now = func() time.Time { return day }

		keys, err := job.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(keys) != 1 || keys[0] != "kexp_2024-03-01.csv" {
			t.Fatalf("expected only kexp uploaded, got %v", keys)
		}

		rows, err := formatter.DecodeRows([]byte(store.Objects["kexp_2024-03-01.csv"]))
		if err != nil {
			t.Fatalf("uploaded CSV is invalid: %v", err)
		}
		if len(rows) != 2 || rows[1].SongName != "Not" {
			t.Errorf("unexpected uploaded rows %+v", rows)
		}
	})

	t.Run("Upload Failure Skips Station", func(t *testing.T) {
		server := stationServer(t)
		store := tu.NewMemoryStore(nil)
		store.PutFail = true
		job := NewJob(New(server.Client(), "radiotx-test", nil), store, "b",
			[]shared.StationConfig{testStation(server.URL + "/playlist")}, 100, nil)

		keys, err := job.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("expected nothing uploaded, got %v", keys)
		}
	})

	t.Run("Key", func(t *testing.T) {
		if got := Key("wfmu", day); got != "wfmu_2024-03-01.csv" {
			t.Errorf("unexpected key %s", got)
		}
	})
}

func TestScheduler(t *testing.T) {
	t.Run("Registers Entries", func(t *testing.T) {
		s := NewScheduler(nil)
		job := NewJob(New(nil, "", nil), tu.NewMemoryStore(nil), "b", nil, 0, nil)

		if _, err := s.AddScrape("0 55 23 * * *", job); err != nil {
			t.Fatalf("expected valid schedule: %v", err)
		}
		if _, err := s.AddSweep(tasks.NewRegistry(nil), time.Hour); err != nil {
			t.Fatalf("expected sweep to be scheduled: %v", err)
		}
		if s.Entries() != 2 {
			t.Errorf("expected 2 entries, got %d", s.Entries())
		}

		s.Start()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	t.Run("Rejects Bad Input", func(t *testing.T) {
		s := NewScheduler(nil)
		job := NewJob(New(nil, "", nil), tu.NewMemoryStore(nil), "b", nil, 0, nil)

		if _, err := s.AddScrape("every day at noon", job); err == nil || !strings.Contains(err.Error(), "every day at noon") {
			t.Errorf("expected schedule error, got %v", err)
		}
		if _, err := s.AddSweep(tasks.NewRegistry(nil), 0); err == nil {
			t.Error("expected zero ttl to be rejected")
		}
	})
}
