package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/formatter"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/storage"
	"golang.org/x/time/rate"
)

// Job scrapes every configured station and uploads one CSV per station per day.
type Job struct {
	scraper  *Scraper
	store    storage.BlobStore
	bucket   string
	stations []shared.StationConfig
	limiter  *rate.Limiter
	logger   *log.Logger
	now      func() time.Time
}

// NewJob creates a scrape job. rps throttles station fetches; zero disables throttling.
func NewJob(s *Scraper, store storage.BlobStore, bucket string, stations []shared.StationConfig, rps float64, logger *log.Logger) *Job {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	j := &Job{
		scraper:  s,
		store:    store,
		bucket:   bucket,
		stations: stations,
		logger:   logger.With("component", "scrape_job"),
		now:      time.Now,
	}
	if rps > 0 {
		j.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return j
}

// Key names the blob for station on day.
func Key(station string, day time.Time) string {
	return fmt.Sprintf("%s_%s.csv", station, day.Format("2006-01-02"))
}

// Run scrapes and uploads each station, returning the keys that were uploaded.
// A failing station is logged and skipped.
func (j *Job) Run(ctx context.Context) ([]string, error) {
	dir, err := os.MkdirTemp("", "radiotx-scrape-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	uploaded := []string{}
	for _, station := range j.stations {
		if j.limiter != nil {
			if err := j.limiter.Wait(ctx); err != nil {
				return uploaded, err
			}
		}

		key, err := j.runStation(ctx, dir, station)
		if err != nil {
			j.logger.Error("station failed", "station", station.Name, "error", err)
			continue
		}
		uploaded = append(uploaded, key)
	}

	j.logger.Info("scrape finished", "stations", len(j.stations), "uploaded", len(uploaded))
	return uploaded, nil
}

func (j *Job) runStation(ctx context.Context, dir string, station shared.StationConfig) (string, error) {
	rows, err := j.scraper.Scrape(ctx, station)
	if err != nil {
		return "", err
	}

	key := Key(station.Name, j.now())
	path := filepath.Join(dir, key)
	if err := formatter.WriteRowsFile(path, rows); err != nil {
		return "", err
	}

	if !j.store.Put(ctx, j.bucket, path, key) {
		return "", fmt.Errorf("%w: upload of %s failed", shared.ErrServiceUnavailable, key)
	}
	return key, nil
}
