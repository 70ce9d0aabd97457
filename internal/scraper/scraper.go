// Package scraper pulls daily plays off radio station playlist pages and uploads them as CSV.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/shared"
)

// Scraper fetches station pages and extracts rows with CSS selectors.
type Scraper struct {
	client    *http.Client
	userAgent string
	logger    *log.Logger
	now       func() time.Time
}

// New creates a scraper. A nil client gets a 30 second timeout.
func New(client *http.Client, userAgent string, logger *log.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Scraper{
		client:    client,
		userAgent: userAgent,
		logger:    logger.With("component", "scraper"),
		now:       time.Now,
	}
}

// Scrape fetches station.URL and returns one row per element matching RowSelector.
// Elements with neither an artist nor a song are skipped.
func (s *Scraper) Scrape(ctx context.Context, station shared.StationConfig) ([]models.ScrapedRow, error) {
	if station.URL == "" || station.RowSelector == "" {
		return nil, fmt.Errorf("%w: station %q needs url and row_selector", shared.ErrInvalidConfig, station.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, station.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s answered status %d", shared.ErrAPIRequest, station.URL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	day := s.now()
	rows := []models.ScrapedRow{}
	doc.Find(station.RowSelector).Each(func(_ int, sel *goquery.Selection) {
		row := models.ScrapedRow{
			ArtistName: text(sel, station.ArtistSelector),
			SongName:   text(sel, station.SongSelector),
		}
		if row.ArtistName == "" && row.SongName == "" {
			return
		}
		row.Time = playTime(text(sel, station.TimeSelector), station.TimeLayout, day)
		rows = append(rows, row)
	})

	s.logger.Info("scraped station", "station", station.Name, "rows", len(rows))
	return rows, nil
}

func text(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(sel.Find(selector).First().Text()), " ")
}

// playTime parses raw with layout. Layouts without a date are placed on day.
func playTime(raw, layout string, day time.Time) *time.Time {
	if raw == "" || layout == "" {
		return nil
	}
	t, err := time.ParseInLocation(layout, raw, day.Location())
	if err != nil {
		return nil
	}
	if t.Year() == 0 {
		t = time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location())
	}
	return &t
}
