package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/tasks"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the scrape job and task record sweeps on cron schedules (with a seconds field).
type Scheduler struct {
	cron   *cron.Cron
	logger *log.Logger
}

type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debug(msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error(msg, append(kv, "error", err)...)
}

func NewScheduler(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = logger.With("component", "scheduler")
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{logger})),
		logger: logger,
	}
}

// AddScrape runs job on spec.
func (s *Scheduler) AddScrape(spec string, job *Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		if _, err := job.Run(context.Background()); err != nil {
			s.logger.Error("scheduled scrape failed", "error", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("%w: scrape schedule %q: %v", shared.ErrInvalidConfig, spec, err)
	}
	s.logger.Info("scheduled scrape", "schedule", spec)
	return id, nil
}

// AddSweep removes terminal task records older than ttl once a minute.
func (s *Scheduler) AddSweep(registry *tasks.Registry, ttl time.Duration) (cron.EntryID, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("%w: sweep ttl must be positive", shared.ErrInvalidConfig)
	}
	id, err := s.cron.AddFunc("@every 1m", func() {
		if n := registry.Sweep(ttl); n > 0 {
			s.logger.Info("evicted task records", "count", n)
		}
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("scheduled task sweep", "ttl", ttl)
	return id, nil
}

// Entries returns the number of scheduled entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
	s.logger.Info("scheduler stopped")
}
