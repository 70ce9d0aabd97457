package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/radiotx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Scrape runs every configured station once and prints the uploaded keys.
func (r *Runner) Scrape(ctx context.Context, cmd *cli.Command) error {
	if len(r.config.Scraper.Stations) == 0 {
		return fmt.Errorf("no stations configured: add [[scraper.stations]] to %s", r.configPath)
	}

	store, err := r.blobStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	uploaded, err := r.scrapeJob(store).Run(ctx)
	for _, key := range uploaded {
		r.writePlain("✓ %s\n", key)
	}
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}
	if len(uploaded) == 0 {
		r.writePlain("Nothing uploaded\n")
	}
	return nil
}

// ProcessBucket creates a playlist for each of the first --limit CSVs in the bucket.
func (r *Runner) ProcessBucket(ctx context.Context, cmd *cli.Command) error {
	sessions, release, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer release()

	creds, err := r.cliCredentials(sessions)
	if err != nil {
		return err
	}

	store, err := r.blobStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	registry := tasks.NewRegistry(r.logger)
	engine := tasks.NewSyncEngine(registry, r.clientFactory(sessions), store, r.config.Storage.Bucket, r.logger)

	results, err := engine.ProcessBucket(ctx, int(cmd.Int("limit")), creds)
	failed := 0
	for _, res := range results {
		rec, _ := registry.Get(res.TaskID)
		if res.Err != nil {
			failed++
			r.writePlain("✗ %s: %s\n", res.Key, rec.Message)
			continue
		}
		r.writePlain("✓ %s: %s\n", res.Key, rec.Message)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		r.writePlain("No CSV files found in %s\n", r.config.Storage.Bucket)
		return nil
	}

	r.writePlainln("Processed %d file(s), %d failed", len(results), failed)
	return nil
}
