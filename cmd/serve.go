package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/radiotx/internal/scraper"
	"github.com/desertthunder/radiotx/internal/server"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// Serve runs the HTTP API with its worker pool and cron schedule until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, port := r.config.Server.Host, r.config.Server.Port
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}

	sessions, release, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer release()

	store, err := r.blobStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	registry := tasks.NewRegistry(r.logger)
	// Workers get their own context so in-flight tasks can finish during shutdown.
	dispatcher := tasks.NewDispatcher(context.Background(), registry, r.config.Tasks.Workers, r.config.Tasks.QueueSize, shared.WithLogger(r.logger, "component", "dispatcher"))
	clients := r.clientFactory(sessions)

	var oauth services.OAuthService
	if spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map(), r.spotifyOptions()...); err != nil {
		r.logger.Warn("Spotify login disabled", "error", err)
	} else {
		oauth = spotify
	}

	job := r.scrapeJob(store)
	scheduler := scraper.NewScheduler(r.logger)
	if r.config.Scraper.Schedule != "" && !cmd.Bool("no-schedule") {
		if _, err := scheduler.AddScrape(r.config.Scraper.Schedule, job); err != nil {
			return err
		}
	}
	if ttl := r.config.TaskTTL(); ttl > 0 {
		if _, err := scheduler.AddSweep(registry, ttl); err != nil {
			return err
		}
	}

	api := server.NewAPI(server.Deps{
		Registry:   registry,
		Dispatcher: dispatcher,
		Sync:       tasks.NewSyncEngine(registry, clients, store, r.config.Storage.Bucket, r.logger),
		Merge:      tasks.NewMergeEngine(registry, clients, r.logger),
		Clients:    clients,
		OAuth:      oauth,
		Store:      store,
		Bucket:     r.config.Storage.Bucket,
		Scraper:    job,
		Sessions:   sessions,
		Logger:     r.logger,
	})
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := server.NewHTTPServer(addr, server.NewHandler(api, r.config.Server.SessionCookie))

	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		scheduler.Stop(shutdownCtx)
		if derr := dispatcher.Shutdown(shutdownCtx); derr != nil {
			r.logger.Warn("workers did not stop in time", "error", derr)
		}
		return err
	})

	return g.Wait()
}
