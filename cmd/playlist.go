package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/radiotx/internal/formatter"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/tasks"
	"github.com/desertthunder/radiotx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync creates a Spotify playlist from the CSV stored under --file.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	key := cmd.String("file")
	plain := cmd.Bool("plain")

	restore, err := r.useFileLogger(plain)
	if err != nil {
		return err
	}
	defer restore()

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

	taskID := shared.GenerateID()
	job := func(ctx context.Context) error {
		_, err := engine.SyncFromBlob(ctx, taskID, key, creds)
		return err
	}

	return r.runTask(ctx, registry, taskID, "Syncing "+formatter.PlaylistName(key), plain, job)
}

// Merge copies the tracks of --source missing from --target, then unfollows the source.
//
// Without either ID the playlists are picked interactively.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	sourceID, targetID := cmd.String("source"), cmd.String("target")
	plain := cmd.Bool("plain")
	interactive := sourceID == "" && targetID == ""

	switch {
	case interactive && plain:
		return fmt.Errorf("%w: --source and --target are required with --plain", shared.ErrMissingArgument)
	case !interactive && (sourceID == "" || targetID == ""):
		return fmt.Errorf("%w: pass both --source and --target, or neither", shared.ErrMissingArgument)
	case !interactive && sourceID == targetID:
		return fmt.Errorf("%w: source and target must differ", shared.ErrInvalidArgument)
	}

	restore, err := r.useFileLogger(plain)
	if err != nil {
		return err
	}
	defer restore()

	sessions, release, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer release()

	creds, err := r.cliCredentials(sessions)
	if err != nil {
		return err
	}

	clients := r.clientFactory(sessions)
	registry := tasks.NewRegistry(r.logger)
	engine := tasks.NewMergeEngine(registry, clients, r.logger)

	start := func(taskID, sourceID, targetID string) tasks.Job {
		return func(ctx context.Context) error {
			_, err := engine.Run(ctx, taskID, sourceID, targetID, creds)
			return err
		}
	}

	if !interactive {
		taskID := shared.GenerateID()
		return r.runTask(ctx, registry, taskID, "Merging playlists", plain, start(taskID, sourceID, targetID))
	}

	client, err := clients(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}
	return r.runPicker(ui.NewModel(ctx, client, registry, shared.GenerateID, start))
}

// Playlists lists the stored CSV keys, the rows of one CSV (--show), or the user's Spotify playlists (--spotify).
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	asJSON, pretty := cmd.Bool("json"), cmd.Bool("pretty")

	if cmd.Bool("spotify") {
		return r.spotifyPlaylists(ctx, asJSON, pretty)
	}

	store, err := r.blobStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	if key := cmd.String("show"); key != "" {
		data, ok := store.Get(ctx, r.config.Storage.Bucket, key)
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrBlobNotFound, key)
		}
		rows, err := formatter.DecodeRows(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", key, err)
		}
		if asJSON {
			return r.writeJSON(rows, pretty)
		}
		_, err = r.output.Write(formatter.RowsToText(formatter.PlaylistName(key), rows))
		return err
	}

	keys := store.List(ctx, r.config.Storage.Bucket)
	if asJSON {
		return r.writeJSON(keys, pretty)
	}
	if len(keys) == 0 {
		r.writePlain("No playlists stored in %s\n", r.config.Storage.Bucket)
		return nil
	}
	for _, k := range keys {
		r.writePlain("%s\n", k)
	}
	return nil
}

func (r *Runner) spotifyPlaylists(ctx context.Context, asJSON, pretty bool) error {
	sessions, release, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer release()

	creds, err := r.cliCredentials(sessions)
	if err != nil {
		return err
	}

	client, err := r.clientFactory(sessions)(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch Spotify profile: %w", err)
	}
	playlists, err := client.ListPlaylists(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch Spotify playlists: %w", err)
	}

	if asJSON {
		return r.writeJSON(playlists, pretty)
	}
	_, err = r.output.Write(formatter.PlaylistsToText(playlists))
	return err
}
