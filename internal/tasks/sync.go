package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/formatter"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/storage"
)

var errNoMatches = errors.New("no tracks matched")

// SyncResult summarizes a finished sync.
type SyncResult struct {
	PlaylistID   string
	PlaylistName string
	TotalRows    int
	Matched      int
	Missed       int
}

// SyncEngine turns a scraped playlist CSV into a new private Spotify playlist.
type SyncEngine struct {
	registry *Registry
	clients  ClientFactory
	store    storage.BlobStore
	bucket   string
	logger   *log.Logger
}

// NewSyncEngine creates a sync engine. store may be nil when only [SyncEngine.Run] is used.
func NewSyncEngine(registry *Registry, clients ClientFactory, store storage.BlobStore, bucket string, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SyncEngine{
		registry: registry,
		clients:  clients,
		store:    store,
		bucket:   bucket,
		logger:   logger.With("engine", "sync"),
	}
}

// Run creates playlist name from content, recording progress under taskID.
//
// Every outcome is written to the task record; the returned error is for callers running in the foreground.
func (e *SyncEngine) Run(ctx context.Context, taskID string, content []byte, name string, creds Credentials) (*SyncResult, error) {
	e.registry.Create(taskID)
	rep := newReporter(e.registry, e.logger, taskID)

	client, err := e.clients(ctx, creds)
	if err != nil {
		rep.logger.Error("failed to create client", "error", err)
		rep.send(errorUpdate("Failed to create Spotify client"))
		return nil, err
	}

	result, err := e.run(ctx, rep, client, content, name)
	switch {
	case errors.Is(err, errNoMatches):
		rep.send(noTracksUpdate(name))
		return result, fmt.Errorf("%w: no tracks found for playlist '%s'", shared.ErrNotFound, name)
	case err != nil:
		rep.send(syncFailedUpdate(err))
		return result, err
	}

	rep.send(playlistCreatedUpdate(name, result.Matched, result.Missed))
	return result, nil
}

func (e *SyncEngine) run(
	ctx context.Context,
	rep reporter,
	client services.PlaylistService,
	content []byte,
	name string,
) (*SyncResult, error) {
	result := &SyncResult{PlaylistName: name}

	if err := checkContext(ctx); err != nil {
		return result, err
	}
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to get current user: %w", err)
	}

	rep.send(creatingPlaylistUpdate())
	playlistID, err := client.CreatePlaylist(ctx, user.ID, name)
	if err != nil {
		return result, fmt.Errorf("failed to create playlist: %w", err)
	}
	result.PlaylistID = playlistID

	rows, err := formatter.DecodeRows(content)
	if err != nil {
		return result, err
	}
	total := len(rows)
	result.TotalRows = total
	rep.logger.Info("creating playlist", "name", name, "rows", total)
	rep.send(foundRowsUpdate(total))

	uris := make([]string, 0, total)
	for i, row := range rows {
		if err := checkContext(ctx); err != nil {
			return result, err
		}

		rep.send(searchingUpdate(i, total, row))
		if row.ArtistName == "" || row.SongName == "" {
			continue
		}

		uri, err := client.SearchTrack(ctx, row.ArtistName, row.SongName)
		if err != nil {
			rep.logger.Warn("search failed", "artist", row.ArtistName, "song", row.SongName, "error", err)
		}
		if uri == "" {
			result.Missed++
			continue
		}
		uris = append(uris, uri)
	}
	result.Matched = len(uris)

	rep.send(addingTracksUpdate())
	if len(uris) == 0 {
		return result, errNoMatches
	}

	for start := 0; start < len(uris); start += services.MaxTracksPerRequest {
		if err := checkContext(ctx); err != nil {
			return result, err
		}
		end := min(start+services.MaxTracksPerRequest, len(uris))
		if err := client.AddTracks(ctx, playlistID, uris[start:end]); err != nil {
			return result, fmt.Errorf("failed to add tracks: %w", err)
		}
		rep.send(addingBatchUpdate(80, 15, start, end, len(uris)))
	}

	rep.logger.Info("created playlist", "name", name, "tracks", len(uris), "missed", result.Missed)
	return result, nil
}

// SyncFromBlob downloads key from the bucket and runs it, naming the playlist after the key without its extension.
func (e *SyncEngine) SyncFromBlob(ctx context.Context, taskID, key string, creds Credentials) (*SyncResult, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: no blob store configured", shared.ErrServiceUnavailable)
	}

	content, ok := e.store.Get(ctx, e.bucket, key)
	if !ok {
		e.registry.Create(taskID)
		newReporter(e.registry, e.logger, taskID).send(errorUpdate(fmt.Sprintf("Failed to download %s", key)))
		return nil, fmt.Errorf("%w: %s", shared.ErrBlobNotFound, key)
	}

	return e.Run(ctx, taskID, content, formatter.PlaylistName(key), creds)
}

// BucketResult is the outcome of syncing one blob during [SyncEngine.ProcessBucket].
type BucketResult struct {
	TaskID string
	Key    string
	Result *SyncResult
	Err    error
}

// ProcessBucket syncs the first limit keys of the bucket, skipping keys that are not CSV files.
// A limit of zero or less processes every key. Each key runs as its own task, sequentially.
func (e *SyncEngine) ProcessBucket(ctx context.Context, limit int, creds Credentials) ([]BucketResult, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: no blob store configured", shared.ErrServiceUnavailable)
	}

	keys := e.store.List(ctx, e.bucket)
	if len(keys) == 0 {
		e.logger.Warn("no objects found in bucket", "bucket", e.bucket)
		return nil, nil
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	results := []BucketResult{}
	for _, key := range keys {
		if !strings.HasSuffix(key, ".csv") {
			continue
		}
		if err := checkContext(ctx); err != nil {
			return results, err
		}

		taskID := shared.GenerateID()
		res, err := e.SyncFromBlob(ctx, taskID, key, Credentials{SessionID: creds.SessionID, Session: creds.Session.Clone()})
		results = append(results, BucketResult{TaskID: taskID, Key: key, Result: res, Err: err})
	}
	return results, nil
}
