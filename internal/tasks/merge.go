package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
)

var (
	errSourceTracks = errors.New("failed to get tracks from source playlist")
	errTargetTracks = errors.New("failed to get tracks from target playlist")
)

// MergeResult summarizes a finished merge.
type MergeResult struct {
	SourceTracks  int
	TargetTracks  int
	Added         int
	SourceDeleted bool
	DeleteError   error
}

// MergeEngine copies the tracks of one playlist into another, then removes the source.
type MergeEngine struct {
	registry *Registry
	clients  ClientFactory
	logger   *log.Logger
}

func NewMergeEngine(registry *Registry, clients ClientFactory, logger *log.Logger) *MergeEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MergeEngine{registry: registry, clients: clients, logger: logger.With("engine", "merge")}
}

// NewTracks returns the tracks of source whose URI is not in target, in source order.
func NewTracks(source, target []models.Track) []models.Track {
	existing := make(map[string]struct{}, len(target))
	for _, t := range target {
		existing[t.URI] = struct{}{}
	}

	fresh := make([]models.Track, 0, len(source))
	for _, t := range source {
		if _, ok := existing[t.URI]; !ok {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

// Run merges sourceID into targetID, recording progress under taskID.
//
// A failed deletion of the source still completes the task, with status completed_with_warning.
func (e *MergeEngine) Run(ctx context.Context, taskID, sourceID, targetID string, creds Credentials) (*MergeResult, error) {
	e.registry.Create(taskID)
	rep := newReporter(e.registry, e.logger, taskID)
	rep.send(mergeStartedUpdate())

	client, err := e.clients(ctx, creds)
	if err != nil {
		rep.logger.Error("failed to create client", "error", err)
		rep.send(errorUpdate("Failed to create Spotify client"))
		return nil, err
	}

	result, err := e.run(ctx, rep, client, sourceID, targetID)
	switch {
	case errors.Is(err, errSourceTracks):
		rep.send(errorUpdate("Failed to get tracks from source playlist"))
		return result, err
	case errors.Is(err, errTargetTracks):
		rep.send(errorUpdate("Failed to get tracks from target playlist"))
		return result, err
	case err != nil:
		rep.send(mergeFailedUpdate(err))
		return result, err
	}
	return result, nil
}

func (e *MergeEngine) run(
	ctx context.Context,
	rep reporter,
	client services.PlaylistService,
	sourceID, targetID string,
) (*MergeResult, error) {
	result := &MergeResult{}

	rep.send(fetchingSourceUpdate())
	source, err := client.ListTracks(ctx, sourceID)
	if err != nil || len(source) == 0 {
		rep.logger.Error("source playlist unavailable", "playlist", sourceID, "tracks", len(source), "error", err)
		return result, errSourceTracks
	}
	result.SourceTracks = len(source)
	rep.send(foundSourceUpdate(len(source)))

	if err := checkContext(ctx); err != nil {
		return result, err
	}

	rep.send(fetchingTargetUpdate())
	target, err := client.ListTracks(ctx, targetID)
	if err != nil {
		rep.logger.Error("target playlist unavailable", "playlist", targetID, "error", err)
		return result, errTargetTracks
	}
	result.TargetTracks = len(target)
	rep.send(foundTargetUpdate(len(target)))

	fresh := NewTracks(source, target)
	if len(fresh) == 0 {
		rep.send(nothingToAddUpdate())
	} else {
		rep.send(addingNewTracksUpdate(len(fresh)))

		uris := make([]string, len(fresh))
		for i, t := range fresh {
			uris[i] = t.URI
		}

		for start := 0; start < len(uris); start += services.MaxTracksPerRequest {
			if err := checkContext(ctx); err != nil {
				return result, err
			}
			end := min(start+services.MaxTracksPerRequest, len(uris))
			if err := client.AddTracks(ctx, targetID, uris[start:end]); err != nil {
				return result, fmt.Errorf("failed to add tracks: %w", err)
			}
			result.Added = end
			rep.send(addingBatchUpdate(60, 20, start, end, len(uris)))
		}

		rep.send(addedNewTracksUpdate(len(fresh)))
	}

	rep.send(deletingSourceUpdate())
	if err := client.UnfollowPlaylist(ctx, sourceID); err != nil {
		rep.logger.Error("failed to delete source playlist", "playlist", sourceID, "error", err)
		result.DeleteError = err
		rep.send(mergedWithWarningUpdate(result.Added, err))
		return result, nil
	}

	rep.logger.Info("merged playlists", "source", sourceID, "target", targetID, "added", result.Added)
	result.SourceDeleted = true
	rep.send(mergedUpdate(result.Added))
	return result, nil
}
