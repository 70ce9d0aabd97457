package tasks

import (
	"fmt"

	"github.com/desertthunder/radiotx/internal/models"
)

// Phase is a step of a sync or merge run. It is logged alongside each update.
type Phase int

const (
	Initializing Phase = iota
	ClientReady
	PlaylistCreated
	ResolvingTracks
	AddingTracks
	FetchSource
	FetchTarget
	DeletingSource
	Finished
	Failed
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case ClientReady:
		return "client_ready"
	case PlaylistCreated:
		return "playlist_created"
	case ResolvingTracks:
		return "resolving_tracks"
	case AddingTracks:
		return "adding_tracks"
	case FetchSource:
		return "fetch_source"
	case FetchTarget:
		return "fetch_target"
	case DeletingSource:
		return "deleting_source"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// ProgressUpdate is one milestone of a run: the phase it belongs to and the patch it applies.
type ProgressUpdate struct {
	Phase Phase
	Patch Patch
}

func ptr[T any](v T) *T { return &v }

func progressUpdate(phase Phase, progress int, msg string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Patch: Patch{Progress: ptr(progress), Message: ptr(msg)}}
}

func statusUpdate(phase Phase, status models.TaskStatus, progress int, msg string) ProgressUpdate {
	return ProgressUpdate{
		Phase: phase,
		Patch: Patch{Status: ptr(status), Progress: ptr(progress), Message: ptr(msg)},
	}
}

// errorUpdate marks the task failed. Progress is left where it was.
func errorUpdate(msg string) ProgressUpdate {
	return ProgressUpdate{Phase: Failed, Patch: Patch{Status: ptr(models.TaskError), Message: ptr(msg)}}
}

func messageUpdate(phase Phase, msg string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Patch: Patch{Message: ptr(msg)}}
}

// batchProgress is base + floor(start/total*span).
func batchProgress(base, span, start, total int) int {
	if total <= 0 {
		return base
	}
	return base + start*span/total
}

func creatingPlaylistUpdate() ProgressUpdate {
	return progressUpdate(ClientReady, 5, "Creating playlist...")
}

func foundRowsUpdate(n int) ProgressUpdate {
	return progressUpdate(PlaylistCreated, 10, fmt.Sprintf("Found %d tracks to process", n))
}

func searchingUpdate(i, n int, row models.ScrapedRow) ProgressUpdate {
	return progressUpdate(ResolvingTracks, batchProgress(10, 60, i, n),
		fmt.Sprintf("Searching for track: %s by %s", row.SongName, row.ArtistName))
}

func addingTracksUpdate() ProgressUpdate {
	return progressUpdate(AddingTracks, 80, "Adding tracks to playlist...")
}

func addingBatchUpdate(base, span, start, end, total int) ProgressUpdate {
	return progressUpdate(AddingTracks, batchProgress(base, span, start, total),
		fmt.Sprintf("Adding tracks %d to %d", start+1, end))
}

func noTracksUpdate(name string) ProgressUpdate {
	return errorUpdate(fmt.Sprintf("No tracks found for playlist '%s'", name))
}

func playlistCreatedUpdate(name string, added, missed int) ProgressUpdate {
	msg := fmt.Sprintf("Created playlist '%s' with %d tracks", name, added)
	if missed > 0 {
		msg += fmt.Sprintf(" (%d not found on Spotify)", missed)
	}
	return statusUpdate(Finished, models.TaskCompleted, 100, msg)
}

func syncFailedUpdate(err error) ProgressUpdate {
	return errorUpdate(fmt.Sprintf("Error creating playlist: %v", err))
}

func mergeStartedUpdate() ProgressUpdate {
	return messageUpdate(Initializing, "Starting playlist merge...")
}

func fetchingSourceUpdate() ProgressUpdate {
	return progressUpdate(FetchSource, 10, "Getting source playlist tracks...")
}

func foundSourceUpdate(n int) ProgressUpdate {
	return progressUpdate(FetchSource, 30, fmt.Sprintf("Found %d tracks in source playlist", n))
}

func fetchingTargetUpdate() ProgressUpdate {
	return progressUpdate(FetchTarget, 40, "Getting target playlist tracks...")
}

func foundTargetUpdate(n int) ProgressUpdate {
	return progressUpdate(FetchTarget, 50, fmt.Sprintf("Found %d tracks in target playlist", n))
}

func nothingToAddUpdate() ProgressUpdate {
	return statusUpdate(AddingTracks, models.TaskCompleted, 90,
		"No new tracks to add (all tracks already exist in target playlist)")
}

func addingNewTracksUpdate(n int) ProgressUpdate {
	return progressUpdate(AddingTracks, 60, fmt.Sprintf("Adding %d new tracks to target playlist...", n))
}

func addedNewTracksUpdate(n int) ProgressUpdate {
	return progressUpdate(AddingTracks, 85, fmt.Sprintf("Successfully added %d tracks to target playlist", n))
}

func deletingSourceUpdate() ProgressUpdate {
	return progressUpdate(DeletingSource, 90, "Deleting source playlist...")
}

func mergedUpdate(n int) ProgressUpdate {
	return statusUpdate(Finished, models.TaskCompleted, 100,
		fmt.Sprintf("Successfully merged %d tracks and deleted source playlist", n))
}

func mergedWithWarningUpdate(n int, err error) ProgressUpdate {
	return statusUpdate(Finished, models.TaskCompletedWithWarning, 100,
		fmt.Sprintf("Successfully merged %d tracks, but failed to delete source playlist: %v", n, err))
}

func mergeFailedUpdate(err error) ProgressUpdate {
	return errorUpdate(fmt.Sprintf("Error merging playlists: %v", err))
}
