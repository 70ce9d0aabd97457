package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
)

// Credentials identify whose Spotify token a run uses. Session must be a copy owned by the run.
type Credentials struct {
	SessionID string
	Session   services.Session
}

// ClientFactory builds an authenticated client for one run.
type ClientFactory func(ctx context.Context, creds Credentials) (services.PlaylistService, error)

// SpotifyClientFactory returns a [ClientFactory] backed by [services.SpotifyService].
//
// onRefresh, when set, receives the session id and the refreshed session after a token refresh.
func SpotifyClientFactory(
	credentials map[string]string,
	onRefresh func(sessionID string, session services.Session),
	opts ...services.SpotifyOption,
) ClientFactory {
	return func(ctx context.Context, creds Credentials) (services.PlaylistService, error) {
		srv, err := services.NewSpotifyService(credentials, opts...)
		if err != nil {
			return nil, err
		}
		if err := srv.Authenticate(creds.Session); err != nil {
			return nil, err
		}
		if onRefresh != nil {
			id := creds.SessionID
			srv.SetTokenRefreshCallback(func(s services.Session) { onRefresh(id, s) })
		}
		return srv, nil
	}
}

// reporter applies a run's progress updates to one task record.
type reporter struct {
	registry *Registry
	logger   *log.Logger
	taskID   string
}

func (r reporter) send(u ProgressUpdate) {
	r.registry.Update(r.taskID, u.Patch)

	kv := []any{"phase", u.Phase}
	if u.Patch.Progress != nil {
		kv = append(kv, "progress", *u.Patch.Progress)
	}
	if u.Patch.Message != nil {
		kv = append(kv, "message", *u.Patch.Message)
	}
	if u.Phase == Failed {
		r.logger.Error("task failed", kv...)
		return
	}
	r.logger.Debug("task progress", kv...)
}

func newReporter(registry *Registry, logger *log.Logger, taskID string) reporter {
	return reporter{registry: registry, logger: logger.With("task_id", taskID), taskID: taskID}
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTaskCancelled, err)
	}
	return nil
}
