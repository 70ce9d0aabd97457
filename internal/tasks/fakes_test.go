package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/services"
)

type mockClient struct {
	mu sync.Mutex

	user      string
	userErr   error
	createErr error
	// search results keyed by "artist|title"
	results   map[string]string
	searchErr map[string]error
	tracks    map[string][]models.Track
	listErr   map[string]error
	addErr    error
	deleteErr error

	searched  []string
	created   []string
	batches   [][]string
	unfollows []string
}

func (m *mockClient) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	return &services.SpotifyUser{ID: m.user}, nil
}

func (m *mockClient) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := artist + "|" + title
	m.searched = append(m.searched, key)
	if err := m.searchErr[key]; err != nil {
		return "", err
	}
	return m.results[key], nil
}

func (m *mockClient) CreatePlaylist(ctx context.Context, ownerID, name string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, name)
	return "new_playlist", nil
}

func (m *mockClient) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if err := m.listErr[playlistID]; err != nil {
		return nil, err
	}
	return m.tracks[playlistID], nil
}

func (m *mockClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.batches = append(m.batches, append([]string(nil), uris...))
	return nil
}

func (m *mockClient) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	m.unfollows = append(m.unfollows, playlistID)
	return m.deleteErr
}

func (m *mockClient) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	return nil, nil
}

func factoryFor(c *mockClient) ClientFactory {
	return func(context.Context, Credentials) (services.PlaylistService, error) {
		return c, nil
	}
}

func failingFactory() ClientFactory {
	return func(context.Context, Credentials) (services.PlaylistService, error) {
		return nil, errors.New("no token")
	}
}

// recordingRegistry returns a registry and a function returning every record written for a task, in order.
func recordingRegistry() (*Registry, func(taskID string) []models.TaskRecord) {
	var mu sync.Mutex
	history := map[string][]models.TaskRecord{}

	r := NewRegistry(nil)
	r.onUpdate = func(taskID string, rec models.TaskRecord) {
		mu.Lock()
		defer mu.Unlock()
		history[taskID] = append(history[taskID], rec)
	}

	return r, func(taskID string) []models.TaskRecord {
		mu.Lock()
		defer mu.Unlock()
		return append([]models.TaskRecord(nil), history[taskID]...)
	}
}

func tracks(uris ...string) []models.Track {
	out := make([]models.Track, len(uris))
	for i, u := range uris {
		out[i] = models.Track{ID: u, URI: "spotify:track:" + u}
	}
	return out
}
