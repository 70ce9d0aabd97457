package server

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/repositories"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/tasks"
	tu "github.com/desertthunder/radiotx/internal/testing"
)

const sampleCSV = "time,artist_name,song_name\n" +
	"2025-01-02 08:00:00,Khruangbin,Maria También\n" +
	"2025-01-02 08:04:00,Big Thief,Not\n"

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type fakeClient struct {
	mu        sync.Mutex
	tracks    map[string][]models.Track
	playlists []models.Playlist
	added     [][]string
	unfollows []string
}

func (c *fakeClient) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: "user1"}, nil
}

func (c *fakeClient) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	return "spotify:track:" + title, nil
}

func (c *fakeClient) CreatePlaylist(ctx context.Context, ownerID, name string) (string, error) {
	return "created", nil
}

func (c *fakeClient) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	return c.tracks[playlistID], nil
}

func (c *fakeClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, uris)
	return nil
}

func (c *fakeClient) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unfollows = append(c.unfollows, playlistID)
	return nil
}

func (c *fakeClient) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	return c.playlists, nil
}

// fakeOAuth accepts the code "good".
type fakeOAuth struct{}

func (fakeOAuth) GetAuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (fakeOAuth) ExchangeCode(ctx context.Context, code string, session services.Session) bool {
	if code != "good" {
		return false
	}
	session[services.KeyAccessToken] = "fresh"
	session[services.KeyExpiresAt] = strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)
	return true
}

type fakeScraper struct {
	keys []string
	err  error
}

func (f fakeScraper) Run(ctx context.Context) ([]string, error) {
	return f.keys, f.err
}

func liveSession() map[string]string {
	return map[string]string{
		services.KeyAccessToken: "tok",
		services.KeyExpiresAt:   strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
	}
}

type testEnv struct {
	api      *API
	handler  *BasicRouter
	registry *tasks.Registry
	client   *fakeClient
	sessions *repositories.SessionRepository
	store    *tu.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := quietLogger()
	client := &fakeClient{tracks: map[string][]models.Track{}}
	clients := func(ctx context.Context, creds tasks.Credentials) (services.PlaylistService, error) {
		if !services.IsAuthenticated(creds.Session) {
			return nil, shared.ErrNotAuthenticated
		}
		return client, nil
	}

	registry := tasks.NewRegistry(logger)
	dispatcher := tasks.NewDispatcher(context.Background(), registry, 2, 8, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	})

	store := tu.NewMemoryStore(map[string][]byte{"kexp_2025-01-02.csv": []byte(sampleCSV)})
	sessions := repositories.NewSessionRepository(db)

	api := NewAPI(Deps{
		Registry:   registry,
		Dispatcher: dispatcher,
		Sync:       tasks.NewSyncEngine(registry, clients, store, "bucket", logger),
		Merge:      tasks.NewMergeEngine(registry, clients, logger),
		Clients:    clients,
		OAuth:      fakeOAuth{},
		Store:      store,
		Bucket:     "bucket",
		Scraper:    fakeScraper{keys: []string{"kexp_2025-01-02.csv"}},
		Sessions:   sessions,
		Logger:     logger,
	})

	return &testEnv{
		api:      api,
		handler:  NewHandler(api, DefaultSessionCookie),
		registry: registry,
		client:   client,
		sessions: sessions,
		store:    store,
	}
}

// waitTerminal polls the registry until the task leaves processing.
func waitTerminal(t *testing.T, registry *tasks.Registry, taskID string) models.TaskRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := registry.Get(taskID); ok && rec.Status.Terminal() {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish", taskID)
	return models.TaskRecord{}
}
