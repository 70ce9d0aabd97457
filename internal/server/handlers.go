package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/formatter"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/storage"
	"github.com/desertthunder/radiotx/internal/tasks"
)

const stateKey = "oauth_state"

// ScrapeRunner runs one scrape pass and returns the uploaded keys.
type ScrapeRunner interface {
	Run(ctx context.Context) ([]string, error)
}

// Deps are the collaborators of [API]. Store, Scraper and OAuth may be nil; their routes then answer 503.
type Deps struct {
	Registry   *tasks.Registry
	Dispatcher *tasks.Dispatcher
	Sync       *tasks.SyncEngine
	Merge      *tasks.MergeEngine
	Clients    tasks.ClientFactory
	OAuth      services.OAuthService
	Store      storage.BlobStore
	Bucket     string
	Scraper    ScrapeRunner
	Sessions   SessionStore
	Logger     *log.Logger
}

// API holds the JSON handlers of the web service.
type API struct {
	Deps
	logger *log.Logger
}

// NewAPI creates the handler set.
func NewAPI(deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{Deps: deps, logger: logger.With("component", "api")}
}

// Register adds every route to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.Health))
	r.Handle(http.MethodPost, "/create_playlist_from_file", http.HandlerFunc(a.CreatePlaylistFromFile))
	r.Handle(http.MethodGet, "/playlist_progress/{task_id}", http.HandlerFunc(a.PlaylistProgress))
	r.Handle(http.MethodPost, "/merge_playlists", http.HandlerFunc(a.MergePlaylists))
	r.Handle(http.MethodGet, "/spotify/status", http.HandlerFunc(a.SpotifyStatus))
	r.Handle(http.MethodGet, "/spotify/login", http.HandlerFunc(a.SpotifyLogin))
	r.Handle(http.MethodPost, "/spotify/logout", http.HandlerFunc(a.SpotifyLogout))
	r.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.Callback))
	r.Handle(http.MethodGet, "/spotify_playlists", http.HandlerFunc(a.SpotifyPlaylists))
	r.Handle(http.MethodGet, "/api/playlists", http.HandlerFunc(a.StoredPlaylists))
	r.Handle(http.MethodGet, "/api/playlists/{name}", http.HandlerFunc(a.StoredPlaylist))
	r.Handle(http.MethodPost, "/api/scrape", http.HandlerFunc(a.Scrape))
}

type createPlaylistRequest struct {
	FileName string `json:"file_name" validate:"required"`
}

type mergeRequest struct {
	SourcePlaylistID string `json:"source_playlist_id" validate:"required"`
	TargetPlaylistID string `json:"target_playlist_id" validate:"required,nefield=SourcePlaylistID"`
}

type taskResponse struct {
	Status  string `json:"status"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

type statusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message"`
}

type rowView struct {
	Time   string `json:"time"`
	Artist string `json:"artist"`
	Song   string `json:"song"`
}

// session returns the request session, or an empty one outside the [Sessions] middleware.
func session(r *http.Request) *RequestSession {
	if s := SessionFrom(r.Context()); s != nil {
		if s.Data == nil {
			s.Data = services.Session{}
		}
		return s
	}
	return &RequestSession{Data: services.Session{}}
}

// credentials snapshots the session for a background run.
func credentials(s *RequestSession) tasks.Credentials {
	return tasks.Credentials{SessionID: s.ID, Session: s.Data.Clone()}
}

func (a *API) respondErr(w http.ResponseWriter, err error, message string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(message, "error", err)
	} else {
		a.logger.Debug(message, "error", err)
	}
	RespondWithError(w, status, message)
}

func (a *API) submitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrQueueFull):
		a.respondErr(w, err, "Server busy, try again later")
	case errors.Is(err, shared.ErrPoolShutdown):
		a.respondErr(w, err, "Server is shutting down")
	default:
		a.respondErr(w, err, "Failed to start task")
	}
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]any{"status": "ok", "tasks": a.Registry.Len()})
}

// CreatePlaylistFromFile downloads a stored CSV and syncs it into a new playlist in the background.
func (a *API) CreatePlaylistFromFile(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.Store == nil {
		a.respondErr(w, shared.ErrServiceUnavailable, "Blob store is not configured")
		return
	}

	content, ok := a.Store.Get(r.Context(), a.Bucket, req.FileName)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to download %s", req.FileName))
		return
	}

	taskID := shared.GenerateID()
	creds := credentials(session(r))
	name := formatter.PlaylistName(req.FileName)

	err := a.Dispatcher.Submit(taskID, func(ctx context.Context) error {
		_, err := a.Sync.Run(ctx, taskID, content, name, creds)
		return err
	})
	if err != nil {
		a.submitError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, taskResponse{
		Status:  statusSuccess,
		TaskID:  taskID,
		Message: "Playlist creation started",
	})
}

// PlaylistProgress returns the task record for {task_id}.
func (a *API) PlaylistProgress(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.Registry.Get(r.PathValue("task_id"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Task not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, rec)
}

// MergePlaylists moves the source playlist's new tracks into the target in the background.
func (a *API) MergePlaylists(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	taskID := shared.GenerateID()
	creds := credentials(session(r))

	err := a.Dispatcher.Submit(taskID, func(ctx context.Context) error {
		_, err := a.Merge.Run(ctx, taskID, req.SourcePlaylistID, req.TargetPlaylistID, creds)
		return err
	})
	if err != nil {
		a.submitError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, taskResponse{
		Status:  statusSuccess,
		TaskID:  taskID,
		Message: "Playlist merge started",
	})
}

// SpotifyStatus reports whether the session holds a live token.
func (a *API) SpotifyStatus(w http.ResponseWriter, r *http.Request) {
	if services.IsAuthenticated(session(r).Data) {
		RespondWithJSON(w, http.StatusOK, statusResponse{Authenticated: true, Message: "Authenticated with Spotify"})
		return
	}
	RespondWithJSON(w, http.StatusOK, statusResponse{Authenticated: false, Message: "Not authenticated with Spotify"})
}

// SpotifyLogin redirects to the authorization page, remembering the state in the session.
func (a *API) SpotifyLogin(w http.ResponseWriter, r *http.Request) {
	if a.OAuth == nil {
		a.respondErr(w, shared.ErrServiceUnavailable, "Spotify is not configured")
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		a.respondErr(w, err, "Failed to start authorization")
		return
	}

	sess := session(r)
	sess.Data[stateKey] = state
	if err := a.Sessions.Save(sess.ID, sess.Data); err != nil {
		a.respondErr(w, err, "Failed to save session")
		return
	}

	http.Redirect(w, r, a.OAuth.GetAuthURL(state), http.StatusFound)
}

// Callback finishes the authorization code flow started by [API.SpotifyLogin].
func (a *API) Callback(w http.ResponseWriter, r *http.Request) {
	if a.OAuth == nil {
		a.respondErr(w, shared.ErrServiceUnavailable, "Spotify is not configured")
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Authorization failed: %s", e))
		return
	}

	code := q.Get("code")
	if code == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	sess := session(r)
	if want := sess.Data[stateKey]; want != "" && q.Get("state") != want {
		RespondWithError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}
	delete(sess.Data, stateKey)

	if !a.OAuth.ExchangeCode(r.Context(), code, sess.Data) {
		RespondWithError(w, http.StatusBadRequest, "Failed to get access token")
		return
	}

	if err := a.Sessions.Save(sess.ID, sess.Data); err != nil {
		a.respondErr(w, err, "Failed to save session")
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// SpotifyLogout drops the session's token.
func (a *API) SpotifyLogout(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	services.ClearToken(sess.Data)
	delete(sess.Data, stateKey)

	if err := a.Sessions.Save(sess.ID, sess.Data); err != nil {
		a.respondErr(w, err, "Failed to save session")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": statusSuccess, "message": "Logged out of Spotify"})
}

// SpotifyPlaylists lists the current user's own playlists.
func (a *API) SpotifyPlaylists(w http.ResponseWriter, r *http.Request) {
	client, err := a.Clients(r.Context(), credentials(session(r)))
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			a.respondErr(w, err, "Not authenticated with Spotify")
			return
		}
		a.respondErr(w, err, "Failed to create Spotify client")
		return
	}

	user, err := client.CurrentUser(r.Context())
	if err != nil {
		a.respondErr(w, err, "Failed to fetch Spotify playlists")
		return
	}

	playlists, err := client.ListPlaylists(r.Context(), user.ID)
	if err != nil {
		a.respondErr(w, err, "Failed to fetch Spotify playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{"status": statusSuccess, "playlists": playlists})
}

// StoredPlaylists lists the CSV keys in the bucket.
func (a *API) StoredPlaylists(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		a.respondErr(w, shared.ErrServiceUnavailable, "Blob store is not configured")
		return
	}

	keys := a.Store.List(r.Context(), a.Bucket)
	if keys == nil {
		keys = []string{}
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"status": statusSuccess, "playlists": keys})
}

// StoredPlaylist returns the rows of one stored CSV.
func (a *API) StoredPlaylist(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		a.respondErr(w, shared.ErrServiceUnavailable, "Blob store is not configured")
		return
	}

	key := r.PathValue("name")
	data, ok := a.Store.Get(r.Context(), a.Bucket, key)
	if !ok {
		RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Playlist %s not found", key))
		return
	}

	rows, err := formatter.DecodeRows(data)
	if err != nil {
		a.respondErr(w, err, fmt.Sprintf("Failed to read %s", key))
		return
	}

	views := make([]rowView, 0, len(rows))
	for _, row := range rows {
		v := rowView{Artist: row.ArtistName, Song: row.SongName}
		if row.Time != nil {
			v.Time = row.Time.Format(formatter.TimeLayout)
		}
		views = append(views, v)
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"status": statusSuccess,
		"name":   formatter.PlaylistName(key),
		"rows":   views,
	})
}

// Scrape runs the scrape job in the foreground.
func (a *API) Scrape(w http.ResponseWriter, r *http.Request) {
	if a.Scraper == nil {
		a.respondErr(w, shared.ErrServiceUnavailable, "Scraper is not configured")
		return
	}

	keys, err := a.Scraper.Run(r.Context())
	if err != nil {
		a.respondErr(w, err, fmt.Sprintf("Scrape failed: %v", err))
		return
	}
	if keys == nil {
		keys = []string{}
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"status": statusSuccess, "uploaded": keys})
}
