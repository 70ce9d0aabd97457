// Spotify Web API implementation of [PlaylistService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxTracksPerRequest is the add-items limit of the playlist tracks endpoint.
	MaxTracksPerRequest = 100
)

// SpotifyScopes are requested at authorization time.
var SpotifyScopes = []string{"playlist-modify-public", "playlist-modify-private", "playlist-read-private"}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   *SpotifyAlbum   `json:"album"`
	URI     string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Owner         Owner               `json:"owner"`
	Public        bool                `json:"public"`
	Collaborative bool                `json:"collaborative"`
	Tracks        simplePlaylistTrack `json:"tracks"`
	Images        []SpotifyImage      `json:"images"`
	Href          string              `json:"href"`
	ExternalURLs  externalURLs        `json:"external_urls"`
	SnapshotID    string              `json:"snapshot_id"`
	URI           string              `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed tracks.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks is one page of a playlist's items.
type SpotifyPaginatedPlaylistTracks struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Total int                    `json:"total"`
	Next  *string                `json:"next"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// ToModel projects the playlist into [models.Playlist].
func (p SpotifySimplePlaylist) ToModel() models.Playlist {
	images := make([]models.Image, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}
	return models.Playlist{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Public:        p.Public,
		Collaborative: p.Collaborative,
		TrackCount:    p.Tracks.Total,
		Owner:         p.Owner.DisplayName,
		OwnerID:       p.Owner.ID,
		Href:          p.Href,
		ExternalURL:   p.ExternalURLs.Spotify,
		Images:        images,
		SnapshotID:    p.SnapshotID,
	}
}

// ToModel projects the track into [models.Track].
func (t SpotifyTrack) ToModel() models.Track {
	track := models.Track{ID: t.ID, Name: t.Name, URI: t.URI}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if t.Album != nil {
		track.Album = t.Album.Name
	}
	return track
}

// SpotifyService implements [PlaylistService] against the Spotify Web API.
//
// The access token lives in a [Session]; it is refreshed lazily, just before a request,
// whenever it is within 60 seconds of expiring.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *log.Logger
	now        func() time.Time

	mu        sync.Mutex
	session   Session
	cache     *TokenCache
	onRefresh func(Session)
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithHTTPClient replaces the HTTP client used for API and token requests.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) SpotifyOption {
	return func(s *SpotifyService) {
		if d > 0 {
			s.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithAccountsURL points authorization and token exchange at a different accounts host.
func WithAccountsURL(u string) SpotifyOption {
	return func(s *SpotifyService) {
		u = strings.TrimRight(u, "/")
		s.config.Endpoint.AuthURL = u + "/authorize"
		s.config.Endpoint.TokenURL = u + "/api/token"
	}
}

// WithRateLimit throttles outgoing API calls to rps requests per second. Zero disables throttling.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) SpotifyOption {
	return func(s *SpotifyService) { s.now = now }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8001/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    spotifyBaseURL,
		logger:     shared.NewLogger(nil),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("service", s.Name())
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode trades an authorization code for a token and caches it in session.
//
// Failures are logged, never returned.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string, session Session) bool {
	if code == "" {
		s.logger.Error("authorization code is empty")
		return false
	}
	if session == nil {
		s.logger.Error("no session to store the token in")
		return false
	}

	tok, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		s.logger.Error("failed to exchange authorization code", "error", err)
		return false
	}

	NewTokenCache(session).Save(tok)
	s.logger.Info("saved access token")
	return true
}

// Authenticate binds the client to session. The session is mutated when the token is refreshed.
func (s *SpotifyService) Authenticate(session Session) error {
	if _, ok := NewTokenCache(session).Get(); !ok {
		return shared.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.cache = NewTokenCache(session)
	return nil
}

// SetTokenRefreshCallback registers fn to receive a copy of the session after each refresh.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// accessToken returns a live access token, refreshing it first when it is about to expire.
func (s *SpotifyService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil {
		return "", shared.ErrNotAuthenticated
	}
	tok, ok := s.cache.Get()
	if !ok {
		return "", shared.ErrNotAuthenticated
	}
	if tok.AccessToken != "" && !s.session.Expired(s.now()) {
		return tok.AccessToken, nil
	}
	if tok.RefreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	s.logger.Info("refreshing access token")
	fresh, err := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	s.cache.Save(fresh)
	if s.onRefresh != nil {
		s.onRefresh(s.session.Clone())
	}
	return fresh.AccessToken, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// endpoint is either a path below the API root or an absolute URL (pagination cursors).
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func responseError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	var apiErr apiError
	if data, err := io.ReadAll(resp.Body); err == nil && json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchTrack searches with the query "<title> artist:<artist>" and returns the first hit's URI.
func (s *SpotifyService) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s artist:%s", title, artist))
	q.Set("type", "track")
	q.Set("limit", "1")

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &response); err != nil {
		return "", err
	}

	s.logger.Debug("searched for track", "query", q.Get("q"), "results", len(response.Tracks.Items))
	if len(response.Tracks.Items) == 0 {
		return "", nil
	}
	return response.Tracks.Items[0].URI, nil
}

// CreatePlaylist creates a private playlist.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, name string) (string, error) {
	body := map[string]any{"name": name, "public": false}

	var playlist SpotifySimplePlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(ownerID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return "", err
	}
	if playlist.ID == "" {
		return "", fmt.Errorf("%w: playlist created without an id", shared.ErrAPIRequest)
	}
	return playlist.ID, nil
}

// ListTracks follows the pagination cursor and skips items whose track has been removed.
func (s *SpotifyService) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	tracks := []models.Track{}
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))

	for endpoint != "" {
		var page SpotifyPaginatedPlaylistTracks
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, item.Track.ToModel())
		}

		endpoint = ""
		if page.Next != nil {
			endpoint = *page.Next
		}
	}

	s.logger.Info("retrieved playlist tracks", "playlist", playlistID, "count", len(tracks))
	return tracks, nil
}

// AddTracks appends uris in sequential batches of at most [MaxTracksPerRequest].
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(uris); start += MaxTracksPerRequest {
		end := min(start+MaxTracksPerRequest, len(uris))
		body := map[string]any{"uris": uris[start:end]}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// UnfollowPlaylist removes the playlist from the current user's library, which is how Spotify deletes playlists.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// ListPlaylists retrieves every playlist of ownerID, following the pagination cursor.
func (s *SpotifyService) ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	endpoint := fmt.Sprintf("/users/%s/playlists?limit=50", url.PathEscape(ownerID))

	for endpoint != "" {
		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			playlists = append(playlists, item.ToModel())
		}

		endpoint = ""
		if page.Next != nil {
			endpoint = *page.Next
		}
	}

	s.logger.Info("retrieved playlists", "user", ownerID, "count", len(playlists))
	return playlists, nil
}
