// package services defines interface PlaylistService for interacting with the music streaming HTTP API
package services

import (
	"context"

	"github.com/desertthunder/radiotx/internal/models"
)

// PlaylistService is the set of music service operations the sync and merge engines drive.
type PlaylistService interface {
	// CurrentUser returns the authenticated user's profile; the ID owns created playlists.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// SearchTrack returns the URI of the best match for title by artist.
	// An empty URI with a nil error means nothing matched.
	SearchTrack(ctx context.Context, artist, title string) (string, error)

	// CreatePlaylist creates a private playlist owned by ownerID and returns its ID.
	CreatePlaylist(ctx context.Context, ownerID, name string) (string, error)

	// ListTracks returns every track of a playlist in playlist order.
	ListTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// AddTracks appends uris to a playlist.
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// UnfollowPlaylist removes a playlist from the user's library.
	UnfollowPlaylist(ctx context.Context, playlistID string) error

	// ListPlaylists returns every playlist of ownerID.
	ListPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error)
}

// OAuthService is implemented by services that authenticate through an OAuth redirect.
type OAuthService interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string, session Session) bool
}

var (
	_ PlaylistService = (*SpotifyService)(nil)
	_ OAuthService    = (*SpotifyService)(nil)
)
