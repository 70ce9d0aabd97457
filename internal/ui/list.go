package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/radiotx/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// playlistItems converts playlists, leaving out the one with id skip.
func playlistItems(playlists []models.Playlist, skip string) []list.Item {
	items := make([]list.Item, 0, len(playlists))
	for _, pl := range playlists {
		if pl.ID == skip {
			continue
		}
		items = append(items, playlistItem{playlist: pl})
	}
	return items
}
