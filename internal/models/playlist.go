package models

import "time"

// ScrapedRow is one play scraped from a station page. Time is nil when the page had none.
type ScrapedRow struct {
	Time       *time.Time
	ArtistName string
	SongName   string
}

// Track is a resolved Spotify track. URI is its identity.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	URI    string `json:"uri"`
	Album  string `json:"album"`
}

// Image is a playlist cover image.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Playlist is a read-only projection of a remote playlist.
type Playlist struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Public        bool    `json:"public"`
	Collaborative bool    `json:"collaborative"`
	TrackCount    int     `json:"tracks_total"`
	Owner         string  `json:"owner"`
	OwnerID       string  `json:"owner_id"`
	Href          string  `json:"href"`
	ExternalURL   string  `json:"external_url"`
	Images        []Image `json:"images"`
	SnapshotID    string  `json:"snapshot_id"`
}
