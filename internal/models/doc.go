// Package models defines domain entities and persistence interfaces for the radiotx service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: lightweight structs describing scraped and remote data
//   - [ScrapedRow] : one play from a station page (time, artist, song)
//   - [Track] : a Spotify track resolved to its URI
//   - [Playlist] : read-only projection of a Spotify playlist
//   - [TaskRecord] : progress snapshot of one background task
//
// 2. Persistent Entities: database-backed models
//   - [Session] : OAuth credentials keyed by the HTTP session cookie
//
// Persistent entities implement the [Model] interface; [Repository] defines CRUD access.
package models
