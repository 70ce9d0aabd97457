package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/radiotx/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgTick
	MsgRunFinished
)

type playlistsFetched struct {
	playlists []models.Playlist
	err       error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// tickMsg is the constructor for [MsgTick], sent on every registry poll.
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}

// runFinishedMsg is the constructor for [MsgRunFinished]
func runFinishedMsg(err error) Msg {
	return Msg{kind: MsgRunFinished, data: err}
}
