package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SourceListView ViewState = iota
	TargetListView
	ConfirmView
	MergeView
)

// MergeStarter builds the job that merges source into target under taskID.
type MergeStarter func(taskID, sourceID, targetID string) tasks.Job

// Model is the interactive merge picker: choose a source, then a target, confirm, watch progress.
type Model struct {
	ctx       context.Context
	view      ViewState
	client    services.PlaylistService
	registry  *tasks.Registry
	newTaskID func() string
	start     MergeStarter
	width     int
	height    int
	lists     list.Model
	playlists []models.Playlist
	source    *models.Playlist
	target    *models.Playlist
	progress  *ProgressModel
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a picker listing the current user's playlists through client.
func NewModel(
	ctx context.Context,
	client services.PlaylistService,
	registry *tasks.Registry,
	newTaskID func() string,
	start MergeStarter,
) *Model {
	return &Model{
		ctx:       ctx,
		view:      SourceListView,
		client:    client,
		registry:  registry,
		newTaskID: newTaskID,
		start:     start,
		lists:     list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init fetches the playlists to choose from.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view == MergeView {
		_, cmd := m.progress.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.lists.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.lists.FilterState() == list.Filtering {
			break
		}
		switch m.view {
		case SourceListView, TargetListView:
			return m.handleListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		if msg.kind == MsgPlaylistsFetched {
			res := msg.data.(playlistsFetched)
			if res.err != nil {
				m.err = res.err
				return m, tea.Quit
			}
			m.playlists = res.playlists
			m.showList("Merge from (source)", "")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.lists, cmd = m.lists.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case SourceListView, TargetListView:
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", m.lists.View(), helpView)
	case ConfirmView:
		return m.renderConfirm()
	case MergeView:
		return m.progress.View()
	default:
		return ""
	}
}

// Err returns the error that ended the program, from fetching or from the merge itself.
func (m *Model) Err() error {
	if m.err != nil {
		return m.err
	}
	if m.progress != nil {
		return m.progress.Err()
	}
	return nil
}

// Progress returns the merge view once a merge has been confirmed.
func (m *Model) Progress() *ProgressModel {
	return m.progress
}

func (m *Model) showList(title, skip string) {
	m.lists.SetItems(playlistItems(m.playlists, skip))
	m.lists.Title = title
	m.lists.ResetSelected()
	if m.width > 0 {
		m.lists.SetSize(m.width-4, m.height-8)
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.view == TargetListView {
			m.view = SourceListView
			m.source = nil
			m.showList("Merge from (source)", "")
			return m, nil
		}
	case key.Matches(msg, m.keys.enter):
		item, ok := m.lists.SelectedItem().(playlistItem)
		if !ok {
			return m, nil
		}
		pl := item.playlist
		if m.view == SourceListView {
			m.source = &pl
			m.view = TargetListView
			m.showList(fmt.Sprintf("Merge '%s' into (target)", pl.Name), pl.ID)
			return m, nil
		}
		m.target = &pl
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.lists, cmd = m.lists.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = TargetListView
		m.target = nil
		return m, nil
	case key.Matches(msg, m.keys.yes):
		taskID := m.newTaskID()
		title := fmt.Sprintf("Merging '%s' into '%s'", m.source.Name, m.target.Name)
		m.progress = NewProgressModel(m.ctx, m.registry, taskID, title, m.start(taskID, m.source.ID, m.target.ID))
		m.view = MergeView
		return m, m.progress.Init()
	}
	return m, nil
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Merge '%s' into '%s'?", m.source.Name, m.target.Name))
	info := fmt.Sprintf(
		"\nSource: %s (%d tracks)\nTarget: %s (%d tracks)\n\n%s\n",
		m.source.Name, m.source.TrackCount,
		m.target.Name, m.target.TrackCount,
		styles.warn.Render("The source playlist is deleted after its tracks are copied."),
	)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		user, err := m.client.CurrentUser(m.ctx)
		if err != nil {
			return playlistsFetchedMsg(nil, err)
		}
		playlists, err := m.client.ListPlaylists(m.ctx, user.ID)
		return playlistsFetchedMsg(playlists, err)
	}
}
