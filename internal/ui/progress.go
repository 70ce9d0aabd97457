package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/tasks"
)

const pollInterval = 100 * time.Millisecond

// ProgressModel runs one task and renders its registry record until the task settles.
type ProgressModel struct {
	ctx      context.Context
	registry *tasks.Registry
	taskID   string
	title    string
	run      tasks.Job
	bar      progress.Model
	record   models.TaskRecord
	started  bool
	finished bool
	err      error
	help     help.Model
	keys     keyMap
}

// NewProgressModel creates a view that starts run on Init and polls taskID in registry.
func NewProgressModel(ctx context.Context, registry *tasks.Registry, taskID, title string, run tasks.Job) *ProgressModel {
	return &ProgressModel{
		ctx:      ctx,
		registry: registry,
		taskID:   taskID,
		title:    title,
		run:      run,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		record:   models.TaskRecord{Status: models.TaskProcessing, Message: "Initializing..."},
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

func (m *ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.start(), m.tick())
}

func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-8, 10), 80)
	case Msg:
		switch msg.kind {
		case MsgTick:
			m.poll()
			if m.finished {
				return m, tea.Quit
			}
			return m, m.tick()
		case MsgRunFinished:
			m.finished = true
			m.err, _ = msg.data.(error)
			m.poll()
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(float64(m.record.Progress) / 100))
	b.WriteString("\n\n")
	b.WriteString(styles.Status(m.record.Status).Render(m.record.Message))
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

// Record returns the last polled record.
func (m *ProgressModel) Record() models.TaskRecord {
	return m.record
}

// Err returns the run's error once it has finished.
func (m *ProgressModel) Err() error {
	return m.err
}

// Summary is the line printed after the program exits.
func (m *ProgressModel) Summary() string {
	return styles.Status(m.record.Status).Render(fmt.Sprintf("[%s] %s", m.record.Status, m.record.Message))
}

func (m *ProgressModel) poll() {
	if rec, ok := m.registry.Get(m.taskID); ok {
		m.record = rec
	}
}

func (m *ProgressModel) start() tea.Cmd {
	if m.started {
		return nil
	}
	m.started = true
	return func() tea.Msg {
		return runFinishedMsg(m.run(m.ctx))
	}
}

func (m *ProgressModel) tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg() })
}
