package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/tasks"
	"github.com/desertthunder/radiotx/internal/ui"
)

const tuiLogPath = "./tmp/radiotx-tui.log"

// runTask runs job under taskID and reports its final record.
//
// Plain mode runs in the foreground and logs; otherwise a progress bar polls the registry.
// Call [Runner.useFileLogger] before building the job's engine so its logs stay off the terminal.
func (r *Runner) runTask(ctx context.Context, registry *tasks.Registry, taskID, title string, plain bool, job tasks.Job) error {
	if plain {
		err := job(ctx)
		rec, _ := registry.Get(taskID)
		r.writePlain("[%s] %s\n", rec.Status, rec.Message)
		return err
	}

	model := ui.NewProgressModel(ctx, registry, taskID, title, job)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	r.writePlain("%s\n", model.Summary())
	return model.Err()
}

// runPicker runs the interactive merge picker.
func (r *Runner) runPicker(model *ui.Model) error {
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if p := model.Progress(); p != nil {
		r.writePlain("%s\n", p.Summary())
	}
	return model.Err()
}

// useFileLogger redirects logs to a file so they don't tear the rendered view.
// It is a no-op in plain mode. The returned func restores the previous logger.
func (r *Runner) useFileLogger(plain bool) (func(), error) {
	if plain {
		return func() {}, nil
	}
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())

	prev := r.logger
	r.SetLogger(fileLogger)
	return func() { r.SetLogger(prev) }, nil
}
