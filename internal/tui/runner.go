package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/render"
	"github.com/Geun-Oh/accelx/internal/window"
)

// Subscriber registers the TUI as a renderer.
type Subscriber interface {
	Subscribe(r render.Renderer) (string, func())
}

// RunConfig holds configuration for the TUI.
type RunConfig struct {
	Controls Controls
	Hub      Subscriber
	Title    string
	Initial  core.Status
	Options  []tea.ProgramOption
}

// programRenderer forwards hub updates into the bubbletea event loop, so
// the model is only ever touched by the program goroutine.
type programRenderer struct {
	p *tea.Program
}

func (r programRenderer) OnWindowUpdate(f window.Frame) { r.p.Send(WindowMsg(f)) }
func (r programRenderer) OnAppend(d window.Delta)       { r.p.Send(AppendMsg(d)) }
func (r programRenderer) OnStatusChange(s core.Status)  { r.p.Send(StatusMsg(s)) }

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg *RunConfig) error {
	if cfg.Hub == nil {
		return fmt.Errorf("tui: hub is required")
	}

	model := NewModel(cfg.Controls, cfg.Title)
	model.status = cfg.Initial

	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, cfg.Options...)
	program := tea.NewProgram(model, opts...)

	_, cancel := cfg.Hub.Subscribe(programRenderer{p: program})
	defer cancel()

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
