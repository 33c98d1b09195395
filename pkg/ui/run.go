package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	if opts.Workspace == nil {
		return errors.New("ui: workspace is nil")
	}
	m := NewModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run tui")
	}
	return nil
}
