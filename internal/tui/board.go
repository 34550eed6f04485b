package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"habitforge/internal/engine"
)

// RunBoard opens the interactive habit board for userID.
func RunBoard(ctx context.Context, svc *engine.Service, userID string, out io.Writer) error {
	m := newBoardModel(ctx, svc, userID)
	p := tea.NewProgram(m, tea.WithOutput(out))
	_, err := p.Run()
	return err
}
