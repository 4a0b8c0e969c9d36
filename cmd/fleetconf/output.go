package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// marks renders the result markers of per-item output lines. Colors are only
// emitted when the writer is a terminal.
type marks struct {
	ok   string
	fail string
	skip string
}

func newMarks(w io.Writer) marks {
	r := lipgloss.NewRenderer(w)
	return marks{
		ok:   r.NewStyle().Foreground(lipgloss.Color("46")).Render("✓"),
		fail: r.NewStyle().Foreground(lipgloss.Color("196")).Render("✗"),
		skip: r.NewStyle().Foreground(lipgloss.Color("240")).Render("-"),
	}
}
