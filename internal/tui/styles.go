// Package tui renders transfer progress and run summaries in the terminal.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rshade/splairdrop/internal/engine"
)

// Terminal colors.
const (
	colorTitle   = lipgloss.Color("12")
	colorSuccess = lipgloss.Color("10")
	colorFailure = lipgloss.Color("9")
	colorSkipped = lipgloss.Color("11")
	colorMuted   = lipgloss.Color("8")
)

// defaultWidth is used when the terminal size cannot be read.
const defaultWidth = 80

// Shared styles.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	FailureStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFailure)
	SkippedStyle = lipgloss.NewStyle().Foreground(colorSkipped)
	MutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	BoxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

// StatusStyle returns the style used for outcomes with status s.
func StatusStyle(s engine.Status) lipgloss.Style {
	switch s {
	case engine.StatusSuccess:
		return SuccessStyle
	case engine.StatusFailure:
		return FailureStyle
	case engine.StatusSkipped:
		return SkippedStyle
	default:
		return MutedStyle
	}
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or defaultWidth when it is not a terminal.
func TerminalWidth(f *os.File) int {
	if !IsTTY(f) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}
