// Package tui provides the primary terminal user interface implementation.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/voicepages/voicepages/app"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	// Continue resumes the most recently heard chapter.
	Continue bool
	// History opens the listening history instead of the library.
	History bool
	// BookID opens a book directly.
	BookID string
}

// Run initializes and executes the primary Bubble Tea application loop.
func Run(a *app.App, options *Options) error {
	bubble := newBubble(a, options)
	defer bubble.close()

	_, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	return err
}
