// Package tui provides the primary terminal user interface implementation.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/internal/ui"
)

// Init triggers the initial data loads.
func (b *statefulBubble) Init() tea.Cmd {
	cmds := []tea.Cmd{b.waitForSnapshot(), b.loadBooks()}

	switch {
	case b.options.Continue:
		last, err := history.Last()
		if err != nil {
			b.raiseError(err)
			return tea.Batch(cmds...)
		}
		if entry, ok := last.Get(); ok {
			b.resumeChapter = entry.Chapter
			b.newState(loadingState)
			cmds = append(cmds, b.startLoading(), b.loadBook(entry.BookID))
			return tea.Batch(cmds...)
		}
		cmds = append(cmds, ui.Notify("Nothing to continue"))
	case b.options.BookID != "":
		b.newState(loadingState)
		cmds = append(cmds, b.startLoading(), b.loadBook(b.options.BookID))
		return tea.Batch(cmds...)
	case b.options.History:
		cmd, err := b.loadHistory()
		if err != nil {
			b.raiseError(err)
			return tea.Batch(cmds...)
		}
		b.newState(historyState)
		cmds = append(cmds, cmd)
		return tea.Batch(cmds...)
	}

	return tea.Batch(append(cmds, b.startLoading())...)
}
