// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/util"
)

// listItem implements the list.Item interface, wrapping various domain models for terminal display.
type listItem struct {
	internal interface{}
	marked   bool
}

func (t *listItem) getMark() string {
	switch t.internal.(type) {
	case api.ChapterSummary:
		return lipgloss.NewStyle().Bold(true).Foreground(style.AccentColor).Render(icon.Get(icon.Play))
	case api.Character:
		return icon.Get(icon.Voice)
	default:
		return ""
	}
}

// Title retrieves the primary display text for the list item.
func (t *listItem) Title() (title string) {
	switch e := t.internal.(type) {
	case api.Book:
		title = e.Title
	case api.ChapterSummary:
		title = chapterTitle(e)
	case api.Character:
		title = e.Name
		if e.IsNarrator {
			title += " " + style.Faint("(narrator)")
		}
	case *history.Entry:
		title = e.BookTitle
		if title == "" {
			title = e.BookID
		}
	default:
		title = t.FilterValue()
	}

	if title != "" && t.marked {
		title = fmt.Sprintf("%s %s", title, t.getMark())
	}

	return
}

// Description retrieves the secondary metadata for the list item.
func (t *listItem) Description() (description string) {
	switch e := t.internal.(type) {
	case api.Book:
		var parts []string
		if e.Author != "" {
			parts = append(parts, lipgloss.NewStyle().Foreground(style.Subtext).Render(e.Author))
		}
		if e.ChapterCount > 0 {
			parts = append(parts, lipgloss.NewStyle().Foreground(style.FaintColor).Render(util.Quantify(e.ChapterCount, "chapter", "chapters")))
		}
		if e.FileType != "" {
			parts = append(parts, lipgloss.NewStyle().Foreground(style.FaintColor).Render(strings.ToUpper(e.FileType)))
		}
		description = strings.Join(parts, " • ")
	case api.Character:
		voice := e.VoiceID
		if voice == "" {
			voice = api.DefaultVoice
		}
		var parts []string
		if e.Gender != "" {
			parts = append(parts, e.Gender)
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(style.AccentColor).Render(voice))
		description = strings.Join(parts, " • ")
	case *history.Entry:
		progress := lipgloss.NewStyle().Foreground(style.Yellow).Render(util.FormatSeconds(e.Position))
		if e.Finished() {
			progress = lipgloss.NewStyle().Foreground(style.Green).Render("finished")
		}
		description = fmt.Sprintf("Chapter %d : %s • %s", e.Chapter, progress, humanize.Time(e.UpdatedAt))
	}

	return
}

// FilterValue returns the string used for real-time list filtering and searching.
func (t *listItem) FilterValue() string {
	switch e := t.internal.(type) {
	case api.Book:
		return e.Title + " " + e.Author
	case api.ChapterSummary:
		return chapterTitle(e)
	case api.Character:
		return e.Name
	case *history.Entry:
		return e.BookTitle
	case string:
		return e
	default:
		return ""
	}
}

func chapterTitle(c api.ChapterSummary) string {
	if c.Title == "" {
		return fmt.Sprintf("Chapter %d", c.Number)
	}
	return fmt.Sprintf("%d. %s", c.Number, c.Title)
}
