// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"github.com/voicepages/voicepages/color"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/util"
)

var (
	listExtraPaddingStyle = lipgloss.NewStyle().Padding(1, 2, 1, 0)
	paddingStyle          = lipgloss.NewStyle().Padding(1, 2)
)

const (
	// icon, two timestamps, speed and volume around the progress bar
	playerBarReserved = 36
	// title, two blank lines, player bar, status line and help
	readerChromeHeight = 6
)

func (b *statefulBubble) View() string {
	var output string

	switch b.state {
	case loadingState:
		output = b.viewLoading()
	case historyState:
		output = b.viewHistory()
	case libraryState:
		output = b.viewLibrary()
	case bookState:
		output = b.viewBook()
	case readerState:
		output = b.viewReader()
	case errorState:
		output = b.viewError()
	default:
		output = "Unknown state"
	}

	return b.notifier.View(output)
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines(
		true,
		[]string{
			style.Title("Loading"),
			"",
			b.spinnerC.View() + " " + b.progressStatus,
		},
	)
}

func (b *statefulBubble) viewHistory() string {
	return listExtraPaddingStyle.Render(b.historyC.View())
}

func (b *statefulBubble) viewLibrary() string {
	return listExtraPaddingStyle.Render(b.booksC.View())
}

func (b *statefulBubble) viewBook() string {
	if b.tab == charactersTab {
		return listExtraPaddingStyle.Render(b.charactersC.View())
	}
	return listExtraPaddingStyle.Render(b.chaptersC.View())
}

func (b *statefulBubble) viewReader() string {
	var title string
	if b.chapter != nil {
		title = b.chapter.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", b.chapter.Number)
		}
	}

	header := style.Title(b.selectedBook.Title)
	if title != "" {
		header += " " + style.Fg(color.Purple)(title)
	}

	status := ""
	if b.loading {
		status = b.spinnerC.View() + " " + b.progressStatus
	} else if b.player.Err != "" {
		status = lipgloss.NewStyle().Foreground(style.ErrorColor).Render(icon.Get(icon.Fail) + " " + b.player.Err)
	}

	return paddingStyle.Render(strings.Join([]string{
		style.Truncate(b.width)(header),
		"",
		b.textC.View(),
		"",
		b.viewPlayerBar(),
		style.Truncate(b.width)(status),
		b.helpC.View(b.keymap),
	}, "\n"))
}

// viewPlayerBar renders the transport state of the controller.
func (b *statefulBubble) viewPlayerBar() string {
	snap := b.player

	var state string
	switch snap.Status {
	case playback.StatusLoading:
		state = b.spinnerC.View()
	case playback.StatusPlaying:
		state = icon.Get(icon.Play)
	case playback.StatusPaused:
		state = icon.Get(icon.Pause)
	default:
		state = icon.Get(icon.Stop)
	}

	return fmt.Sprintf("%s %s %s %s  %s",
		state,
		style.Faint(util.FormatSeconds(snap.Position)),
		b.progressC.ViewAs(snap.Fraction()),
		style.Faint(util.FormatSeconds(snap.Duration)),
		playerSettings(snap),
	)
}

func playerSettings(snap playback.Snapshot) string {
	return fmt.Sprintf("%s %sx %s %d%%",
		icon.Get(icon.Speed), strconv.FormatFloat(snap.Speed, 'f', -1, 64),
		icon.Get(icon.Volume), int(snap.Volume*100+0.5),
	)
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	errorBody := errorStyle.Render(b.lastError.Error())
	errorMsg := wrap.String(errorBody, b.width)
	return b.renderLines(
		true,
		append([]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " An error occurred:",
			"",
		},
			errorMsg,
		),
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}

// wrapParagraphs word-wraps each paragraph to width, hard-wrapping words longer than a line.
func wrapParagraphs(paragraphs []string, width int) string {
	if width <= 0 {
		return strings.Join(paragraphs, "\n\n")
	}

	wrapped := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		wrapped = append(wrapped, wrap.String(wordwrap.String(p, width), width))
	}
	return strings.Join(wrapped, "\n\n")
}
