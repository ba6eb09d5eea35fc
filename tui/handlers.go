// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/internal/ui"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/playback"
)

const requestTimeout = 30 * time.Second

type (
	booksLoadedMsg []api.Book

	bookLoadedMsg struct {
		book       api.Book
		characters []api.Character
	}

	// chapterLoadedMsg carries chapter text. followed is set when the player
	// moved to the chapter on its own and must not be told again.
	chapterLoadedMsg struct {
		chapter  api.Chapter
		followed bool
	}

	snapshotMsg playback.Snapshot

	voiceSetMsg struct {
		character string
		voice     string
	}
)

func (b *statefulBubble) loadBooks() tea.Cmd {
	b.progressStatus = "Loading library..."
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		books, err := b.app.Client.Books(ctx)
		if err != nil {
			return fmt.Errorf("load library: %w", err)
		}
		return booksLoadedMsg(books)
	}
}

func (b *statefulBubble) loadBook(bookID string) tea.Cmd {
	b.progressStatus = "Loading book..."
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		book, err := b.app.Client.Book(ctx, bookID)
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}

		characters, err := b.app.Client.Characters(ctx, bookID)
		if err != nil {
			log.Warnf("load characters of %s: %s", bookID, err)
		}

		return bookLoadedMsg{book: book, characters: characters}
	}
}

func (b *statefulBubble) loadChapter(bookID string, number int, followed bool) tea.Cmd {
	b.progressStatus = fmt.Sprintf("Loading chapter %d...", number)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		chapter, err := b.app.Client.Chapter(ctx, bookID, number)
		if err != nil {
			return fmt.Errorf("load chapter %d: %w", number, err)
		}
		return chapterLoadedMsg{chapter: chapter, followed: followed}
	}
}

func (b *statefulBubble) setVoice(character api.Character, voiceID string) tea.Cmd {
	bookID := b.selectedBook.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := b.app.SetVoice(ctx, bookID, character.Name, voiceID); err != nil {
			return fmt.Sprintf("Failed to set voice: %s", err)
		}
		return voiceSetMsg{character: character.Name, voice: voiceID}
	}
}

// waitForSnapshot delivers the next playback state. It is reissued after every delivery.
func (b *statefulBubble) waitForSnapshot() tea.Cmd {
	sub := b.sub
	return func() tea.Msg {
		snap, ok := <-sub.C()
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (b *statefulBubble) loadHistory() (tea.Cmd, error) {
	entries, err := history.Sorted()
	if err != nil {
		return nil, err
	}

	items := lo.Map(entries, func(e *history.Entry, _ int) list.Item {
		return &listItem{internal: e}
	})

	return b.historyC.SetItems(items), nil
}

// openChapter shows the reader for a chapter of the selected book and points the player at it.
func (b *statefulBubble) openChapter(chapter api.Chapter, followed bool) tea.Cmd {
	b.chapter = &chapter
	b.textC.SetContent(b.renderChapterText(chapter.Text))
	b.textC.GotoTop()

	b.stopLoading()
	if b.state == loadingState {
		b.previousState()
	}
	b.newState(readerState)

	if followed {
		return nil
	}

	target := b.app.Target(b.selectedBook.ID, chapter.Number)
	if chapter.Title != "" {
		target.Title = chapter.Title
	}

	if viper.GetBool(key.PlayerAutoplay) {
		return b.control(func() error { return b.app.Controller.LoadAndPlay(target) })
	}
	return b.control(func() error { return b.app.Controller.Target(target) })
}

// leaveReader unmounts the player.
func (b *statefulBubble) leaveReader() tea.Cmd {
	b.chapter = nil
	return b.control(b.app.Controller.Stop)
}

func (b *statefulBubble) adjacentChapter(next bool) tea.Cmd {
	if b.chapter == nil {
		return nil
	}

	current := playback.Target{BookID: b.selectedBook.ID, Chapter: b.chapter.Number}
	var (
		target playback.Target
		ok     bool
	)
	if next {
		target, ok = b.app.Next(current)
	} else {
		target, ok = b.app.Previous(current)
	}
	if !ok {
		if next {
			return ui.Notify("Last chapter")
		}
		return ui.Notify("First chapter")
	}

	return tea.Batch(b.startLoading(), b.loadChapter(target.BookID, target.Chapter, false))
}

func (b *statefulBubble) renderChapterText(text string) string {
	if !viper.GetBool(key.TUIShowChapterText) {
		return ""
	}

	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	return wrapParagraphs(paragraphs, b.textC.Width)
}
