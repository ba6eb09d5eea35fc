// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/internal/ui"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/playback"
)

const (
	speedStep  = 0.25
	volumeStep = 0.1
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Ephemeral notifications are plain strings.
	if uiCmd := b.notifier.Update(msg); uiCmd != nil {
		cmd = tea.Batch(cmd, uiCmd)
	}

	switch msg := msg.(type) {
	case error:
		b.stopLoading()
		b.raiseError(msg)
		return b, cmd
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case snapshotMsg:
		return b, tea.Batch(cmd, b.onSnapshot(playback.Snapshot(msg)), b.waitForSnapshot())
	case booksLoadedMsg:
		items := lo.Map(msg, func(book api.Book, _ int) list.Item {
			return &listItem{internal: book}
		})
		if b.state != loadingState {
			b.stopLoading()
		}
		return b, tea.Batch(cmd, b.booksC.SetItems(items))
	case tea.KeyMsg:
		if bubblesKey.Matches(msg, b.keymap.forceQuit) {
			return b, tea.Quit
		}
	}

	switch b.state {
	case loadingState:
		return b.updateLoading(msg, cmd)
	case historyState:
		return b.updateHistory(msg, cmd)
	case libraryState:
		return b.updateLibrary(msg, cmd)
	case bookState:
		return b.updateBook(msg, cmd)
	case readerState:
		return b.updateReader(msg, cmd)
	case errorState:
		return b.updateError(msg, cmd)
	}

	return b, cmd
}

// onSnapshot follows the player when it moves to another chapter of the open book on its own.
func (b *statefulBubble) onSnapshot(snap playback.Snapshot) tea.Cmd {
	prev := b.player
	b.player = snap

	var cmds []tea.Cmd
	if snap.Err != "" && snap.Err != prev.Err {
		cmds = append(cmds, ui.Notify(snap.Err))
	}

	if b.state == readerState && b.chapter != nil &&
		snap.BookID == b.selectedBook.ID && snap.Chapter != b.chapter.Number &&
		snap.Status == playback.StatusLoading && prev.Chapter == b.chapter.Number {
		cmds = append(cmds, b.startLoading(), b.loadChapter(snap.BookID, snap.Chapter, true))
	}

	return tea.Batch(cmds...)
}

func (b *statefulBubble) updateLoading(msg tea.Msg, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if bubblesKey.Matches(msg, b.keymap.back) {
			b.stopLoading()
			b.resumeChapter = 0
			if b.statesHistory.Len() > 0 {
				b.previousState()
				return b, cmd
			}
			return b, tea.Quit
		}
	case bookLoadedMsg:
		return b.onBookLoaded(msg, cmd)
	case chapterLoadedMsg:
		return b, tea.Batch(cmd, b.openChapter(msg.chapter, msg.followed))
	}

	var spin tea.Cmd
	b.spinnerC, spin = b.spinnerC.Update(msg)
	return b, tea.Batch(cmd, spin)
}

func (b *statefulBubble) onBookLoaded(msg bookLoadedMsg, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	b.selectedBook = msg.book
	b.app.Book(msg.book)
	b.setBookTitle()
	b.tab = chaptersTab

	chapters := msg.book.Chapters
	if len(chapters) == 0 {
		for i := 1; i <= msg.book.ChapterCount; i++ {
			chapters = append(chapters, api.ChapterSummary{Number: i})
		}
	}

	chapterItems := lo.Map(chapters, func(c api.ChapterSummary, _ int) list.Item {
		return &listItem{internal: c, marked: b.player.BookID == msg.book.ID && b.player.Chapter == c.Number}
	})
	characterItems := lo.Map(msg.characters, func(c api.Character, _ int) list.Item {
		return &listItem{internal: c}
	})

	cmds := []tea.Cmd{cmd, b.chaptersC.SetItems(chapterItems), b.charactersC.SetItems(characterItems)}
	b.chaptersC.ResetSelected()

	// The book view sits under the reader so esc returns to it.
	b.previousState()
	b.newState(bookState)

	if resume := b.resumeChapter; resume > 0 {
		b.resumeChapter = 0
		if idx, ok := lo.Find(lo.Range(len(chapters)), func(i int) bool { return chapters[i].Number == resume }); ok {
			b.chaptersC.Select(idx)
		}
		b.newState(loadingState)
		return b, tea.Batch(append(cmds, b.loadChapter(msg.book.ID, resume, false))...)
	}

	b.stopLoading()
	return b, tea.Batch(cmds...)
}

func (b *statefulBubble) updateHistory(msg tea.Msg, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.remove):
			if b.historyC.SelectedItem() != nil {
				entry := b.historyC.SelectedItem().(*listItem).internal.(*history.Entry)
				if err := history.Remove(entry.BookID); err != nil {
					b.raiseError(err)
					return b, cmd
				}
				load, err := b.loadHistory()
				if err != nil {
					b.raiseError(err)
					return b, cmd
				}
				return b, tea.Batch(cmd, load)
			}
		case bubblesKey.Matches(msg, b.keymap.confirm):
			if b.historyC.SelectedItem() != nil {
				entry := b.historyC.SelectedItem().(*listItem).internal.(*history.Entry)
				b.resumeChapter = entry.Chapter
				b.newState(loadingState)
				return b, tea.Batch(cmd, b.startLoading(), b.loadBook(entry.BookID))
			}
		case bubblesKey.Matches(msg, b.keymap.back):
			if b.statesHistory.Len() == 0 {
				b.setState(libraryState)
				return b, cmd
			}
			b.previousState()
			return b, cmd
		}
	}

	var listCmd tea.Cmd
	b.historyC, listCmd = b.historyC.Update(msg)
	return b, tea.Batch(cmd, listCmd)
}

func (b *statefulBubble) updateLibrary(msg tea.Msg, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && b.booksC.FilterState() != list.Filtering {
		switch {
		case bubblesKey.Matches(msg, b.keymap.up):
			if n := len(b.booksC.Items()); n > 0 && b.booksC.Index() == 0 {
				b.booksC.Select(n - 1)
				return b, cmd
			}
		case bubblesKey.Matches(msg, b.keymap.down):
			if n := len(b.booksC.Items()); n > 0 && b.booksC.Index() == n-1 {
				b.booksC.Select(0)
				return b, cmd
			}
		case bubblesKey.Matches(msg, b.keymap.refresh):
			return b, tea.Batch(cmd, b.startLoading(), b.loadBooks())
		case bubblesKey.Matches(msg, b.keymap.history):
			load, err := b.loadHistory()
			if err != nil {
				b.raiseError(err)
				return b, cmd
			}
			b.newState(historyState)
			return b, tea.Batch(cmd, load)
		case bubblesKey.Matches(msg, b.keymap.confirm):
			if b.booksC.SelectedItem() == nil {
				break
			}
			book := b.booksC.SelectedItem().(*listItem).internal.(api.Book)
			b.newState(loadingState)
			return b, tea.Batch(cmd, b.startLoading(), b.loadBook(book.ID))
		}
	}

	var listCmd tea.Cmd
	b.booksC, listCmd = b.booksC.Update(msg)
	return b, tea.Batch(cmd, listCmd)
}

func (b *statefulBubble) updateBook(msg tea.Msg, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	active := &b.chaptersC
	if b.tab == charactersTab {
		active = &b.charactersC
	}

	switch msg := msg.(type) {
	case voiceSetMsg:
		items := b.charactersC.Items()
		for _, item := range items {
			item := item.(*listItem)
			if c := item.internal.(api.Character); c.Name == msg.character {
				c.VoiceID = msg.voice
				item.internal = c
			}
		}
		return b, tea.Batch(cmd, b.charactersC.SetItems(items), ui.Notify(fmt.Sprintf("%s now speaks with %s", msg.character, msg.voice)))
	case tea.KeyMsg:
		if active.FilterState() == list.Filtering {
			break
		}

		switch {
		case bubblesKey.Matches(msg, b.keymap.back):
			if active.FilterState() != list.Unfiltered {
				break
			}
			b.previousState()
			if b.state != libraryState {
				b.setState(libraryState)
			}
			return b, cmd
		case bubblesKey.Matches(msg, b.keymap.switchTab):
			if b.tab == chaptersTab {
				b.tab = charactersTab
			} else {
				b.tab = chaptersTab
			}
			return b, cmd
		case bubblesKey.Matches(msg, b.keymap.refresh):
			b.newState(loadingState)
			return b, tea.Batch(cmd, b.startLoading(), b.loadBook(b.selectedBook.ID))
		case bubblesKey.Matches(msg, b.keymap.confirm) && b.tab == chaptersTab:
			if b.chaptersC.SelectedItem() == nil {
				break
			}
			chapter := b.chaptersC.SelectedItem().(*listItem).internal.(api.ChapterSummary)
			b.newState(loadingState)
			return b, tea.Batch(cmd, b.startLoading(), b.loadChapter(b.selectedBook.ID, chapter.Number, false))
		case bubblesKey.Matches(msg, b.keymap.confirm) && b.tab == charactersTab:
			if b.charactersC.SelectedItem() == nil {
				break
			}
			return b, tea.Batch(cmd, b.cycleVoice(b.charactersC.SelectedItem().(*listItem).internal.(api.Character)))
		}
	}

	var listCmd tea.Cmd
	*active, listCmd = active.Update(msg)
	return b, tea.Batch(cmd, listCmd)
}

// cycleVoice assigns the next known voice to a character.
func (b *statefulBubble) cycleVoice(character api.Character) tea.Cmd {
	voices := api.FallbackVoices
	idx := lo.IndexOf(lo.Map(voices, func(v api.Voice, _ int) string { return v.ID }), character.VoiceID)
	next := voices[(idx+1)%len(voices)]
	return b.setVoice(character, next.ID)
}

func (b *statefulBubble) updateReader(msg tea.Msg, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	ctrl := b.app.Controller
	skip := float64(viper.GetInt(key.PlayerSkipSeconds))
	if skip <= 0 {
		skip = 15
	}

	switch msg := msg.(type) {
	case chapterLoadedMsg:
		return b, tea.Batch(cmd, b.openChapter(msg.chapter, msg.followed))
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.back):
			b.stopLoading()
			b.previousState()
			return b, tea.Batch(cmd, b.leaveReader())
		case bubblesKey.Matches(msg, b.keymap.quit):
			return b, tea.Batch(cmd, b.leaveReader(), tea.Quit)
		case bubblesKey.Matches(msg, b.keymap.playPause):
			return b, tea.Batch(cmd, b.control(ctrl.TogglePlayPause))
		case bubblesKey.Matches(msg, b.keymap.stop):
			return b, tea.Batch(cmd, b.control(ctrl.Stop))
		case bubblesKey.Matches(msg, b.keymap.skipBack):
			return b, tea.Batch(cmd, b.control(func() error { return ctrl.Skip(-skip) }))
		case bubblesKey.Matches(msg, b.keymap.skipForward):
			return b, tea.Batch(cmd, b.control(func() error { return ctrl.Skip(skip) }))
		case bubblesKey.Matches(msg, b.keymap.slower):
			return b, tea.Batch(cmd, b.control(func() error { return ctrl.SetSpeed(b.player.Speed - speedStep) }))
		case bubblesKey.Matches(msg, b.keymap.faster):
			return b, tea.Batch(cmd, b.control(func() error { return ctrl.SetSpeed(b.player.Speed + speedStep) }))
		case bubblesKey.Matches(msg, b.keymap.quieter):
			return b, tea.Batch(cmd, b.control(func() error { return ctrl.SetVolume(b.player.Volume - volumeStep) }))
		case bubblesKey.Matches(msg, b.keymap.louder):
			return b, tea.Batch(cmd, b.control(func() error { return ctrl.SetVolume(b.player.Volume + volumeStep) }))
		case bubblesKey.Matches(msg, b.keymap.nextChapter):
			return b, tea.Batch(cmd, b.adjacentChapter(true))
		case bubblesKey.Matches(msg, b.keymap.prevChapter):
			return b, tea.Batch(cmd, b.adjacentChapter(false))
		}
	}

	var textCmd, spin tea.Cmd
	b.textC, textCmd = b.textC.Update(msg)
	if b.loading {
		b.spinnerC, spin = b.spinnerC.Update(msg)
	}
	return b, tea.Batch(cmd, textCmd, spin)
}

func (b *statefulBubble) updateError(msg tea.Msg, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case bubblesKey.Matches(msg, b.keymap.quit):
			return b, tea.Quit
		case bubblesKey.Matches(msg, b.keymap.back):
			b.previousState()
			if b.state == loadingState || b.state == errorState {
				b.setState(libraryState)
			}
			return b, cmd
		}
	}
	return b, cmd
}
