package mini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/util"
)

type state int

const (
	bookSelectState state = iota + 1
	chapterSelectState
	playState
	historySelectState
	quitState
)

const (
	requestTimeout = 30 * time.Second
	browseLibrary  = "Browse library"
	backOption     = ".. Back"
)

// fuzzyFilter lets the prompt filters match like the library list does.
func fuzzyFilter(filter, value string, _ int) bool {
	return filter == "" || fuzzy.MatchNormalizedFold(filter, value)
}

func selectOne(message string, options []string) (int, error) {
	var idx int
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		PageSize: max(1, viper.GetInt(key.MiniSearchLimit)),
	}
	err := survey.AskOne(prompt, &idx, survey.WithFilter(fuzzyFilter))
	return idx, err
}

func (m *mini) loadBook(bookID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	erase := util.PrintErasable("Loading book...")
	book, err := m.app.Client.Book(ctx, bookID)
	erase()
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}

	m.book = book
	m.app.Book(book)
	return nil
}

func (m *mini) handleHistorySelectState() error {
	entries, err := history.Sorted()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fail(m, "No history yet")
		m.setState(bookSelectState)
		return nil
	}

	options := lo.Map(entries, func(e *history.Entry, _ int) string { return e.String() })
	options = append(options, browseLibrary)

	idx, err := selectOne("Continue listening", options)
	if err != nil {
		return err
	}

	if idx == len(entries) {
		m.newState(bookSelectState)
		return nil
	}

	entry := entries[idx]
	if err := m.loadBook(entry.BookID); err != nil {
		return err
	}

	m.newState(chapterSelectState)
	return m.play(entry.Chapter)
}

func (m *mini) handleBookSelectState() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	erase := util.PrintErasable("Loading library...")
	books, err := m.app.Client.Books(ctx)
	erase()
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	if len(books) == 0 {
		fail(m, "The library is empty. Upload a book with \"voicepages books upload\"")
		m.setState(quitState)
		return nil
	}

	idx, err := selectOne("Select book", lo.Map(books, func(b api.Book, _ int) string { return b.String() }))
	if err != nil {
		return err
	}

	if err := m.loadBook(books[idx].ID); err != nil {
		return err
	}

	m.newState(chapterSelectState)
	return nil
}

func (m *mini) chapters() []api.ChapterSummary {
	if len(m.book.Chapters) > 0 {
		return m.book.Chapters
	}

	return lo.Map(lo.Range(m.book.ChapterCount), func(i int, _ int) api.ChapterSummary {
		return api.ChapterSummary{Number: i + 1}
	})
}

func (m *mini) handleChapterSelectState() error {
	chapters := m.chapters()
	if len(chapters) == 0 {
		fail(m, "This book has no chapters")
		m.previousState()
		if m.state == chapterSelectState {
			m.setState(bookSelectState)
		}
		return nil
	}

	options := lo.Map(chapters, func(c api.ChapterSummary, _ int) string {
		if c.Title == "" {
			return fmt.Sprintf("Chapter %d", c.Number)
		}
		return fmt.Sprintf("%d. %s", c.Number, c.Title)
	})
	options = append(options, backOption)

	idx, err := selectOne(m.book.Title, options)
	if err != nil {
		return err
	}

	if idx == len(chapters) {
		m.previousState()
		if m.state == chapterSelectState {
			m.setState(bookSelectState)
		}
		return nil
	}

	return m.play(chapters[idx].Number)
}

// play points the player at a chapter and enters the command loop.
func (m *mini) play(chapter int) error {
	m.chapter = chapter
	target := m.app.Target(m.book.ID, chapter)

	var err error
	if viper.GetBool(key.PlayerAutoplay) {
		err = m.app.Controller.LoadAndPlay(target)
	} else {
		err = m.app.Controller.Target(target)
	}
	if err != nil {
		return err
	}

	title(m, fmt.Sprintf("%s - %s", m.book.Title, target.Title))
	m.printf("%s\n", style.Faint(helpLine))
	m.setState(playState)
	return nil
}

func (m *mini) handlePlayState() error {
	m.printf("%s ", prompt)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return err
		}
		m.setState(quitState)
		return nil
	}

	cmd, err := parseCommand(m.in.Text())
	if err != nil {
		fail(m, err.Error())
		return nil
	}

	switch cmd.kind {
	case cmdQuit:
		m.setState(quitState)
		return nil
	case cmdChapters:
		if err := m.app.Controller.Stop(); err != nil {
			return err
		}
		m.setState(chapterSelectState)
		return nil
	case cmdHelp:
		m.printf("%s\n", strings.TrimSpace(usage))
		return nil
	case cmdStatus:
		m.printf("%s\n", playerLine(m.app.Controller.Store().Snapshot()))
		return nil
	}

	if err := m.apply(cmd); err != nil {
		fail(m, err.Error())
	}
	return nil
}
