// Package mini implements a prompt driven player for terminals where the full screen interface does not fit.
package mini

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/util"
)

type Options struct {
	// Continue resumes the most recently heard chapter.
	Continue bool
	// BookID skips the library prompt.
	BookID string
}

type mini struct {
	app *app.App

	state         state
	statesHistory util.Stack[state]

	book    api.Book
	chapter int

	in  *bufio.Scanner
	out io.Writer
	// mu serializes writes to out between the prompt loop and the store watcher.
	mu sync.Mutex
}

func newMini(a *app.App, in io.Reader, out io.Writer) *mini {
	return &mini{
		app:           a,
		statesHistory: util.Stack[state]{},
		in:            bufio.NewScanner(in),
		out:           out,
	}
}

func (m *mini) previousState() {
	if m.statesHistory.Len() > 0 {
		m.setState(m.statesHistory.Pop())
	}
}

func (m *mini) setState(s state) {
	m.state = s
}

func (m *mini) newState(s state) {
	if m.state == s {
		return
	}

	m.statesHistory.Push(m.state)
	m.setState(s)
}

func (m *mini) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.out, format, args...)
}

// Run prompts for a book and a chapter and then reads player commands until quit.
func Run(a *app.App, options *Options) error {
	m := newMini(a, os.Stdin, os.Stdout)

	switch {
	case options.Continue:
		m.state = historySelectState
	case options.BookID != "":
		if err := m.loadBook(options.BookID); err != nil {
			return err
		}
		m.state = chapterSelectState
	default:
		m.state = bookSelectState
	}

	sub := a.Controller.Store().Subscribe()
	defer sub.Close()
	go m.watch(sub)

	for m.state != quitState {
		if err := m.handleState(); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				break
			}
			return err
		}
	}

	return a.Controller.Stop()
}

func (m *mini) handleState() error {
	switch m.state {
	case historySelectState:
		return m.handleHistorySelectState()
	case bookSelectState:
		return m.handleBookSelectState()
	case chapterSelectState:
		return m.handleChapterSelectState()
	case playState:
		return m.handlePlayState()
	}

	return nil
}

// watch prints the player line whenever the status, the chapter or the error changes.
func (m *mini) watch(sub *playback.Subscription) {
	var prev playback.Snapshot
	for snap := range sub.C() {
		if snap.Status != prev.Status || snap.Chapter != prev.Chapter || snap.Err != prev.Err {
			m.printf("\r%s\n", playerLine(snap))
			if snap.Err != "" && snap.Err != prev.Err {
				fail(m, snap.Err)
			}
		}
		prev = snap
	}
}
