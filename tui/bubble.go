// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/internal/ui"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/util"
)

type bookTab int

const (
	chaptersTab bookTab = iota
	charactersTab
)

// statefulBubble encapsulates the application state, including component models and workflow tracking.
type statefulBubble struct {
	state         state
	statesHistory util.Stack[state]
	loading       bool

	keymap *statefulKeymap

	// components
	spinnerC    spinner.Model
	historyC    list.Model
	booksC      list.Model
	chaptersC   list.Model
	charactersC list.Model
	textC       viewport.Model
	progressC   progress.Model
	helpC       help.Model

	app *app.App
	sub *playback.Subscription

	selectedBook api.Book
	chapter      *api.Chapter
	tab          bookTab
	player       playback.Snapshot
	// resumeChapter is opened as soon as the selected book has loaded.
	resumeChapter int

	progressStatus string
	lastError      error

	width, height int
	notifier      *ui.Model

	options *Options
}

// raiseError dispatches a terminal error and transitions the application to the failure view.
func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.newState(errorState)
}

// setState performs a synchronous transition of both the application workflow and its associated keymap.
func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// newState transitions to s, recording the previous state in the navigation history when appropriate.
func (b *statefulBubble) newState(s state) {
	if b.state == s {
		return
	}

	// Do not push these states to history
	if !lo.Contains([]state{
		loadingState,
		errorState,
	}, b.state) {
		b.statesHistory.Push(b.state)
	}

	b.setState(s)
}

// previousState restores the application to its immediate predecessor in the navigation stack.
func (b *statefulBubble) previousState() {
	if b.statesHistory.Len() > 0 {
		s := b.statesHistory.Pop()
		b.setState(s)
	}
}

// resize propagates terminal dimension changes to all child component models.
func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	xx, yy := listExtraPaddingStyle.GetFrameSize()

	styledWidth := width - x
	styledHeight := height - y

	listWidth := width - xx
	listHeight := height - yy

	for _, l := range []*list.Model{&b.historyC, &b.booksC, &b.chaptersC, &b.charactersC} {
		l.SetSize(listWidth, listHeight)
		l.Help.Width = listWidth
	}

	b.progressC.Width = max(10, styledWidth-playerBarReserved)

	// title, blank, blank, player bar, blank and help
	b.textC.Width = styledWidth
	b.textC.Height = max(1, styledHeight-readerChromeHeight)
	if b.chapter != nil {
		b.textC.SetContent(b.renderChapterText(b.chapter.Text))
	}

	b.width = styledWidth
	b.height = styledHeight
	b.helpC.Width = listWidth
}

// startLoading enters a loading state, initializing visual indicators across child components.
func (b *statefulBubble) startLoading() tea.Cmd {
	b.loading = true
	return tea.Batch(b.spinnerC.Tick, b.booksC.StartSpinner(), b.chaptersC.StartSpinner())
}

// stopLoading exits the loading state and synchronizes child component visual indicators.
func (b *statefulBubble) stopLoading() tea.Cmd {
	b.loading = false
	b.booksC.StopSpinner()
	b.chaptersC.StopSpinner()
	return nil
}

// control runs a transport action and reports its failure as a notification.
func (b *statefulBubble) control(action func() error) tea.Cmd {
	if err := action(); err != nil {
		log.Debugf("player: %s", err)
		return ui.Notify(err.Error())
	}
	return nil
}

func (b *statefulBubble) close() {
	if b.sub != nil {
		b.sub.Close()
	}
}

// newBubble performs a complete initialization of the application's primary UI model.
func newBubble(a *app.App, options *Options) *statefulBubble {
	keymap := newStatefulKeymap()
	bubble := statefulBubble{
		statesHistory: util.Stack[state]{},
		keymap:        keymap,
		app:           a,
		sub:           a.Controller.Store().Subscribe(),
		player:        a.Controller.Store().Snapshot(),
		notifier:      &ui.Model{},
		options:       options,
	}

	type listOptions struct {
		TitleStyle mo.Option[lipgloss.Style]
	}

	makeList := func(title string, description bool, options *listOptions) list.Model {
		delegate := list.NewDefaultDelegate()
		delegate.SetSpacing(viper.GetInt(key.TUIItemSpacing))
		delegate.ShowDescription = description
		delegate.Styles.SelectedTitle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(style.AccentColor).
			Foreground(style.AccentColor).
			Padding(0, 0, 0, 1)
		delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(lipgloss.Color("7"))
		delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle

		listC := list.New([]list.Item{}, delegate, 0, 0)
		listC.KeyMap = bubble.keymap.forList()
		listC.AdditionalShortHelpKeys = bubble.keymap.ShortHelp
		listC.AdditionalFullHelpKeys = func() []bubblesKey.Binding {
			return bubble.keymap.FullHelp()[0]
		}
		listC.Title = title
		listC.Styles.NoItems = paddingStyle
		if titleStyle, ok := options.TitleStyle.Get(); ok {
			listC.Styles.Title = titleStyle
		}
		listC.StatusMessageLifetime = time.Hour * 999
		listC.SetShowPagination(false)
		listC.SetShowStatusBar(false)
		listC.FilterInput.Prompt = viper.GetString(key.TUISearchPromptString)

		return listC
	}

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	bubble.progressC = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	bubble.textC = viewport.New(0, 0)

	bubble.historyC = makeList("History", true, &listOptions{
		TitleStyle: mo.Some(
			lipgloss.NewStyle().Foreground(style.Base).Background(style.Yellow).Padding(0, 1),
		),
	})
	bubble.historyC.SetStatusBarItemName("entry", "entries")
	bubble.historyC.SetFilteringEnabled(false)

	bubble.booksC = makeList("Library", true, &listOptions{
		TitleStyle: mo.Some(
			lipgloss.NewStyle().Foreground(style.Base).Background(style.Lavender).Padding(0, 1),
		),
	})
	bubble.booksC.SetStatusBarItemName("book", "books")

	bubble.chaptersC = makeList("Chapters", false, &listOptions{
		TitleStyle: mo.Some(
			lipgloss.NewStyle().Foreground(style.Base).Background(style.Peach).Padding(0, 1),
		),
	})
	bubble.chaptersC.SetStatusBarItemName("chapter", "chapters")

	bubble.charactersC = makeList("Characters", true, &listOptions{
		TitleStyle: mo.Some(
			lipgloss.NewStyle().Foreground(style.Base).Background(style.Blue).Padding(0, 1),
		),
	})
	bubble.charactersC.SetStatusBarItemName("character", "characters")
	bubble.charactersC.SetFilteringEnabled(false)

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	bubble.setState(libraryState)

	return &bubble
}

func (b *statefulBubble) setBookTitle() {
	b.chaptersC.Title = fmt.Sprintf("%s - Chapters", b.selectedBook.Title)
	b.charactersC.Title = fmt.Sprintf("%s - Characters", b.selectedBook.Title)
}
