// Package app wires the server client, the playback controller and local
// history together for the front ends.
package app

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/auth"
	"github.com/voicepages/voicepages/blob"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/internal/cache"
	"github.com/voicepages/voicepages/internal/sync"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/network"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/player"
	"github.com/voicepages/voicepages/query"
	"github.com/voicepages/voicepages/where"
)

// App is one connection to a server with its playback session.
type App struct {
	Client     *api.Client
	Controller *playback.Controller
	History    *history.Recorder
	// Audio is nil when audio caching is disabled.
	Audio *cache.Audio

	mu    gosync.Mutex
	books map[string]api.Book
}

// NewClient builds the server client from the configuration.
func NewClient() *api.Client {
	server := viper.GetString(key.ServerURL)
	return api.New(server,
		api.WithToken(auth.TokenOrEmpty(server)),
		api.WithHTTPClient(network.Client),
		api.WithTimeouts(
			time.Duration(viper.GetInt(key.ServerTimeoutSeconds))*time.Second,
			time.Duration(viper.GetInt(key.ServerSynthesisTimeoutSeconds))*time.Second,
		),
	)
}

// New builds an App from the configuration.
func New() (*App, error) {
	opener, err := player.New(viper.GetString(key.PlayerEngine))
	if err != nil {
		return nil, err
	}

	return NewWith(NewClient(), opener), nil
}

// NewWith builds an App around the given client and engine.
func NewWith(client *api.Client, opener player.Opener) *App {
	a := &App{
		Client:  client,
		History: history.NewRecorder(),
		books:   make(map[string]api.Book),
	}

	opts := history.Prefs{}.Apply(playback.OptionsFromConfig())
	opts.Advance = a.next

	var backend playback.Backend = client
	if viper.GetBool(key.BookmarkQueueFailed) {
		backend = &sync.Backend{Backend: client, Outbox: Outbox()}
	}

	deps := playback.Deps{
		Backend: backend,
		Opener:  opener,
		Blobs:   blob.NewStore(where.Temp()),
		History: a.History,
		Prefs:   history.Prefs{},
	}
	if audio := cache.FromConfig(client.BaseURL()); audio != nil {
		a.Audio = audio
		deps.Cache = audio
	}

	a.Controller = playback.New(deps, opts)
	return a
}

var outbox = gosync.OnceValue(func() *sync.Outbox {
	return sync.NewOutbox(where.PendingBookmarks())
})

// Outbox returns the queue of bookmarks the server could not store.
// Every App of the process shares it with the startup replay.
func Outbox() *sync.Outbox {
	return outbox()
}

// Book remembers a book opened by the user.
func (a *App) Book(book api.Book) {
	a.mu.Lock()
	a.books[book.ID] = book
	a.mu.Unlock()

	a.History.Book(book.ID, book.Title)
	if err := query.Remember(book.ID, book.Title, 1); err != nil {
		log.Warnf("remember book %s: %s", book.ID, err)
	}
}

// Target returns the target of a chapter of a remembered book.
func (a *App) Target(bookID string, chapter int) playback.Target {
	t := playback.Target{BookID: bookID, Chapter: chapter}

	a.mu.Lock()
	defer a.mu.Unlock()
	if book, ok := a.books[bookID]; ok {
		for _, c := range book.Chapters {
			if c.Number == chapter {
				t.Title = c.Title
				break
			}
		}
	}
	if t.Title == "" {
		t.Title = fmt.Sprintf("Chapter %d", chapter)
	}
	return t
}

// Next returns the chapter after current.
func (a *App) Next(current playback.Target) (playback.Target, bool) {
	return a.next(current)
}

// Previous returns the chapter before current.
func (a *App) Previous(current playback.Target) (playback.Target, bool) {
	a.mu.Lock()
	book, ok := a.books[current.BookID]
	a.mu.Unlock()

	if ok && len(book.Chapters) > 0 {
		for i, c := range book.Chapters {
			if c.Number == current.Chapter && i > 0 {
				prev := book.Chapters[i-1]
				return playback.Target{BookID: book.ID, Chapter: prev.Number, Title: prev.Title}, true
			}
		}
		return playback.Target{}, false
	}

	if current.Chapter <= 1 {
		return playback.Target{}, false
	}
	return a.Target(current.BookID, current.Chapter-1), true
}

// next runs on the controller goroutine; it only reads remembered books.
func (a *App) next(current playback.Target) (playback.Target, bool) {
	a.mu.Lock()
	book, ok := a.books[current.BookID]
	a.mu.Unlock()
	if !ok {
		return playback.Target{}, false
	}

	if len(book.Chapters) > 0 {
		for i, c := range book.Chapters {
			if c.Number == current.Chapter && i+1 < len(book.Chapters) {
				next := book.Chapters[i+1]
				return playback.Target{BookID: book.ID, Chapter: next.Number, Title: next.Title}, true
			}
		}
		return playback.Target{}, false
	}

	if current.Chapter >= book.ChapterCount {
		return playback.Target{}, false
	}
	return playback.Target{BookID: book.ID, Chapter: current.Chapter + 1, Title: fmt.Sprintf("Chapter %d", current.Chapter+1)}, true
}

// SetVoice assigns a voice to a character and drops the cached audio of the book,
// which was synthesized with the old voice.
func (a *App) SetVoice(ctx context.Context, bookID, character, voiceID string) error {
	if err := a.Client.SetCharacterVoice(ctx, bookID, character, voiceID); err != nil {
		return err
	}
	return InvalidateAudio(a.Audio, bookID)
}

// InvalidateAudio drops the cached audio of a book. A nil cache is ignored.
func InvalidateAudio(audio *cache.Audio, bookID string) error {
	if audio == nil {
		return nil
	}
	if err := audio.Invalidate(bookID); err != nil {
		return fmt.Errorf("invalidate cached audio: %w", err)
	}
	return nil
}

// Close stops playback and releases the engine.
func (a *App) Close() error {
	return a.Controller.Close()
}
