// Package history keeps the local record of what was listened to and where it stopped.
package history

import (
	"cmp"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/where"
	"golang.org/x/exp/slices"
)

var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every entry keyed by book ID.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Sorted returns the entries, most recently updated first.
func Sorted() ([]*Entry, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	entries := lo.Values(saved)
	slices.SortFunc(entries, func(a, b *Entry) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.BookID, b.BookID))
	})
	return entries, nil
}

// Last returns the most recently updated entry.
func Last() (mo.Option[*Entry], error) {
	entries, err := Sorted()
	if err != nil {
		return mo.None[*Entry](), err
	}
	if len(entries) == 0 {
		return mo.None[*Entry](), nil
	}
	return mo.Some(entries[0]), nil
}

// Save stores entry, replacing the previous one of the same book.
// A missing book title is taken from the previous entry.
func Save(entry *Entry) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	if existing, ok := saved[entry.BookID]; ok && entry.BookTitle == "" {
		entry.BookTitle = existing.BookTitle
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}

	saved[entry.BookID] = entry
	return cacher.Set(saved)
}

// Remove deletes the entry of a book.
func Remove(bookID string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, bookID)
	return cacher.Set(saved)
}

// Recorder writes playback progress into the history.
type Recorder struct {
	mu     sync.Mutex
	titles map[string]string
}

var _ playback.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder.
func NewRecorder() *Recorder {
	return &Recorder{titles: make(map[string]string)}
}

// Book remembers the title of a book so entries can show it.
func (r *Recorder) Book(id, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles[id] = title
}

// Record implements playback.Recorder.
func (r *Recorder) Record(p playback.Progress) error {
	r.mu.Lock()
	title := r.titles[p.BookID]
	r.mu.Unlock()

	return Save(&Entry{
		BookID:       p.BookID,
		BookTitle:    title,
		Chapter:      p.Chapter,
		ChapterTitle: p.Title,
		Position:     p.Position,
		Duration:     p.Duration,
	})
}
