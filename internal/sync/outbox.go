// Package sync queues bookmark saves that failed and replays them against the server later.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	stdsync "sync"
	"time"

	"github.com/samber/lo"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/playback"
)

// Pending is a bookmark save waiting to be replayed.
type Pending struct {
	Timestamp int64        `json:"timestamp"` // unix nanoseconds
	BookID    string       `json:"book_id"`
	Bookmark  api.Bookmark `json:"bookmark"`
}

// Saver stores bookmarks on the server.
type Saver interface {
	SaveBookmark(ctx context.Context, bookID string, bookmark api.Bookmark) error
}

// Outbox is an append only log of failed bookmark saves.
type Outbox struct {
	path string
	mu   stdsync.Mutex

	savedMu stdsync.Mutex
	// saved holds the books stored on the server since the outbox was opened.
	saved map[string]time.Time

	// BaseDelay is the first replay delay, doubled for every following entry.
	BaseDelay time.Duration
}

// NewOutbox opens the outbox stored at path.
func NewOutbox(path string) *Outbox {
	return &Outbox{path: path, saved: make(map[string]time.Time), BaseDelay: 100 * time.Millisecond}
}

// Saved records that the server now holds a bookmark of bookID newer than anything queued.
func (o *Outbox) Saved(bookID string) {
	o.savedMu.Lock()
	defer o.savedMu.Unlock()
	o.saved[bookID] = time.Now()
}

// superseded reports whether a newer bookmark of the book reached the server.
func (o *Outbox) superseded(p Pending) bool {
	o.savedMu.Lock()
	defer o.savedMu.Unlock()
	at, ok := o.saved[p.BookID]
	return ok && at.UnixNano() >= p.Timestamp
}

// Queue appends a failed save.
func (o *Outbox) Queue(bookID string, bookmark api.Bookmark) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := filesystem.API().OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(Pending{
		Timestamp: time.Now().UnixNano(),
		BookID:    bookID,
		Bookmark:  bookmark,
	})
}

// Pending returns the latest queued save of every book, oldest first.
func (o *Outbox) Pending() ([]Pending, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.read()
}

func (o *Outbox) read() ([]Pending, error) {
	content, err := filesystem.API().ReadFile(o.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var all []Pending
	decoder := json.NewDecoder(bytes.NewReader(content))
	for decoder.More() {
		var p Pending
		if err := decoder.Decode(&p); err != nil {
			log.Warnf("pending bookmarks: skipping the rest of a corrupted log: %s", err)
			break
		}
		all = append(all, p)
	}

	// A later save of a book supersedes the earlier ones.
	last := make(map[string]int, len(all))
	for i, p := range all {
		last[p.BookID] = i
	}
	return lo.Filter(all, func(p Pending, i int) bool { return last[p.BookID] == i }), nil
}

func (o *Outbox) write(entries []Pending) error {
	fsys := filesystem.API()
	if len(entries) == 0 {
		if err := fsys.Remove(o.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, p := range entries {
		if err := encoder.Encode(p); err != nil {
			return err
		}
	}
	return fsys.WriteFile(o.path, buf.Bytes(), 0o644)
}

// Reconcile replays the queued saves with a growing, jittered delay between them.
// Entries that still fail stay queued. Entries older than a save made since the outbox
// was opened are dropped. It returns the number of saves replayed.
func (o *Outbox) Reconcile(ctx context.Context, saver Saver) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entries, err := o.read()
	if err != nil || len(entries) == 0 {
		return 0, err
	}

	var (
		failed   []Pending
		replayed int
	)
	for i, p := range entries {
		if i > 0 {
			delay := o.BaseDelay*time.Duration(1<<min(i-1, 6)) + rand.N(o.BaseDelay+1)
			select {
			case <-ctx.Done():
				failed = append(failed, entries[i:]...)
				return replayed, errors.Join(ctx.Err(), o.write(failed))
			case <-time.After(delay):
			}
		}

		if o.superseded(p) {
			log.Debugf("pending bookmark for %s superseded", p.BookID)
			continue
		}

		if err := saver.SaveBookmark(ctx, p.BookID, p.Bookmark); err != nil {
			log.Debugf("replay bookmark for %s: %s", p.BookID, err)
			failed = append(failed, p)
			continue
		}
		replayed++
	}

	return replayed, o.write(failed)
}

// Backend queues failed bookmark saves of the wrapped backend in an outbox.
type Backend struct {
	playback.Backend
	Outbox *Outbox
}

// SaveBookmark saves through the wrapped backend and queues the bookmark when that fails.
// A queued bookmark is not an error.
func (b *Backend) SaveBookmark(ctx context.Context, bookID string, bookmark api.Bookmark) error {
	err := b.Backend.SaveBookmark(ctx, bookID, bookmark)
	if err == nil {
		b.Outbox.Saved(bookID)
		return nil
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 &&
		apiErr.Status != http.StatusRequestTimeout && apiErr.Status != http.StatusTooManyRequests {
		return err
	}

	if qerr := b.Outbox.Queue(bookID, bookmark); qerr != nil {
		return errors.Join(err, qerr)
	}
	log.Debugf("bookmark for %s queued: %s", bookID, err)
	return nil
}

// ReconcileFailures replays the queued saves in the background.
func ReconcileFailures(outbox *Outbox, saver Saver, timeout time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := outbox.Reconcile(ctx, saver)
		if err != nil {
			log.Warnf("replay pending bookmarks: %s", err)
		}
		if n > 0 {
			log.Infof("replayed %d pending bookmarks", n)
		}
	}()
}
