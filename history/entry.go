package history

import (
	"fmt"
	"time"

	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/util"
)

// Entry is the last known position in one book.
type Entry struct {
	BookID       string    `json:"book_id"`
	BookTitle    string    `json:"book_title"`
	Chapter      int       `json:"chapter"`
	ChapterTitle string    `json:"chapter_title"`
	Position     float64   `json:"position"`
	Duration     float64   `json:"duration"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Target returns the chapter of the entry.
func (e *Entry) Target() playback.Target {
	return playback.Target{BookID: e.BookID, Chapter: e.Chapter, Title: e.ChapterTitle}
}

// Finished reports whether the chapter was heard to the end.
func (e *Entry) Finished() bool {
	return e.Duration > 0 && e.Position >= e.Duration
}

func (e *Entry) String() string {
	title := e.BookTitle
	if title == "" {
		title = e.BookID
	}
	return fmt.Sprintf("%s : chapter %d at %s", title, e.Chapter, util.FormatSeconds(e.Position))
}
