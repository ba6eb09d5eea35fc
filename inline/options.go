// Package inline provides the implementation for the application's non-interactive, programmable execution mode.
package inline

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/util"
)

type (
	BookPicker     func([]api.Book) (api.Book, bool)
	ChaptersFilter func([]api.ChapterSummary) ([]api.ChapterSummary, error)
)

type Options struct {
	Out     io.Writer
	Library Library
	Json    bool
	// Query keeps the books whose title or author fuzzily matches it.
	Query          string
	BookPicker     mo.Option[BookPicker]
	ChaptersFilter mo.Option[ChaptersFilter]
	// Characters includes the characters of the selected books.
	Characters bool
	// Bookmark includes the server bookmark of the selected books.
	Bookmark bool
}

// ParseBookPicker builds a picker from a selector kind.
func ParseBookPicker(kind string) (BookPicker, error) {
	switch kind {
	case "first":
		return func(books []api.Book) (api.Book, bool) {
			return lo.First(books)
		}, nil
	case "last":
		return func(books []api.Book) (api.Book, bool) {
			return lo.Last(books)
		}, nil
	}

	if strings.HasPrefix(kind, "id:") {
		id := strings.TrimPrefix(kind, "id:")
		return func(books []api.Book) (api.Book, bool) {
			return lo.Find(books, func(b api.Book) bool { return b.ID == id })
		}, nil
	}

	idx, err := strconv.ParseUint(kind, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid book selector: %s", kind)
	}
	return func(books []api.Book) (api.Book, bool) {
		if len(books) == 0 {
			return api.Book{}, false
		}
		return books[util.Min(int(idx), len(books)-1)], true
	}, nil
}

var chapterRange = regexp.MustCompile(`^(?P<from>\d+)-(?P<to>\d+)$`)

// ParseChaptersFilter parses a chapter selector.
// Format: "first", "last", "all", "3" (chapter number), "2-5" (inclusive range of numbers), "@text@" (title substring)
func ParseChaptersFilter(description string) (ChaptersFilter, error) {
	switch description {
	case "first":
		return func(chapters []api.ChapterSummary) ([]api.ChapterSummary, error) {
			if len(chapters) == 0 {
				return chapters, nil
			}
			return chapters[:1], nil
		}, nil
	case "last":
		return func(chapters []api.ChapterSummary) ([]api.ChapterSummary, error) {
			if len(chapters) == 0 {
				return chapters, nil
			}
			return chapters[len(chapters)-1:], nil
		}, nil
	case "all":
		return func(chapters []api.ChapterSummary) ([]api.ChapterSummary, error) {
			return chapters, nil
		}, nil
	}

	if groups := util.ReGroups(chapterRange, description); len(groups) > 0 {
		a, err1 := strconv.Atoi(groups["from"])
		b, err2 := strconv.Atoi(groups["to"])
		if err1 != nil || err2 != nil || a > b {
			return nil, fmt.Errorf("invalid chapter range: %s", description)
		}
		return func(chapters []api.ChapterSummary) ([]api.ChapterSummary, error) {
			return lo.Filter(chapters, func(c api.ChapterSummary, _ int) bool {
				return a <= c.Number && c.Number <= b
			}), nil
		}, nil
	}

	if len(description) > 1 && strings.HasPrefix(description, "@") && strings.HasSuffix(description, "@") {
		sub := strings.ToLower(description[1 : len(description)-1])
		return func(chapters []api.ChapterSummary) ([]api.ChapterSummary, error) {
			return lo.Filter(chapters, func(c api.ChapterSummary, _ int) bool {
				return strings.Contains(strings.ToLower(c.Title), sub)
			}), nil
		}, nil
	}

	if n, err := strconv.Atoi(description); err == nil {
		return func(chapters []api.ChapterSummary) ([]api.ChapterSummary, error) {
			return lo.Filter(chapters, func(c api.ChapterSummary, _ int) bool {
				return c.Number == n
			}), nil
		}, nil
	}

	return nil, fmt.Errorf("invalid chapter filter: %s", description)
}
