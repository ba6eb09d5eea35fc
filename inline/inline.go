// Package inline provides the implementation for the application's non-interactive, programmable execution mode.
package inline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/log"
)

// Library is the part of the server the inline mode reads.
type Library interface {
	Books(ctx context.Context) ([]api.Book, error)
	Book(ctx context.Context, bookID string) (api.Book, error)
	Characters(ctx context.Context, bookID string) ([]api.Character, error)
	GetBookmark(ctx context.Context, bookID string) (mo.Option[api.Bookmark], error)
}

func Run(ctx context.Context, options *Options) error {
	if options.Out == nil {
		options.Out = os.Stdout
	}

	books, err := options.Library.Books(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	if options.Query != "" {
		books = lo.Filter(books, func(b api.Book, _ int) bool {
			return fuzzy.MatchNormalizedFold(options.Query, b.Title) || fuzzy.MatchNormalizedFold(options.Query, b.Author)
		})
	}

	if picker, ok := options.BookPicker.Get(); ok {
		if choice, ok := picker(books); ok {
			books = []api.Book{choice}
		} else {
			books = nil
		}
	}

	selected := make([]*Book, 0, len(books))
	for _, b := range books {
		book, err := prepareBook(ctx, b, options)
		if err != nil {
			return err
		}
		selected = append(selected, book)
	}

	if options.Json {
		return writeJson(options.Out, selected, options)
	}

	// Plain output lists chapters when they were asked for and books otherwise.
	for _, book := range selected {
		if !options.ChaptersFilter.IsPresent() {
			fmt.Fprintf(options.Out, "%s\t%s\n", book.ID, book.Title)
			continue
		}

		for _, c := range book.Chapters {
			fmt.Fprintf(options.Out, "%s\t%d\t%s\n", book.ID, c.Number, c.Title)
		}
	}

	return nil
}

// prepareBook fetches the details the options ask for.
func prepareBook(ctx context.Context, b api.Book, options *Options) (*Book, error) {
	book := &Book{Book: b}

	if filter, ok := options.ChaptersFilter.Get(); ok {
		full, err := options.Library.Book(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("load book %s: %w", b.ID, err)
		}

		chapters := full.Chapters
		if len(chapters) == 0 {
			for i := 1; i <= full.ChapterCount; i++ {
				chapters = append(chapters, api.ChapterSummary{Number: i})
			}
		}

		book.Book = full
		book.Chapters, err = filter(chapters)
		if err != nil {
			return nil, err
		}
	} else {
		book.Chapters = nil
	}

	if options.Characters {
		characters, err := options.Library.Characters(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("load characters of %s: %w", b.ID, err)
		}
		book.Characters = characters
	}

	if options.Bookmark {
		bookmark, err := options.Library.GetBookmark(ctx, b.ID)
		if err != nil {
			log.Warnf("bookmark of %s: %s", b.ID, err)
		} else if bm, ok := bookmark.Get(); ok {
			book.Bookmark = &bm
		}
	}

	return book, nil
}

func writeJson(out io.Writer, books []*Book, options *Options) error {
	data, err := asJson(books, options.Query)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
