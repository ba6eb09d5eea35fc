// Package query remembers opened books and suggests them for partial input.
package query

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/where"
	"golang.org/x/exp/slices"
)

// Book is a remembered book.
type Book struct {
	Rank  int    `json:"rank"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

var cacher = gache.New[map[string]*Book](
	&gache.Options{
		Path:       where.Queries(),
		FileSystem: &filesystem.GacheFs{},
	},
)

var suggestionCache = make(map[string][]*Book)

// Remember records an opened book or raises its rank by weight.
func Remember(id, title string, weight int) error {
	cached, expired, err := cacher.Get()
	if expired || err != nil || cached == nil {
		cached = make(map[string]*Book)
	}

	if record, ok := cached[id]; ok {
		record.Rank += weight
		if title != "" {
			record.Title = title
		}
	} else {
		cached[id] = &Book{Rank: weight, ID: id, Title: title}
	}

	clear(suggestionCache)
	return cacher.Set(cached)
}

// Suggest returns the best remembered book for a partial title or ID.
func Suggest(q string) mo.Option[Book] {
	suggestions := SuggestMany(q)
	if len(suggestions) == 0 {
		return mo.None[Book]()
	}
	return mo.Some(suggestions[0])
}

// SuggestMany returns remembered books matching the partial input, highest rank first.
func SuggestMany(q string) []Book {
	q = sanitize(q)
	var records []*Book

	if prev, ok := suggestionCache[q]; ok {
		records = prev
	} else {
		cached, expired, err := cacher.Get()
		if err != nil || expired || cached == nil {
			return []Book{}
		}

		for _, record := range cached {
			if fuzzy.MatchFold(q, record.Title) || strings.HasPrefix(strings.ToLower(record.ID), q) {
				records = append(records, record)
			}
		}

		slices.SortFunc(records, func(a, b *Book) int {
			if a.Rank != b.Rank {
				return b.Rank - a.Rank
			}
			return strings.Compare(a.Title, b.Title)
		})

		suggestionCache[q] = records
	}

	return lo.Map(records, func(r *Book, _ int) Book {
		return *r
	})
}

func sanitize(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}
