package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/muesli/reflow/ansi"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/history"
	"github.com/voicepages/voicepages/playback"
)

func TestWrapParagraphs(t *testing.T) {
	Convey("wrapParagraphs", t, func() {
		Convey("Should keep lines within the width", func() {
			text := wrapParagraphs([]string{
				"Call me Ishmael. Some years ago, never mind how long precisely, having little or no money in my purse.",
			}, 20)
			for _, line := range strings.Split(text, "\n") {
				So(ansi.PrintableRuneWidth(line), ShouldBeLessThanOrEqualTo, 20)
			}
		})

		Convey("Should hard-wrap words longer than a line", func() {
			text := wrapParagraphs([]string{strings.Repeat("a", 25)}, 10)
			So(strings.Split(text, "\n"), ShouldHaveLength, 3)
		})

		Convey("Should separate paragraphs by a blank line and drop empty ones", func() {
			text := wrapParagraphs([]string{"first", "  ", "second"}, 40)
			So(text, ShouldEqual, "first\n\nsecond")
		})

		Convey("Should collapse whitespace inside a paragraph", func() {
			So(wrapParagraphs([]string{"a\n  b\tc"}, 40), ShouldEqual, "a b c")
		})

		Convey("Should join unwrapped when the width is unknown", func() {
			So(wrapParagraphs([]string{"a", "b"}, 0), ShouldEqual, "a\n\nb")
		})
	})
}

func TestPlayerSettings(t *testing.T) {
	Convey("playerSettings", t, func() {
		s := playerSettings(playback.Snapshot{Speed: 1.25, Volume: 0.8})
		So(s, ShouldContainSubstring, "1.25x")
		So(s, ShouldContainSubstring, "80%")

		s = playerSettings(playback.Snapshot{Speed: 1, Volume: 1})
		So(s, ShouldContainSubstring, "1x")
		So(s, ShouldContainSubstring, "100%")
	})
}

func TestListItem(t *testing.T) {
	Convey("listItem", t, func() {
		Convey("Chapters without a title should be numbered", func() {
			item := &listItem{internal: api.ChapterSummary{Number: 3}}
			So(item.Title(), ShouldEqual, "Chapter 3")
			So(item.FilterValue(), ShouldEqual, "Chapter 3")
		})

		Convey("Chapters with a title should keep the number", func() {
			item := &listItem{internal: api.ChapterSummary{Number: 2, Title: "The Carpet-Bag"}}
			So(item.Title(), ShouldEqual, "2. The Carpet-Bag")
		})

		Convey("Marked chapters should carry a mark", func() {
			item := &listItem{internal: api.ChapterSummary{Number: 1}, marked: true}
			So(item.Title(), ShouldStartWith, "Chapter 1 ")
		})

		Convey("Books should be filtered by title and author", func() {
			item := &listItem{internal: api.Book{Title: "Moby Dick", Author: "Herman Melville"}}
			So(item.Title(), ShouldEqual, "Moby Dick")
			So(item.FilterValue(), ShouldEqual, "Moby Dick Herman Melville")
		})

		Convey("History entries without a title should fall back to the book id", func() {
			item := &listItem{internal: &history.Entry{BookID: "b1", Chapter: 2, Position: 90, UpdatedAt: time.Now()}}
			So(item.Title(), ShouldEqual, "b1")
			So(item.Description(), ShouldContainSubstring, "Chapter 2")
			So(item.Description(), ShouldContainSubstring, "01:30")
		})

		Convey("Finished history entries should say so", func() {
			item := &listItem{internal: &history.Entry{BookID: "b1", Chapter: 2, Position: 60, Duration: 60, UpdatedAt: time.Now()}}
			So(item.Description(), ShouldContainSubstring, "finished")
		})
	})
}
