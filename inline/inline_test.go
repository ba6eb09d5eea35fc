package inline

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/player"
)

func init() {
	filesystem.SetMemMapFs()
}

type fakeLibrary struct {
	books      []api.Book
	characters map[string][]api.Character
	bookmarks  map[string]api.Bookmark
}

func (f *fakeLibrary) Books(context.Context) ([]api.Book, error) {
	return f.books, nil
}

func (f *fakeLibrary) Book(_ context.Context, bookID string) (api.Book, error) {
	for _, b := range f.books {
		if b.ID == bookID {
			b.Chapters = []api.ChapterSummary{
				{Number: 1, Title: "Loomings"},
				{Number: 2, Title: "The Carpet-Bag"},
				{Number: 3, Title: "The Spouter-Inn"},
			}
			return b, nil
		}
	}
	return api.Book{}, api.ErrNotFound
}

func (f *fakeLibrary) Characters(_ context.Context, bookID string) ([]api.Character, error) {
	return f.characters[bookID], nil
}

func (f *fakeLibrary) GetBookmark(_ context.Context, bookID string) (mo.Option[api.Bookmark], error) {
	if bm, ok := f.bookmarks[bookID]; ok {
		return mo.Some(bm), nil
	}
	return mo.None[api.Bookmark](), nil
}

func newLibrary() *fakeLibrary {
	return &fakeLibrary{
		books: []api.Book{
			{ID: "b1", Title: "Moby Dick", Author: "Herman Melville", ChapterCount: 3},
			{ID: "b2", Title: "Pride and Prejudice", Author: "Jane Austen", ChapterCount: 2},
		},
		characters: map[string][]api.Character{
			"b1": {{Name: "Ishmael", IsNarrator: true}, {Name: "Queequeg", VoiceID: "am_adam"}},
		},
		bookmarks: map[string]api.Bookmark{
			"b1": {Chapter: 2, Position: 42},
		},
	}
}

func TestWriteJson(t *testing.T) {
	Convey("writeJson", t, func() {
		Convey("Should produce valid JSON for an empty result", func() {
			var buf bytes.Buffer
			opts := &Options{Query: "test", Json: true}
			err := writeJson(&buf, nil, opts)
			So(err, ShouldBeNil)

			var output Output
			err = json.Unmarshal(buf.Bytes(), &output)
			So(err, ShouldBeNil)
			So(output.Query, ShouldEqual, "test")
			So(output.Result, ShouldHaveLength, 0)
			So(buf.String(), ShouldContainSubstring, `"result":[]`)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a library", t, func() {
		library := newLibrary()
		var buf bytes.Buffer
		options := &Options{Out: &buf, Library: library}

		Convey("Plain output should list every book", func() {
			So(Run(context.Background(), options), ShouldBeNil)
			So(buf.String(), ShouldEqual, "b1\tMoby Dick\nb2\tPride and Prejudice\n")
		})

		Convey("The query should filter by title or author", func() {
			options.Query = "austen"
			So(Run(context.Background(), options), ShouldBeNil)
			So(buf.String(), ShouldEqual, "b2\tPride and Prejudice\n")
		})

		Convey("A chapter filter should list the selected chapters", func() {
			picker, err := ParseBookPicker("first")
			So(err, ShouldBeNil)
			filter, err := ParseChaptersFilter("2-3")
			So(err, ShouldBeNil)
			options.BookPicker = mo.Some(picker)
			options.ChaptersFilter = mo.Some(filter)

			So(Run(context.Background(), options), ShouldBeNil)
			So(buf.String(), ShouldEqual, "b1\t2\tThe Carpet-Bag\nb1\t3\tThe Spouter-Inn\n")
		})

		Convey("JSON output should carry characters and bookmarks", func() {
			picker, _ := ParseBookPicker("id:b1")
			options.BookPicker = mo.Some(picker)
			options.Json = true
			options.Characters = true
			options.Bookmark = true

			So(Run(context.Background(), options), ShouldBeNil)

			var output Output
			So(json.Unmarshal(buf.Bytes(), &output), ShouldBeNil)
			So(output.Result, ShouldHaveLength, 1)

			book := output.Result[0]
			So(book.ID, ShouldEqual, "b1")
			So(book.Characters, ShouldHaveLength, 2)
			So(book.Bookmark, ShouldNotBeNil)
			So(book.Bookmark.Chapter, ShouldEqual, 2)
			So(book.Chapters, ShouldBeEmpty)
		})

		Convey("A picker without a match should produce an empty result", func() {
			picker, _ := ParseBookPicker("id:missing")
			options.BookPicker = mo.Some(picker)
			options.Json = true

			So(Run(context.Background(), options), ShouldBeNil)

			var output Output
			So(json.Unmarshal(buf.Bytes(), &output), ShouldBeNil)
			So(output.Result, ShouldBeEmpty)
		})
	})
}

func TestParsers(t *testing.T) {
	Convey("ParseBookPicker", t, func() {
		books := newLibrary().books

		pick := func(kind string) string {
			picker, err := ParseBookPicker(kind)
			So(err, ShouldBeNil)
			book, _ := picker(books)
			return book.ID
		}

		So(pick("first"), ShouldEqual, "b1")
		So(pick("last"), ShouldEqual, "b2")
		So(pick("0"), ShouldEqual, "b1")
		So(pick("9"), ShouldEqual, "b2")
		So(pick("id:b2"), ShouldEqual, "b2")

		_, err := ParseBookPicker("best")
		So(err, ShouldNotBeNil)
	})

	Convey("ParseChaptersFilter", t, func() {
		chapters := []api.ChapterSummary{
			{Number: 1, Title: "Loomings"},
			{Number: 2, Title: "The Carpet-Bag"},
			{Number: 3, Title: "The Spouter-Inn"},
		}

		numbers := func(description string) []int {
			filter, err := ParseChaptersFilter(description)
			So(err, ShouldBeNil)
			filtered, err := filter(chapters)
			So(err, ShouldBeNil)
			out := make([]int, 0, len(filtered))
			for _, c := range filtered {
				out = append(out, c.Number)
			}
			return out
		}

		So(numbers("first"), ShouldResemble, []int{1})
		So(numbers("last"), ShouldResemble, []int{3})
		So(numbers("all"), ShouldResemble, []int{1, 2, 3})
		So(numbers("2"), ShouldResemble, []int{2})
		So(numbers("1-2"), ShouldResemble, []int{1, 2})
		So(numbers("@inn@"), ShouldResemble, []int{3})

		for _, bad := range []string{"3-1", "a-b", "some"} {
			_, err := ParseChaptersFilter(bad)
			So(err, ShouldNotBeNil)
		}
	})
}

func TestPlay(t *testing.T) {
	Convey("Given a server with chapter audio", t, func() {
		viper.Set(key.PlayerSpeed, 1.0)
		viper.Set(key.PlayerVolume, 1.0)
		viper.Set(key.CacheAudio, false)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/audio"):
				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write([]byte("ID3 fake audio"))
			case strings.HasSuffix(r.URL.Path, "/bookmark") && r.Method == http.MethodGet:
				w.WriteHeader(http.StatusNotFound)
			default:
				w.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		opener := player.NewMockOpener()
		a := app.NewWith(api.New(server.URL), opener)
		defer a.Close()
		a.Book(api.Book{ID: "b1", Title: "Moby Dick", ChapterCount: 1})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var out bytes.Buffer
		done := make(chan error, 1)
		go func() {
			done <- Play(ctx, a, playback.Target{BookID: "b1", Chapter: 1}, playback.EndAdvance, &out)
		}()

		engine := waitFor(func() *player.Mock { return opener.Last() })
		So(engine, ShouldNotBeNil)
		engine.Load(60)
		So(waitFor(func() *player.Mock {
			if engine.Playing() {
				return engine
			}
			return nil
		}), ShouldNotBeNil)

		Convey("It should return once the last chapter ends", func() {
			engine.Finish()
			So(<-done, ShouldBeNil)
			So(engine.Unloaded(), ShouldBeTrue)
		})

		Convey("It should stop when the context is done", func() {
			cancel()
			So(<-done, ShouldBeNil)
			So(a.Controller.Store().Snapshot().Status, ShouldEqual, playback.StatusEmpty)
		})
	})
}

func waitFor(get func() *player.Mock) *player.Mock {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m := get(); m != nil {
			return m
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
