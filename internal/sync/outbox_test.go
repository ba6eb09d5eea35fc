package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/filesystem"
)

type fakeSaver struct {
	fail  map[string]error
	saved map[string]api.Bookmark
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{fail: map[string]error{}, saved: map[string]api.Bookmark{}}
}

func (f *fakeSaver) SaveBookmark(_ context.Context, bookID string, bookmark api.Bookmark) error {
	if err := f.fail[bookID]; err != nil {
		return err
	}
	f.saved[bookID] = bookmark
	return nil
}

// fakeBackend only implements the bookmark half of playback.Backend.
type fakeBackend struct {
	*fakeSaver
}

func (fakeBackend) FetchAudio(context.Context, string, int) (api.Audio, error) {
	return api.Audio{}, api.ErrNoAudio
}

func (fakeBackend) GenerateAudio(context.Context, string, int) (api.Audio, error) {
	return api.Audio{}, errors.New("unavailable")
}

func (fakeBackend) GetBookmark(context.Context, string) (mo.Option[api.Bookmark], error) {
	return mo.None[api.Bookmark](), nil
}

func TestOutbox(t *testing.T) {
	Convey("Given an empty outbox", t, func() {
		filesystem.SetMemMapFs()
		outbox := NewOutbox("/config/pending_bookmarks.json")
		outbox.BaseDelay = 0

		Convey("Nothing is pending and reconcile is a no-op", func() {
			pending, err := outbox.Pending()
			So(err, ShouldBeNil)
			So(pending, ShouldBeEmpty)

			n, err := outbox.Reconcile(context.Background(), newFakeSaver())
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When bookmarks are queued", func() {
			So(outbox.Queue("B1", api.Bookmark{Chapter: 1, Position: 10}), ShouldBeNil)
			So(outbox.Queue("B2", api.Bookmark{Chapter: 3, Position: 5}), ShouldBeNil)
			So(outbox.Queue("B1", api.Bookmark{Chapter: 2, Position: 42}), ShouldBeNil)

			Convey("Only the latest bookmark of each book is pending", func() {
				pending, err := outbox.Pending()
				So(err, ShouldBeNil)
				So(pending, ShouldHaveLength, 2)
				So(pending[0].BookID, ShouldEqual, "B2")
				So(pending[1].BookID, ShouldEqual, "B1")
				So(pending[1].Bookmark, ShouldResemble, api.Bookmark{Chapter: 2, Position: 42})
			})

			Convey("Reconcile replays them and empties the outbox", func() {
				saver := newFakeSaver()
				n, err := outbox.Reconcile(context.Background(), saver)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				So(saver.saved["B1"], ShouldResemble, api.Bookmark{Chapter: 2, Position: 42})
				So(saver.saved["B2"], ShouldResemble, api.Bookmark{Chapter: 3, Position: 5})

				pending, err := outbox.Pending()
				So(err, ShouldBeNil)
				So(pending, ShouldBeEmpty)
			})

			Convey("Entries older than a save of the same book are dropped", func() {
				pending, err := outbox.Pending()
				So(err, ShouldBeNil)
				b1 := pending[1]
				outbox.saved["B1"] = time.Unix(0, b1.Timestamp+1)

				saver := newFakeSaver()
				n, err := outbox.Reconcile(context.Background(), saver)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				So(saver.saved, ShouldNotContainKey, "B1")
				So(saver.saved, ShouldContainKey, "B2")

				pending, err = outbox.Pending()
				So(err, ShouldBeNil)
				So(pending, ShouldBeEmpty)
			})

			Convey("Entries newer than a save are still replayed", func() {
				pending, err := outbox.Pending()
				So(err, ShouldBeNil)
				outbox.saved["B1"] = time.Unix(0, pending[1].Timestamp-1)

				saver := newFakeSaver()
				n, err := outbox.Reconcile(context.Background(), saver)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				So(saver.saved["B1"], ShouldResemble, api.Bookmark{Chapter: 2, Position: 42})
			})

			Convey("Saves that fail again stay queued", func() {
				saver := newFakeSaver()
				saver.fail["B2"] = errors.New("connection refused")

				n, err := outbox.Reconcile(context.Background(), saver)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)

				pending, err := outbox.Pending()
				So(err, ShouldBeNil)
				So(pending, ShouldHaveLength, 1)
				So(pending[0].BookID, ShouldEqual, "B2")
			})
		})
	})
}

func TestBackend(t *testing.T) {
	Convey("Given a backend wrapped with an outbox", t, func() {
		filesystem.SetMemMapFs()
		saver := newFakeSaver()
		outbox := NewOutbox("/config/pending_bookmarks.json")
		backend := &Backend{Backend: fakeBackend{saver}, Outbox: outbox}
		bookmark := api.Bookmark{Chapter: 4, Position: 12.5}

		Convey("Successful saves are not queued", func() {
			So(backend.SaveBookmark(context.Background(), "B1", bookmark), ShouldBeNil)
			So(saver.saved["B1"], ShouldResemble, bookmark)
			So(outbox.saved, ShouldContainKey, "B1")

			pending, _ := outbox.Pending()
			So(pending, ShouldBeEmpty)
		})

		Convey("Transport failures are queued and not reported", func() {
			saver.fail["B1"] = errors.New("connection refused")
			So(backend.SaveBookmark(context.Background(), "B1", bookmark), ShouldBeNil)

			pending, _ := outbox.Pending()
			So(pending, ShouldHaveLength, 1)
			So(pending[0].Bookmark, ShouldResemble, bookmark)
		})

		Convey("Rejected saves are reported and not queued", func() {
			saver.fail["B1"] = &api.Error{Op: "save bookmark", Status: http.StatusNotFound}
			So(backend.SaveBookmark(context.Background(), "B1", bookmark), ShouldNotBeNil)

			pending, _ := outbox.Pending()
			So(pending, ShouldBeEmpty)
		})

		Convey("Throttled saves are queued", func() {
			saver.fail["B1"] = &api.Error{Op: "save bookmark", Status: http.StatusTooManyRequests}
			So(backend.SaveBookmark(context.Background(), "B1", bookmark), ShouldBeNil)

			pending, _ := outbox.Pending()
			So(pending, ShouldHaveLength, 1)
		})
	})
}
