package blob

import (
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/voicepages/voicepages/filesystem"
)

func TestStore(t *testing.T) {
	Convey("Given a store on an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()
		lo.Must0(filesystem.API().MkdirAll("/tmp/voicepages", 0o755))
		store := NewStore("/tmp/voicepages")

		Convey("Put writes a file and counts it as live", func() {
			ref, err := store.Put([]byte("RIFF"), "audio/wav")
			So(err, ShouldBeNil)
			So(ref.Path(), ShouldEndWith, ".wav")
			So(ref.Size(), ShouldEqual, 4)
			So(lo.Must(filesystem.API().Exists(ref.Path())), ShouldBeTrue)
			So(store.Live(), ShouldEqual, 1)

			Convey("Release removes it exactly once", func() {
				So(ref.Release(), ShouldBeNil)
				So(lo.Must(filesystem.API().Exists(ref.Path())), ShouldBeFalse)
				So(store.Live(), ShouldEqual, 0)

				So(ref.Release(), ShouldBeNil)
				So(store.Live(), ShouldEqual, 0)
			})
		})

		Convey("Extensions follow the content type", func() {
			ref, err := store.Put([]byte("ID3"), "audio/mpeg")
			So(err, ShouldBeNil)
			So(ref.Path(), ShouldEndWith, ".mp3")

			other, err := store.Put([]byte("x"), "")
			So(err, ShouldBeNil)
			So(other.Path(), ShouldEndWith, ".wav")
			So(other.Path(), ShouldNotEqual, ref.Path())
		})

		Convey("Releasing a nil reference is a no-op", func() {
			var ref *Ref
			So(ref.Release(), ShouldBeNil)
		})
	})
}
