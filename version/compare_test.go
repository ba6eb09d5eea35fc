package version

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		Convey("orders by major, minor, then patch", func() {
			So(must(Compare("1.0.0", "0.9.9")), ShouldEqual, 1)
			So(must(Compare("v0.1.0", "0.2.0")), ShouldEqual, -1)
			So(must(Compare("0.1.3", "0.1.3")), ShouldEqual, 0)
		})

		Convey("rejects malformed versions", func() {
			_, err := Compare("latest", "0.1.0")
			So(err, ShouldNotBeNil)
		})
	})
}

func must(n int, err error) int {
	So(err, ShouldBeNil)
	return n
}
