package ui

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestModel(t *testing.T) {
	Convey("Given an empty notifier", t, func() {
		m := &Model{}

		Convey("View should return the content unchanged", func() {
			So(m.View("line one\nline two"), ShouldEqual, "line one\nline two")
		})

		Convey("When a string message arrives", func() {
			cmd := m.Update("Last chapter")

			Convey("It should be shown on the last line", func() {
				So(cmd, ShouldNotBeNil)
				So(m.Notification(), ShouldEqual, "Last chapter")
				view := m.View("line one\nline two")
				So(view, ShouldStartWith, "line one\nline two  ")
				So(view, ShouldContainSubstring, "Last chapter")
			})

			Convey("A clear message for it should remove it", func() {
				m.Update(ClearNotificationMsg{NotifiedAt: m.notifiedAt})
				So(m.Notification(), ShouldBeEmpty)
			})

			Convey("A clear message for an older notification should keep it", func() {
				m.Update(ClearNotificationMsg{NotifiedAt: m.notifiedAt.Add(-time.Second)})
				So(m.Notification(), ShouldEqual, "Last chapter")
			})
		})

		Convey("Notify should produce the text as a message", func() {
			So(Notify("hello")(), ShouldEqual, "hello")
		})

		Convey("Other messages should be ignored", func() {
			So(m.Update(42), ShouldBeNil)
			So(m.Notification(), ShouldBeEmpty)
		})
	})
}
