package auth

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func TestToken(t *testing.T) {
	keyring.MockInit()

	Convey("Given a mocked keyring", t, func() {
		const server = "http://localhost:9000"

		Convey("A missing token reads as empty", func() {
			So(TokenOrEmpty(server), ShouldBeEmpty)
		})

		Convey("A stored token can be read back and deleted", func() {
			So(SetToken(server, "secret"), ShouldBeNil)
			So(TokenOrEmpty(server), ShouldEqual, "secret")

			So(DeleteToken(server), ShouldBeNil)
			_, err := GetToken(server)
			So(err, ShouldEqual, keyring.ErrNotFound)
		})
	})
}
