package mini

import (
	"bytes"
	"strings"
	"testing"

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

func TestParseCommand(t *testing.T) {
	Convey("parseCommand", t, func() {
		Convey("Should read single letter commands", func() {
			for line, kind := range map[string]commandKind{
				"p":    cmdToggle,
				" P ":  cmdToggle,
				"s":    cmdStop,
				"n":    cmdNext,
				"b":    cmdPrevious,
				"c":    cmdChapters,
				"?":    cmdHelp,
				"q":    cmdQuit,
				"":     cmdStatus,
				"quit": cmdQuit,
			} {
				cmd, err := parseCommand(line)
				So(err, ShouldBeNil)
				So(cmd.kind, ShouldEqual, kind)
			}
		})

		Convey("Should read skips in both directions", func() {
			cmd, err := parseCommand("+15")
			So(err, ShouldBeNil)
			So(cmd, ShouldResemble, command{kind: cmdSkip, value: 15})

			cmd, err = parseCommand("-30")
			So(err, ShouldBeNil)
			So(cmd, ShouldResemble, command{kind: cmdSkip, value: -30})
		})

		Convey("Should read seeks as percentages or positions", func() {
			cmd, err := parseCommand("seek 50%")
			So(err, ShouldBeNil)
			So(cmd, ShouldResemble, command{kind: cmdSeekFraction, value: 0.5})

			cmd, err = parseCommand("seek 90")
			So(err, ShouldBeNil)
			So(cmd, ShouldResemble, command{kind: cmdSeekSeconds, value: 90})

			cmd, err = parseCommand("seek 1:30")
			So(err, ShouldBeNil)
			So(cmd.value, ShouldEqual, 90)

			cmd, err = parseCommand("seek 1:02:03")
			So(err, ShouldBeNil)
			So(cmd.value, ShouldEqual, 3723)
		})

		Convey("Should read speed and volume", func() {
			cmd, err := parseCommand("speed 1.25")
			So(err, ShouldBeNil)
			So(cmd, ShouldResemble, command{kind: cmdSpeed, value: 1.25})

			cmd, err = parseCommand("speed 2x")
			So(err, ShouldBeNil)
			So(cmd.value, ShouldEqual, 2)

			cmd, err = parseCommand("vol 0.8")
			So(err, ShouldBeNil)
			So(cmd, ShouldResemble, command{kind: cmdVolume, value: 0.8})

			cmd, err = parseCommand("volume 50%")
			So(err, ShouldBeNil)
			So(cmd.value, ShouldEqual, 0.5)
		})

		Convey("Should reject malformed input", func() {
			for _, line := range []string{
				"seek",
				"seek 150%",
				"seek 1:75",
				"seek abc",
				"speed 0",
				"speed fast",
				"vol -1",
				"+abc",
				"dance",
				"p now",
			} {
				_, err := parseCommand(line)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestPlayerLine(t *testing.T) {
	Convey("playerLine", t, func() {
		line := playerLine(playback.Snapshot{
			Status:   playback.StatusPlaying,
			Position: 150,
			Duration: 600,
			Speed:    1.25,
			Volume:   0.8,
			Chapter:  3,
			Title:    "Loomings",
		})

		So(line, ShouldContainSubstring, "Playing")
		So(line, ShouldContainSubstring, "Loomings")
		So(line, ShouldContainSubstring, "02:30 / 10:00 (25%)")
		So(line, ShouldContainSubstring, "1.25x")
		So(line, ShouldContainSubstring, "vol 80%")

		So(playerLine(playback.Snapshot{Status: playback.StatusPaused, Chapter: 2, Speed: 1, Volume: 1}), ShouldContainSubstring, "Chapter 2")
	})
}

func TestPlayState(t *testing.T) {
	Convey("Given the command loop", t, func() {
		viper.Set(key.PlayerSpeed, 1.0)
		viper.Set(key.PlayerVolume, 1.0)
		viper.Set(key.CacheAudio, false)

		a := app.NewWith(api.New("http://127.0.0.1:1"), player.NewMockOpener())
		defer a.Close()

		book := api.Book{ID: "B1", Title: "Moby Dick", Chapters: []api.ChapterSummary{{Number: 1}, {Number: 2}}}
		a.Book(book)

		run := func(input string) (*mini, string) {
			var out bytes.Buffer
			m := newMini(a, strings.NewReader(input), &out)
			m.book = book
			m.chapter = 2
			m.setState(playState)
			for i := 0; i < max(1, strings.Count(input, "\n")) && m.state == playState; i++ {
				So(m.handlePlayState(), ShouldBeNil)
			}
			return m, out.String()
		}

		Convey("q should quit", func() {
			m, _ := run("q\n")
			So(m.state, ShouldEqual, quitState)
		})

		Convey("End of input should quit", func() {
			m, _ := run("")
			So(m.state, ShouldEqual, quitState)
		})

		Convey("c should return to the chapter prompt", func() {
			m, _ := run("c\n")
			So(m.state, ShouldEqual, chapterSelectState)
		})

		Convey("Unknown commands should be reported and the loop kept", func() {
			m, out := run("dance\n")
			So(m.state, ShouldEqual, playState)
			So(out, ShouldContainSubstring, "unknown command")
		})

		Convey("n on the last chapter should be reported", func() {
			_, out := run("n\n")
			So(out, ShouldContainSubstring, "last chapter")
		})

		Convey("Help should list the commands", func() {
			_, out := run("?\n")
			So(out, ShouldContainSubstring, "seek 50%")
		})

		Convey("Speed changes should reach the store", func() {
			run("speed 1.5\n")
			So(a.Controller.Store().Snapshot().Speed, ShouldEqual, 1.5)
		})
	})
}
