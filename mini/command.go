package mini

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/voicepages/voicepages/icon"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/style"
	"github.com/voicepages/voicepages/util"
)

type commandKind int

const (
	cmdStatus commandKind = iota
	cmdToggle
	cmdStop
	cmdSkip
	cmdSeekSeconds
	cmdSeekFraction
	cmdSpeed
	cmdVolume
	cmdNext
	cmdPrevious
	cmdChapters
	cmdHelp
	cmdQuit
)

type command struct {
	kind  commandKind
	value float64
}

const (
	prompt   = ">"
	helpLine = "p play/pause, +15/-15 skip, n/b next/previous chapter, ? help, q quit"
	usage    = `
p              play or pause
s              stop
+N, -N         skip N seconds
seek 50%       seek to a fraction of the chapter
seek 90, 1:30  seek to a position
speed 1.25     set the speed
vol 0.8, 80%   set the volume
n, b           next or previous chapter
c              choose another chapter
enter          show the player
q              quit
`
)

var errUnknownCommand = errors.New("unknown command, type ? for help")

// parseCommand reads one line of the command loop.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{kind: cmdStatus}, nil
	}

	name, args := fields[0], fields[1:]

	if len(args) == 0 {
		switch name {
		case "p", "play", "pause":
			return command{kind: cmdToggle}, nil
		case "s", "stop":
			return command{kind: cmdStop}, nil
		case "n", "next":
			return command{kind: cmdNext}, nil
		case "b", "prev", "previous":
			return command{kind: cmdPrevious}, nil
		case "c", "chapters":
			return command{kind: cmdChapters}, nil
		case "?", "h", "help":
			return command{kind: cmdHelp}, nil
		case "q", "quit", "exit":
			return command{kind: cmdQuit}, nil
		}

		if strings.HasPrefix(name, "+") || strings.HasPrefix(name, "-") {
			delta, err := strconv.ParseFloat(name, 64)
			if err != nil {
				return command{}, fmt.Errorf("invalid skip %q", name)
			}
			return command{kind: cmdSkip, value: delta}, nil
		}
	}

	if len(args) != 1 {
		return command{}, errUnknownCommand
	}
	arg := args[0]

	switch name {
	case "seek":
		if percent, ok := strings.CutSuffix(arg, "%"); ok {
			f, err := strconv.ParseFloat(percent, 64)
			if err != nil || f < 0 || f > 100 {
				return command{}, fmt.Errorf("invalid percentage %q", arg)
			}
			return command{kind: cmdSeekFraction, value: f / 100}, nil
		}

		seconds, err := parseClock(arg)
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdSeekSeconds, value: seconds}, nil
	case "speed":
		speed, err := strconv.ParseFloat(strings.TrimSuffix(arg, "x"), 64)
		if err != nil || speed <= 0 {
			return command{}, fmt.Errorf("invalid speed %q", arg)
		}
		return command{kind: cmdSpeed, value: speed}, nil
	case "vol", "volume":
		if percent, ok := strings.CutSuffix(arg, "%"); ok {
			v, err := strconv.ParseFloat(percent, 64)
			if err != nil || v < 0 {
				return command{}, fmt.Errorf("invalid volume %q", arg)
			}
			return command{kind: cmdVolume, value: v / 100}, nil
		}

		v, err := strconv.ParseFloat(arg, 64)
		if err != nil || v < 0 {
			return command{}, fmt.Errorf("invalid volume %q", arg)
		}
		return command{kind: cmdVolume, value: v}, nil
	}

	return command{}, errUnknownCommand
}

// parseClock accepts seconds, m:ss or h:mm:ss.
func parseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", s)
	}

	var seconds float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || (i > 0 && v >= 60) {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		seconds = seconds*60 + v
	}
	return seconds, nil
}

// apply runs a transport command against the controller.
func (m *mini) apply(cmd command) error {
	ctrl := m.app.Controller

	switch cmd.kind {
	case cmdToggle:
		return ctrl.TogglePlayPause()
	case cmdStop:
		return ctrl.Stop()
	case cmdSkip:
		return ctrl.Skip(cmd.value)
	case cmdSeekSeconds:
		return ctrl.SeekTo(cmd.value)
	case cmdSeekFraction:
		return ctrl.SeekFraction(cmd.value)
	case cmdSpeed:
		return ctrl.SetSpeed(cmd.value)
	case cmdVolume:
		return ctrl.SetVolume(cmd.value)
	case cmdNext, cmdPrevious:
		current := m.current()
		var (
			target playback.Target
			ok     bool
		)
		if cmd.kind == cmdNext {
			target, ok = m.app.Next(current)
		} else {
			target, ok = m.app.Previous(current)
		}
		if !ok {
			if cmd.kind == cmdNext {
				return errors.New("this is the last chapter")
			}
			return errors.New("this is the first chapter")
		}

		m.chapter = target.Chapter
		title(m, fmt.Sprintf("%s - %s", m.book.Title, target.Title))
		return ctrl.LoadAndPlay(target)
	}

	return nil
}

// current follows the player when it advanced on its own.
func (m *mini) current() playback.Target {
	snap := m.app.Controller.Store().Snapshot()
	if snap.BookID == m.book.ID && snap.Chapter > 0 {
		return playback.Target{BookID: snap.BookID, Chapter: snap.Chapter}
	}
	return playback.Target{BookID: m.book.ID, Chapter: m.chapter}
}

// playerLine renders a snapshot as a single line.
func playerLine(snap playback.Snapshot) string {
	var state string
	switch snap.Status {
	case playback.StatusLoading:
		state = icon.Get(icon.Progress)
	case playback.StatusPlaying:
		state = icon.Get(icon.Play)
	case playback.StatusPaused:
		state = icon.Get(icon.Pause)
	default:
		state = icon.Get(icon.Stop)
	}

	name := snap.Title
	if name == "" && snap.Chapter > 0 {
		name = fmt.Sprintf("Chapter %d", snap.Chapter)
	}

	return fmt.Sprintf("%s %s %s %s / %s (%d%%) %sx vol %d%%",
		state,
		snap.Status,
		name,
		util.FormatSeconds(snap.Position),
		util.FormatSeconds(snap.Duration),
		int(snap.Fraction()*100),
		strconv.FormatFloat(snap.Speed, 'f', -1, 64),
		int(snap.Volume*100+0.5),
	)
}

func title(m *mini, text string) {
	m.printf("%s\n", style.Title(text))
}

func fail(m *mini, text string) {
	m.printf("%s %s\n", icon.Get(icon.Fail), lipgloss.NewStyle().Foreground(style.ErrorColor).Render(text))
}
