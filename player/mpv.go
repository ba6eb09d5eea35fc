package player

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/voicepages/voicepages/constant"
	"github.com/voicepages/voicepages/log"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

var observed = []string{"duration", "pause", "eof-reached"}

// MPVOpener starts one headless mpv process per engine.
type MPVOpener struct{}

// IsMPVAvailable reports whether the mpv executable can be found.
func IsMPVAvailable() bool {
	_, err := exec.LookPath("mpv")
	return err == nil
}

// MPV is an Engine backed by an mpv process controlled over JSON-IPC.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	listener   *EventListener
	cb         Callbacks
	outcome    sync.Once
	unloadOnce sync.Once

	ipcMu sync.Mutex // serializes IPC commands

	mu       sync.Mutex
	loaded   bool
	unloaded bool
	paused   bool
	ended    bool
	duration float64
}

// Open launches mpv paused on path. Loading finishes asynchronously.
func (MPVOpener) Open(path string, opts Options, cb Callbacks) (Engine, error) {
	target, err := sanitizeMediaTarget(path)
	if err != nil {
		return nil, fmt.Errorf("invalid media target: %w", err)
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("generate socket name: %w", err)
	}

	m := &MPV{
		socketPath: filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.App, randomBytes)),
		exited:     make(chan struct{}),
		cb:         cb,
		paused:     true,
	}

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--no-video",
		"--idle=yes",
		"--keep-open=yes",
		"--pause=yes",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		fmt.Sprintf("--force-media-title=%s", sanitizeTitle(opts.Title)),
	}
	if opts.Rate > 0 {
		args = append(args, fmt.Sprintf("--speed=%g", opts.Rate))
	}
	args = append(args, fmt.Sprintf("--volume=%g", volumePercent(opts.Volume)))
	args = append(args, "--", target)

	m.cmd = exec.Command("mpv", args...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}

	// Reap the process to prevent zombies.
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	go m.connect()

	return m, nil
}

// connect waits for the socket and attaches the event listener.
func (m *MPV) connect() {
	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		m.fail(fmt.Errorf("mpv socket not ready: %w", err))
		return
	}

	if err := m.attach(); err != nil {
		if !errors.Is(err, ErrUnloaded) {
			m.fail(err)
		}
		return
	}

	// mpv exiting before the file loaded is a load failure.
	go func() {
		<-m.exited
		m.fail(fmt.Errorf("mpv exited"))
	}()
}

// attach starts the event listener unless the engine was unloaded while mpv was starting.
func (m *MPV) attach() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unloaded {
		return ErrUnloaded
	}

	listener := NewEventListener(m.socketPath, observed, m.handle)
	if err := listener.Start(); err != nil {
		return err
	}
	m.listener = listener
	return nil
}

func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// fail reports a load error unless the outcome was already decided.
func (m *MPV) fail(err error) {
	m.mu.Lock()
	skip := m.loaded || m.unloaded
	m.mu.Unlock()
	if skip {
		return
	}
	m.outcome.Do(func() { m.cb.loadError(err) })
}

// handle translates observed properties into lifecycle callbacks.
func (m *MPV) handle(name string, msg ipcMessage) {
	m.mu.Lock()
	if m.unloaded {
		m.mu.Unlock()
		return
	}

	var fire func()
	switch name {
	case "duration":
		if d, ok := msg.Data.(float64); ok && d > 0 {
			m.duration = d
			if !m.loaded {
				m.loaded = true
				fire = func() { m.outcome.Do(m.cb.load) }
			}
		}
	case "pause":
		p, ok := msg.Data.(bool)
		if !ok || p == m.paused {
			break
		}
		m.paused = p
		if m.loaded {
			if p {
				fire = m.cb.pause
			} else {
				fire = m.cb.play
			}
		}
	case "eof-reached":
		eof, _ := msg.Data.(bool)
		if eof && m.loaded && !m.ended {
			fire = m.cb.end
		}
		m.ended = eof
	case "end-file":
		if msg.Reason == "error" && !m.loaded {
			reason := msg.FileError
			if reason == "" {
				reason = "unrecognized file format"
			}
			m.mu.Unlock()
			m.fail(fmt.Errorf("mpv could not load audio: %s", reason))
			return
		}
	}
	m.mu.Unlock()

	if fire != nil {
		fire()
	}
}

func (m *MPV) usable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unloaded {
		return ErrUnloaded
	}
	return nil
}

// Play resumes playback.
func (m *MPV) Play() error {
	if err := m.usable(); err != nil {
		return err
	}
	return m.set("pause", false)
}

// Pause suspends playback.
func (m *MPV) Pause() error {
	if err := m.usable(); err != nil {
		return err
	}
	return m.set("pause", true)
}

// Stop pauses and rewinds. The pause it causes is reported as OnStop only.
func (m *MPV) Stop() error {
	if err := m.usable(); err != nil {
		return err
	}

	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()

	if err := m.set("pause", true); err != nil {
		return err
	}
	if _, err := m.sendCommand("seek", 0, "absolute"); err != nil {
		return err
	}

	m.cb.stop()
	return nil
}

// Seek moves to an absolute position.
func (m *MPV) Seek(seconds float64) (float64, error) {
	if err := m.usable(); err != nil {
		return 0, err
	}

	seconds = math.Max(0, math.Min(seconds, m.Duration()))
	if _, err := m.sendCommand("seek", seconds, "absolute"); err != nil {
		return 0, err
	}
	return seconds, nil
}

// Position returns the current playback position in seconds.
func (m *MPV) Position() (float64, error) {
	if err := m.usable(); err != nil {
		return 0, err
	}
	return m.getFloatProperty("time-pos")
}

// Duration returns the length reported by mpv.
func (m *MPV) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// SetRate sets the playback speed.
func (m *MPV) SetRate(multiplier float64) error {
	if err := m.usable(); err != nil {
		return err
	}
	return m.set("speed", multiplier)
}

// SetVolume sets the output level.
func (m *MPV) SetVolume(level float64) error {
	if err := m.usable(); err != nil {
		return err
	}
	return m.set("volume", volumePercent(level))
}

// Unload quits mpv and removes the socket.
func (m *MPV) Unload() error {
	m.unloadOnce.Do(func() {
		m.mu.Lock()
		m.unloaded = true
		listener := m.listener
		m.mu.Unlock()

		if listener != nil {
			listener.Stop()
		}

		_, _ = m.sendCommand("quit")

		select {
		case <-m.exited:
		case <-time.After(quitTimeout):
			_ = killProcess(m.cmd)
		}

		_ = os.Remove(m.socketPath)
	})
	return nil
}

func (m *MPV) set(property string, value any) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

func (m *MPV) getFloatProperty(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}
	return val, nil
}

func volumePercent(level float64) float64 {
	return math.Round(math.Max(0, math.Min(level, 1))*100)
}

// sanitizeMediaTarget validates that a path or URL is safe to pass to mpv.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in path")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("path must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
