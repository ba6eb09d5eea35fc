package player

import (
	"math"
	"sync"
)

// MockOpener hands out Mock engines and remembers them in order.
type MockOpener struct {
	mu      sync.Mutex
	engines []*Mock
	openErr error
}

// NewMockOpener creates an opener for tests.
func NewMockOpener() *MockOpener {
	return &MockOpener{}
}

// SetOpenErr makes subsequent Open calls fail.
func (o *MockOpener) SetOpenErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openErr = err
}

// Open records a new Mock. It never loads on its own; call Load or FailLoad.
func (o *MockOpener) Open(path string, opts Options, cb Callbacks) (Engine, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}

	m := &Mock{Path: path, Opts: opts, cb: cb, rate: opts.Rate, volume: opts.Volume}
	o.engines = append(o.engines, m)
	return m, nil
}

// Engines returns every engine opened so far.
func (o *MockOpener) Engines() []*Mock {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Mock(nil), o.engines...)
}

// Last returns the most recently opened engine, or nil.
func (o *MockOpener) Last() *Mock {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.engines) == 0 {
		return nil
	}
	return o.engines[len(o.engines)-1]
}

// Mock is a test double for Engine. Play, Pause and Stop fire their callbacks synchronously.
type Mock struct {
	Path string
	Opts Options
	cb   Callbacks

	mu        sync.Mutex
	loaded    bool
	unloaded  bool
	playing   bool
	position  float64
	duration  float64
	rate      float64
	volume    float64
	calls     []string
	seekCalls []float64
}

// Load finishes loading with the given duration and fires OnLoad.
func (m *Mock) Load(duration float64) {
	m.mu.Lock()
	m.loaded = true
	m.duration = duration
	m.mu.Unlock()
	m.cb.load()
}

// FailLoad fires OnLoadError.
func (m *Mock) FailLoad(err error) {
	m.cb.loadError(err)
}

// Finish moves to the end and fires OnEnd.
func (m *Mock) Finish() {
	m.mu.Lock()
	m.position = m.duration
	m.playing = false
	m.mu.Unlock()
	m.cb.end()
}

// SetPosition sets what Position reports, as if playback advanced.
func (m *Mock) SetPosition(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = seconds
}

func (m *Mock) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unloaded {
		return ErrUnloaded
	}
	m.calls = append(m.calls, call)
	return nil
}

func (m *Mock) Play() error {
	if err := m.record("play"); err != nil {
		return err
	}
	m.mu.Lock()
	m.playing = true
	m.mu.Unlock()
	m.cb.play()
	return nil
}

func (m *Mock) Pause() error {
	if err := m.record("pause"); err != nil {
		return err
	}
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
	m.cb.pause()
	return nil
}

func (m *Mock) Stop() error {
	if err := m.record("stop"); err != nil {
		return err
	}
	m.mu.Lock()
	m.playing = false
	m.position = 0
	m.mu.Unlock()
	m.cb.stop()
	return nil
}

func (m *Mock) Seek(seconds float64) (float64, error) {
	if err := m.record("seek"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seconds = math.Max(0, math.Min(seconds, m.duration))
	m.position = seconds
	m.seekCalls = append(m.seekCalls, seconds)
	return seconds, nil
}

func (m *Mock) Position() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unloaded {
		return 0, ErrUnloaded
	}
	return m.position, nil
}

func (m *Mock) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SetRate(multiplier float64) error {
	if err := m.record("rate"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = multiplier
	return nil
}

func (m *Mock) SetVolume(level float64) error {
	if err := m.record("volume"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = level
	return nil
}

func (m *Mock) Unload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.unloaded {
		m.calls = append(m.calls, "unload")
	}
	m.unloaded = true
	m.playing = false
	return nil
}

// Calls returns the recorded engine calls in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// SeekCalls returns the positions passed to Seek, after clamping.
func (m *Mock) SeekCalls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seekCalls...)
}

// Unloaded reports whether Unload was called.
func (m *Mock) Unloaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloaded
}

// Playing reports whether the mock is currently playing.
func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Rate returns the last applied speed.
func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// Volume returns the last applied level.
func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}
