// Package player defines the audio engine contract used by the playback controller.
// The primary implementation drives 'mpv' through its JSON-IPC interface; a native
// in-process engine built on beep is available for systems without mpv.
package player

import (
	"errors"
	"fmt"
)

// ErrUnloaded is returned by engine calls made after Unload.
var ErrUnloaded = errors.New("engine unloaded")

// Engine is a single loaded audio source.
//
// Engines start paused. Transport calls are valid only after OnLoad has fired.
type Engine interface {
	// Play resumes playback. OnPlay fires once playback is running.
	Play() error

	// Pause suspends playback. OnPause fires once playback is suspended.
	Pause() error

	// Stop suspends playback and rewinds to the start. OnStop fires.
	Stop() error

	// Seek moves to an absolute position in seconds and returns the position applied.
	Seek(seconds float64) (float64, error)

	// Position reports the current playback position in seconds.
	Position() (float64, error)

	// Duration reports the total length in seconds, or 0 before OnLoad.
	Duration() float64

	// SetRate changes the playback speed multiplier.
	SetRate(multiplier float64) error

	// SetVolume changes the output level, from 0 to 1.
	SetVolume(level float64) error

	// Unload stops the engine and releases its resources. Further calls return ErrUnloaded.
	Unload() error
}

// Callbacks receive engine lifecycle transitions.
// Each fires exactly once per transition, possibly from an engine goroutine.
// Implementations must not block.
type Callbacks struct {
	OnLoad      func()
	OnLoadError func(reason error)
	OnPlay      func()
	OnPause     func()
	OnStop      func()
	OnEnd       func()
}

func (c Callbacks) load() {
	if c.OnLoad != nil {
		c.OnLoad()
	}
}

func (c Callbacks) loadError(err error) {
	if c.OnLoadError != nil {
		c.OnLoadError(err)
	}
}

func (c Callbacks) play() {
	if c.OnPlay != nil {
		c.OnPlay()
	}
}

func (c Callbacks) pause() {
	if c.OnPause != nil {
		c.OnPause()
	}
}

func (c Callbacks) stop() {
	if c.OnStop != nil {
		c.OnStop()
	}
}

func (c Callbacks) end() {
	if c.OnEnd != nil {
		c.OnEnd()
	}
}

// Options are applied to an engine when it is opened.
type Options struct {
	Title  string
	Rate   float64
	Volume float64
}

// Opener creates engines.
// Open returns immediately; loading continues in the background and ends with OnLoad or OnLoadError.
type Opener interface {
	Open(path string, opts Options, cb Callbacks) (Engine, error)
}

// Engine names accepted by New.
const (
	EngineMPV    = "mpv"
	EngineNative = "native"
)

// Available lists the engine names accepted by New.
var Available = []string{EngineMPV, EngineNative}

// New returns the opener for the named engine.
func New(name string) (Opener, error) {
	switch name {
	case EngineMPV, "":
		return MPVOpener{}, nil
	case EngineNative:
		return NativeOpener{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q, available: %v", name, Available)
	}
}
