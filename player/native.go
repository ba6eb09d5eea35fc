package player

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/voicepages/voicepages/filesystem"
)

// speakerRate is the fixed output rate; every source is resampled to it.
const speakerRate beep.SampleRate = 44100

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// NativeOpener plays audio in-process through the system speaker.
type NativeOpener struct{}

// Native is an Engine decoding WAV or MP3 with beep.
// Speed changes resample the stream, so pitch follows speed.
type Native struct {
	cb Callbacks

	mu        sync.Mutex
	file      io.Closer
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	volume    *effects.Volume
	rate      float64
	level     float64

	// read on the speaker goroutine, which must not take mu
	unloaded atomic.Bool
	ended    atomic.Bool
}

// Open decodes path in the background and queues it on the speaker, paused.
func (NativeOpener) Open(path string, opts Options, cb Callbacks) (Engine, error) {
	n := &Native{cb: cb}
	go n.load(path, opts)
	return n, nil
}

func (n *Native) load(path string, opts Options) {
	if err := initSpeaker(); err != nil {
		n.cb.loadError(fmt.Errorf("init speaker: %w", err))
		return
	}

	f, err := filesystem.API().Open(path)
	if err != nil {
		n.cb.loadError(fmt.Errorf("open audio: %w", err))
		return
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav", "":
		streamer, format, err = wav.Decode(f)
	default:
		err = fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}
	if err != nil {
		_ = f.Close()
		n.cb.loadError(fmt.Errorf("decode audio: %w", err))
		return
	}

	n.mu.Lock()
	if n.unloaded.Load() {
		n.mu.Unlock()
		_ = streamer.Close()
		_ = f.Close()
		return
	}
	n.file = f
	n.streamer = streamer
	n.format = format
	n.rate = opts.Rate
	if n.rate <= 0 {
		n.rate = 1
	}
	n.level = opts.Volume
	n.queue(true)
	n.mu.Unlock()

	n.cb.load()
}

// queue builds the effect chain over the decoded stream and hands it to the speaker.
// Callers hold mu.
func (n *Native) queue(paused bool) {
	n.ctrl = &beep.Ctrl{Streamer: n.streamer, Paused: paused}
	n.resampler = beep.ResampleRatio(4, n.baseRatio()*n.rate, n.ctrl)
	n.volume = &effects.Volume{Streamer: n.resampler, Base: 2}
	n.applyVolume(n.level)
	n.ended.Store(false)

	speaker.Play(beep.Seq(n.volume, beep.Callback(n.finished)))
}

// finished runs on the speaker goroutine, under the speaker lock, when the stream drains.
func (n *Native) finished() {
	if n.unloaded.Load() {
		return
	}
	if n.ended.CompareAndSwap(false, true) {
		go n.cb.end()
	}
}

func (n *Native) baseRatio() float64 {
	return float64(n.format.SampleRate) / float64(speakerRate)
}

// applyVolume maps a 0..1 level onto beep's base-2 logarithmic scale.
// Callers hold the speaker lock or own the streamer exclusively.
func (n *Native) applyVolume(level float64) {
	n.level = level
	switch {
	case level <= 0:
		n.volume.Silent = true
		n.volume.Volume = -10
	case level >= 1:
		n.volume.Silent = false
		n.volume.Volume = 0
	default:
		n.volume.Silent = false
		n.volume.Volume = math.Log2(level)
	}
}

func (n *Native) ready() error {
	if n.unloaded.Load() {
		return ErrUnloaded
	}
	if n.ctrl == nil {
		return fmt.Errorf("audio not loaded")
	}
	return nil
}

// Play resumes playback. A drained stream is rewound and queued again.
func (n *Native) Play() error {
	n.mu.Lock()
	if err := n.ready(); err != nil {
		n.mu.Unlock()
		return err
	}
	if n.ended.Load() {
		speaker.Lock()
		if n.streamer.Position() >= n.streamer.Len() {
			_ = n.streamer.Seek(0)
		}
		speaker.Unlock()
		n.queue(false)
	} else {
		speaker.Lock()
		n.ctrl.Paused = false
		speaker.Unlock()
	}
	n.mu.Unlock()

	n.cb.play()
	return nil
}

// Pause suspends playback.
func (n *Native) Pause() error {
	n.mu.Lock()
	if err := n.ready(); err != nil {
		n.mu.Unlock()
		return err
	}
	speaker.Lock()
	n.ctrl.Paused = true
	speaker.Unlock()
	n.mu.Unlock()

	n.cb.pause()
	return nil
}

// Stop pauses and rewinds to the start.
func (n *Native) Stop() error {
	n.mu.Lock()
	if err := n.ready(); err != nil {
		n.mu.Unlock()
		return err
	}
	speaker.Lock()
	n.ctrl.Paused = true
	err := n.streamer.Seek(0)
	speaker.Unlock()
	n.mu.Unlock()

	if err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	n.cb.stop()
	return nil
}

// Seek moves to an absolute position in seconds.
func (n *Native) Seek(seconds float64) (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ready(); err != nil {
		return 0, err
	}

	sample := n.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	sample = max(0, min(sample, n.streamer.Len()-1))

	speaker.Lock()
	err := n.streamer.Seek(sample)
	speaker.Unlock()
	if err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}

	return n.format.SampleRate.D(sample).Seconds(), nil
}

// Position returns the current playback position in seconds.
func (n *Native) Position() (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ready(); err != nil {
		return 0, err
	}

	speaker.Lock()
	pos := n.streamer.Position()
	speaker.Unlock()
	return n.format.SampleRate.D(pos).Seconds(), nil
}

// Duration returns the decoded length.
func (n *Native) Duration() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.streamer == nil {
		return 0
	}
	return n.format.SampleRate.D(n.streamer.Len()).Seconds()
}

// SetRate resamples to the given speed multiplier.
func (n *Native) SetRate(multiplier float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ready(); err != nil {
		return err
	}
	if multiplier <= 0 {
		return fmt.Errorf("invalid rate %g", multiplier)
	}

	n.rate = multiplier
	speaker.Lock()
	n.resampler.SetRatio(n.baseRatio() * multiplier)
	speaker.Unlock()
	return nil
}

// SetVolume sets the output level.
func (n *Native) SetVolume(level float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ready(); err != nil {
		return err
	}

	speaker.Lock()
	n.applyVolume(level)
	speaker.Unlock()
	return nil
}

// Unload removes the stream from the speaker and closes the source.
func (n *Native) Unload() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.unloaded.CompareAndSwap(false, true) {
		return nil
	}

	if n.ctrl == nil {
		return nil
	}

	speaker.Lock()
	n.ctrl.Paused = true
	n.ctrl.Streamer = nil
	speaker.Unlock()

	err := n.streamer.Close()
	// Decoders may already have closed the file.
	_ = n.file.Close()
	if err != nil {
		return fmt.Errorf("unload: %w", err)
	}
	return nil
}
