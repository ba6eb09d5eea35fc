// Package playback owns the single live audio session of the application.
//
// A Controller runs one goroutine that holds every piece of session state.
// Public methods, engine callbacks, network results and timer ticks are all
// delivered to that goroutine in order, so nothing else needs locking.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/blob"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/player"
	"github.com/voicepages/voicepages/util"
)

var (
	// ErrNoTarget is returned by TogglePlayPause when nothing is loaded and no chapter is targeted.
	ErrNoTarget = errors.New("no chapter selected")

	// ErrNotReady is returned by transport calls while no audio has loaded.
	ErrNotReady = errors.New("audio is not loaded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")
)

const bookmarkTimeout = 10 * time.Second

// Deps are the collaborators of a controller. Cache, History and Prefs are optional.
type Deps struct {
	Backend Backend
	Opener  player.Opener
	Blobs   *blob.Store
	Store   *Store
	Cache   AudioCache
	History Recorder
	Prefs   Preferences
}

// session is one loaded chapter. It is replaced, never reused.
type session struct {
	gen     uint64
	target  Target
	cancel  context.CancelFunc
	engine  player.Engine
	source  *blob.Ref
	loaded  bool
	playing bool
	// moved and toggled record user seeks and play/pause; a late bookmark
	// restore does not override either.
	moved   bool
	toggled bool
}

// Controller coordinates one audio engine session.
type Controller struct {
	deps Deps
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	qmu   sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	timers    atomic.Int32

	// owned by the loop goroutine
	sess     *session
	gen      uint64
	target   Target
	position float64
	speed    float64
	volume   float64
	pollStop chan struct{}
	saveStop chan struct{}
}

// New creates a controller and starts its loop.
func New(deps Deps, opts Options) *Controller {
	if deps.Store == nil {
		deps.Store = NewStore(opts.Speed, opts.Volume)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		deps:   deps,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		speed:  util.Clamp(opts.Speed, MinSpeed, MaxSpeed),
		volume: util.Clamp(opts.Volume, MinVolume, MaxVolume),
	}

	c.deps.Store.update(func(s *Snapshot) {
		s.Speed = c.speed
		s.Volume = c.volume
	})

	go c.loop()
	return c
}

// Store returns the shared playback state.
func (c *Controller) Store() *Store {
	return c.deps.Store
}

func (c *Controller) loop() {
	for {
		select {
		case <-c.wake:
			for {
				c.qmu.Lock()
				if len(c.queue) == 0 {
					c.qmu.Unlock()
					break
				}
				fn := c.queue[0]
				c.queue[0] = nil
				c.queue = c.queue[1:]
				c.qmu.Unlock()

				fn()
			}
		case <-c.ctx.Done():
			close(c.done)
			return
		}
	}
}

// post queues fn for the loop. It never blocks.
func (c *Controller) post(fn func()) {
	c.qmu.Lock()
	c.queue = append(c.queue, fn)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// call runs fn on the loop and waits for it.
func (c *Controller) call(fn func() error) error {
	result := make(chan error, 1)
	c.post(func() { result <- fn() })

	select {
	case err := <-result:
		return err
	case <-c.done:
		return ErrClosed
	}
}

// Target sets the chapter the user is looking at. Moving away from the
// chapter of the live session tears the session down.
func (c *Controller) Target(t Target) error {
	return c.call(func() error {
		if c.sess != nil && !c.sess.target.Same(t) {
			c.teardown()
			c.resetSession()
		}
		if c.sess != nil && t.Title != "" {
			c.sess.target.Title = t.Title
		}

		c.target = t
		c.deps.Store.update(func(s *Snapshot) {
			s.BookID = t.BookID
			s.Chapter = t.Chapter
			s.Title = t.Title
		})
		return nil
	})
}

// LoadAndPlay supersedes any session and starts loading the chapter.
// It returns once loading has started; the outcome arrives through the Store.
func (c *Controller) LoadAndPlay(t Target) error {
	return c.call(func() error {
		c.load(t)
		return nil
	})
}

// TogglePlayPause loads the targeted chapter when nothing is loaded and
// otherwise asks the engine to play or pause.
func (c *Controller) TogglePlayPause() error {
	return c.call(func() error {
		s := c.sess
		switch {
		case s == nil:
			if c.target.IsZero() {
				return ErrNoTarget
			}
			c.load(c.target)
			return nil
		case !s.loaded:
			return nil
		}

		s.toggled = true
		if s.playing {
			if err := s.engine.Pause(); err != nil {
				return fmt.Errorf("pause: %w", err)
			}
			c.refreshPosition()
			if c.opts.AutoBookmark {
				c.persist()
			}
			return nil
		}

		if err := s.engine.Play(); err != nil {
			return fmt.Errorf("play: %w", err)
		}
		return nil
	})
}

// SeekTo moves to an absolute position, clamped to the chapter.
func (c *Controller) SeekTo(seconds float64) error {
	return c.call(func() error {
		return c.seek(seconds)
	})
}

// SeekFraction moves to a fraction of the chapter, from 0 to 1.
func (c *Controller) SeekFraction(f float64) error {
	return c.call(func() error {
		if c.sess == nil || !c.sess.loaded {
			return ErrNotReady
		}
		return c.seek(util.Clamp(f, 0, 1) * c.sess.engine.Duration())
	})
}

// Skip moves relative to the current position.
func (c *Controller) Skip(delta float64) error {
	return c.call(func() error {
		return c.seek(c.position + delta)
	})
}

// SetSpeed changes the speed of the live engine and of every later session.
func (c *Controller) SetSpeed(multiplier float64) error {
	return c.call(func() error {
		c.speed = util.Clamp(multiplier, MinSpeed, MaxSpeed)
		c.deps.Store.update(func(s *Snapshot) { s.Speed = c.speed })
		c.savePrefs()

		if c.sess != nil && c.sess.loaded {
			return c.sess.engine.SetRate(c.speed)
		}
		return nil
	})
}

// SetVolume changes the level of the live engine and of every later session.
func (c *Controller) SetVolume(level float64) error {
	return c.call(func() error {
		c.volume = util.Clamp(level, MinVolume, MaxVolume)
		c.deps.Store.update(func(s *Snapshot) { s.Volume = c.volume })
		c.savePrefs()

		if c.sess != nil && c.sess.loaded {
			return c.sess.engine.SetVolume(c.volume)
		}
		return nil
	})
}

// Stop tears the session down. It is safe to call at any time.
func (c *Controller) Stop() error {
	return c.call(func() error {
		c.teardown()
		c.resetSession()
		return nil
	})
}

// Close stops the session and ends the loop.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		_ = c.Stop()
		c.cancel()
		<-c.done
	})
	return nil
}

func (c *Controller) load(t Target) {
	c.teardown()

	c.gen++
	ctx, cancel := context.WithCancel(c.ctx)
	s := &session{gen: c.gen, target: t, cancel: cancel}
	if t.Title == "" && c.target.Same(t) {
		s.target.Title = c.target.Title
	}
	c.sess = s
	c.target = s.target
	c.position = 0

	c.deps.Store.update(func(snap *Snapshot) {
		snap.Status = StatusLoading
		snap.Playing = false
		snap.Position = 0
		snap.Duration = 0
		snap.BookID = s.target.BookID
		snap.Chapter = s.target.Chapter
		snap.Title = s.target.Title
		snap.Err = ""
	})

	log.WithFields(log.Fields{"book": t.BookID, "chapter": t.Chapter}).Debug("loading chapter audio")

	gen := s.gen
	go func() {
		ref, err := fetchSource(ctx, c.deps.Backend, c.deps.Cache, c.deps.Blobs, t.BookID, t.Chapter)
		c.post(func() { c.sourceReady(gen, t, ref, err) })
	}()
}

// sourceReady opens the engine once audio is available. Results for a
// superseded session are dropped and their source released.
func (c *Controller) sourceReady(gen uint64, t Target, ref *blob.Ref, err error) {
	s := c.sess
	if s == nil || s.gen != gen || !s.target.Same(t) {
		log.Debugf("dropping stale audio for %s/%d", t.BookID, t.Chapter)
		_ = ref.Release()
		return
	}

	if err != nil {
		c.fail(err)
		return
	}

	engine, err := c.deps.Opener.Open(ref.Path(), player.Options{
		Title:  s.target.Title,
		Rate:   c.speed,
		Volume: c.volume,
	}, c.callbacks(gen))
	if err != nil {
		_ = ref.Release()
		c.fail(err)
		return
	}

	s.engine = engine
	s.source = ref
}

func (c *Controller) callbacks(gen uint64) player.Callbacks {
	emit := func(ev Event) {
		c.post(func() { c.handle(gen, ev) })
	}

	return player.Callbacks{
		OnLoad:      func() { emit(EventLoad{}) },
		OnLoadError: func(err error) { emit(EventLoadError{Err: err}) },
		OnPlay:      func() { emit(EventPlay{}) },
		OnPause:     func() { emit(EventPause{}) },
		OnStop:      func() { emit(EventStop{}) },
		OnEnd:       func() { emit(EventEnd{}) },
	}
}

// handle applies one engine transition to the session it belongs to.
func (c *Controller) handle(gen uint64, ev Event) {
	s := c.sess
	if s == nil || s.gen != gen || s.engine == nil {
		return
	}

	log.WithFields(log.Fields{"book": s.target.BookID, "chapter": s.target.Chapter, "event": fmt.Sprintf("%T", ev)}).Trace("engine event")

	switch ev := ev.(type) {
	case EventLoad:
		if s.loaded {
			return
		}
		s.loaded = true
		c.deps.Store.update(func(snap *Snapshot) {
			snap.Status = StatusPaused
			snap.Duration = s.engine.Duration()
		})
		c.restore(s)

	case EventLoadError:
		c.fail(ev.Err)

	case EventPlay:
		s.playing = true
		c.deps.Store.update(func(snap *Snapshot) {
			snap.Status = StatusPlaying
			snap.Playing = true
		})
		c.startTimers()

	case EventPause:
		s.playing = false
		c.stopTimers()
		c.deps.Store.update(func(snap *Snapshot) {
			snap.Status = StatusPaused
			snap.Playing = false
		})

	case EventStop:
		s.playing = false
		c.stopTimers()
		c.setPosition(0)
		c.deps.Store.update(func(snap *Snapshot) {
			snap.Status = StatusPaused
			snap.Playing = false
		})

	case EventEnd:
		s.playing = false
		c.stopTimers()
		c.setPosition(s.engine.Duration())
		c.deps.Store.update(func(snap *Snapshot) {
			snap.Status = StatusPaused
			snap.Playing = false
		})
		if c.opts.AutoBookmark {
			c.persist()
		} else {
			c.record()
		}
		c.onEnd(s)
	}
}

func (c *Controller) onEnd(s *session) {
	if c.opts.EndPolicy != EndAdvance || c.opts.Advance == nil {
		return
	}

	next, ok := c.opts.Advance(s.target)
	if !ok {
		return
	}
	c.load(next)
}

// restore seeks to a stored bookmark of the same chapter, then starts playback.
func (c *Controller) restore(s *session) {
	gen, t := s.gen, s.target
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, bookmarkTimeout)
		defer cancel()

		var resume float64
		bookmark, err := c.deps.Backend.GetBookmark(ctx, t.BookID)
		if err != nil {
			log.Debugf("bookmark restore for %s: %s", t.BookID, err)
		} else if bm, ok := bookmark.Get(); ok && bm.Chapter == t.Chapter && bm.Position > c.opts.RestoreThreshold {
			resume = bm.Position
		}

		c.post(func() { c.restored(gen, resume) })
	}()
}

func (c *Controller) restored(gen uint64, resume float64) {
	s := c.sess
	if s == nil || s.gen != gen {
		return
	}

	if resume > 0 && !s.moved {
		if err := c.seek(resume); err != nil {
			log.Warnf("resume at %.1fs: %s", resume, err)
		}
	}

	if !s.playing && !s.toggled {
		if err := s.engine.Play(); err != nil {
			c.fail(fmt.Errorf("play: %w", err))
		}
	}
}

func (c *Controller) seek(seconds float64) error {
	s := c.sess
	if s == nil || !s.loaded {
		return ErrNotReady
	}

	s.moved = true
	seconds = util.Clamp(seconds, 0, s.engine.Duration())
	if _, err := s.engine.Seek(seconds); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	c.setPosition(seconds)
	return nil
}

func (c *Controller) setPosition(seconds float64) {
	c.position = seconds
	c.deps.Store.update(func(snap *Snapshot) { snap.Position = seconds })
}

// refreshPosition reads the engine position into the state.
func (c *Controller) refreshPosition() {
	s := c.sess
	if s == nil || !s.loaded {
		return
	}

	pos, err := s.engine.Position()
	if err != nil {
		log.Tracef("poll position: %s", err)
		return
	}
	c.setPosition(util.Clamp(pos, 0, s.engine.Duration()))
}

// fail reports a load failure and returns to Empty.
func (c *Controller) fail(err error) {
	log.Errorf("load audio: %s", err)

	c.teardown()
	c.resetSession()
	c.deps.Store.update(func(snap *Snapshot) {
		snap.Err = "Failed to load audio: " + err.Error()
	})
}

// teardown stops the engine, releases it, releases the source and forgets the session, in that order.
func (c *Controller) teardown() {
	s := c.sess
	if s == nil {
		return
	}
	c.sess = nil
	c.stopTimers()
	s.cancel()

	if s.engine != nil {
		if s.loaded {
			c.recordSession(s)
			if err := s.engine.Stop(); err != nil {
				log.Debugf("stop engine: %s", err)
			}
		}
		if err := s.engine.Unload(); err != nil {
			log.Warnf("unload engine: %s", err)
		}
	}

	if err := s.source.Release(); err != nil {
		log.Warnf("release source: %s", err)
	}
}

// resetSession clears the session fields of the state, keeping the target.
func (c *Controller) resetSession() {
	c.position = 0
	c.deps.Store.update(func(snap *Snapshot) {
		snap.Status = StatusEmpty
		snap.Playing = false
		snap.Position = 0
		snap.Duration = 0
		snap.Err = ""
		snap.BookID = c.target.BookID
		snap.Chapter = c.target.Chapter
		snap.Title = c.target.Title
	})
}

// persist saves the current position to the server without waiting. Failures are ignored.
func (c *Controller) persist() {
	s := c.sess
	if s == nil || !s.loaded {
		return
	}

	bookID := s.target.BookID
	bookmark := api.Bookmark{Chapter: s.target.Chapter, Position: c.position}
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, bookmarkTimeout)
		defer cancel()

		if err := c.deps.Backend.SaveBookmark(ctx, bookID, bookmark); err != nil {
			log.Debugf("save bookmark for %s: %s", bookID, err)
		}
	}()

	c.record()
}

func (c *Controller) record() {
	if c.sess != nil && c.sess.loaded {
		c.recordSession(c.sess)
	}
}

func (c *Controller) recordSession(s *session) {
	if c.deps.History == nil {
		return
	}

	err := c.deps.History.Record(Progress{
		Target:   s.target,
		Position: c.position,
		Duration: s.engine.Duration(),
	})
	if err != nil {
		log.Warnf("record history: %s", err)
	}
}

func (c *Controller) savePrefs() {
	if c.deps.Prefs == nil {
		return
	}
	if err := c.deps.Prefs.SavePlayback(c.speed, c.volume); err != nil {
		log.Warnf("save playback preferences: %s", err)
	}
}
