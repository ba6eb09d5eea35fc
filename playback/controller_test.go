package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/blob"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/player"
)

type fakeBackend struct {
	mu        sync.Mutex
	audio     map[int]api.Audio
	fetchErr  error
	genErr    error
	generated []int
	bookmark  mo.Option[api.Bookmark]
	saved     []api.Bookmark
	gates     map[int]chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		audio: map[int]api.Audio{
			1: {Data: []byte("RIFF-1"), ContentType: "audio/wav"},
			2: {Data: []byte("RIFF-2"), ContentType: "audio/wav"},
			3: {Data: []byte("RIFF-3"), ContentType: "audio/wav"},
		},
		bookmark: mo.None[api.Bookmark](),
		gates:    map[int]chan struct{}{},
	}
}

// gate makes FetchAudio for chapter block until the returned channel is closed.
// The fetch ignores cancellation so its result arrives after it was superseded.
func (b *fakeBackend) gate(chapter int) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.gates[chapter] = ch
	return ch
}

func (b *fakeBackend) FetchAudio(_ context.Context, _ string, chapter int) (api.Audio, error) {
	b.mu.Lock()
	gate := b.gates[chapter]
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return api.Audio{}, b.fetchErr
	}
	audio, ok := b.audio[chapter]
	if !ok {
		return api.Audio{}, api.ErrNoAudio
	}
	return audio, nil
}

func (b *fakeBackend) GenerateAudio(_ context.Context, _ string, chapter int) (api.Audio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generated = append(b.generated, chapter)
	if b.genErr != nil {
		return api.Audio{}, b.genErr
	}
	return api.Audio{Data: []byte("RIFF-gen"), ContentType: "audio/wav"}, nil
}

func (b *fakeBackend) GetBookmark(context.Context, string) (mo.Option[api.Bookmark], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bookmark, nil
}

func (b *fakeBackend) SaveBookmark(_ context.Context, _ string, bm api.Bookmark) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, bm)
	return errors.New("server unavailable")
}

func (b *fakeBackend) Saved() []api.Bookmark {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Bookmark(nil), b.saved...)
}

func (b *fakeBackend) Generated() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.generated...)
}

type recorder struct {
	mu      sync.Mutex
	entries []Progress
}

func (r *recorder) Record(p Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, p)
	return nil
}

func (r *recorder) Last() (Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Progress{}, false
	}
	return r.entries[len(r.entries)-1], true
}

type harness struct {
	ctrl    *Controller
	backend *fakeBackend
	opener  *player.MockOpener
	blobs   *blob.Store
	store   *Store
	history *recorder
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	filesystem.SetMemMapFs()
	require.NoError(t, filesystem.API().MkdirAll("/tmp/voicepages", 0o755))

	h := &harness{
		backend: newFakeBackend(),
		opener:  player.NewMockOpener(),
		blobs:   blob.NewStore("/tmp/voicepages"),
		store:   NewStore(1, 1),
		history: &recorder{},
	}
	h.ctrl = New(Deps{
		Backend: h.backend,
		Opener:  h.opener,
		Blobs:   h.blobs,
		Store:   h.store,
		History: h.history,
	}, opts)
	return h
}

// ready loads chapter of book B1 and finishes engine loading with duration.
func (h *harness) ready(t *testing.T, chapter int, duration float64) *player.Mock {
	t.Helper()

	require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: chapter, Title: "Chapter"}))
	synctest.Wait()

	engine := h.opener.Last()
	require.NotNil(t, engine)
	engine.Load(duration)
	synctest.Wait()
	return engine
}

func TestLoadAndPlayStartsPlayback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()

		require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: 1, Title: "One"}))
		assert.Equal(t, StatusLoading, h.store.Snapshot().Status)

		synctest.Wait()
		engine := h.opener.Last()
		require.NotNil(t, engine)
		assert.Empty(t, engine.Calls(), "no engine calls before load")

		engine.Load(120)
		synctest.Wait()

		snap := h.store.Snapshot()
		assert.Equal(t, StatusPlaying, snap.Status)
		assert.True(t, snap.Playing)
		assert.Equal(t, 120.0, snap.Duration)
		assert.Equal(t, 0.0, snap.Position)
		assert.Equal(t, "One", snap.Title)
		assert.Equal(t, []string{"play"}, engine.Calls())
	})
}

func TestRestoreFromBookmark(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		h.backend.bookmark = mo.Some(api.Bookmark{Chapter: 3, Position: 150})

		engine := h.ready(t, 3, 312.4)

		assert.Equal(t, []float64{150}, engine.SeekCalls())
		assert.Equal(t, []string{"seek", "play"}, engine.Calls())
		assert.Equal(t, 150.0, h.store.Snapshot().Position)
		assert.True(t, h.store.Snapshot().Playing)
	})
}

func TestRestoreIgnoresUnrelatedBookmarks(t *testing.T) {
	tests := []struct {
		name     string
		bookmark mo.Option[api.Bookmark]
	}{
		{name: "no bookmark", bookmark: mo.None[api.Bookmark]()},
		{name: "other chapter", bookmark: mo.Some(api.Bookmark{Chapter: 2, Position: 150})},
		{name: "near the start", bookmark: mo.Some(api.Bookmark{Chapter: 3, Position: 4})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				h := newHarness(t, DefaultOptions())
				defer h.ctrl.Close()
				h.backend.bookmark = tt.bookmark

				engine := h.ready(t, 3, 312.4)

				assert.Empty(t, engine.SeekCalls())
				assert.Equal(t, 0.0, h.store.Snapshot().Position)
				assert.Equal(t, StatusPlaying, h.store.Snapshot().Status)
			})
		})
	}
}

func TestSkipStaysWithinChapter(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		h.ready(t, 1, 200)

		for _, delta := range []float64{-1000, -15, 0, 15, 30, 199, 1000, -0.5} {
			require.NoError(t, h.ctrl.Skip(delta))
			pos := h.store.Snapshot().Position
			assert.GreaterOrEqual(t, pos, 0.0, "delta %v", delta)
			assert.LessOrEqual(t, pos, 200.0, "delta %v", delta)
		}

		require.NoError(t, h.ctrl.SeekTo(50))
		require.NoError(t, h.ctrl.Skip(15))
		assert.Equal(t, 65.0, h.store.Snapshot().Position)
		require.NoError(t, h.ctrl.Skip(-100))
		assert.Equal(t, 0.0, h.store.Snapshot().Position)
	})
}

func TestSeekIsOptimistic(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		engine := h.ready(t, 1, 200)

		require.NoError(t, h.ctrl.SeekFraction(0.5))
		assert.Equal(t, 100.0, h.store.Snapshot().Position)
		assert.Equal(t, []float64{100}, engine.SeekCalls())

		require.NoError(t, h.ctrl.SeekTo(500))
		assert.Equal(t, 200.0, h.store.Snapshot().Position)
	})
}

func TestTransportBeforeLoad(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()

		assert.ErrorIs(t, h.ctrl.SeekTo(10), ErrNotReady)
		assert.ErrorIs(t, h.ctrl.Skip(10), ErrNotReady)
		assert.ErrorIs(t, h.ctrl.TogglePlayPause(), ErrNoTarget)
		assert.NoError(t, h.ctrl.Stop())
	})
}

func TestToggleOnEmptyLoadsTarget(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()

		require.NoError(t, h.ctrl.Target(Target{BookID: "B1", Chapter: 2, Title: "Two"}))
		assert.Equal(t, StatusEmpty, h.store.Snapshot().Status)

		require.NoError(t, h.ctrl.TogglePlayPause())
		assert.Equal(t, StatusLoading, h.store.Snapshot().Status)

		// Toggling while loading does nothing.
		require.NoError(t, h.ctrl.TogglePlayPause())

		synctest.Wait()
		require.Len(t, h.opener.Engines(), 1)
		engine := h.opener.Last()
		assert.Equal(t, "Two", engine.Opts.Title)

		engine.Load(60)
		synctest.Wait()
		assert.Equal(t, StatusPlaying, h.store.Snapshot().Status)
		assert.Equal(t, 2, h.store.Snapshot().Chapter)
	})
}

func TestTogglePausesAndSavesBookmark(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		engine := h.ready(t, 3, 300)
		engine.SetPosition(42)

		require.NoError(t, h.ctrl.TogglePlayPause())
		synctest.Wait()

		snap := h.store.Snapshot()
		assert.Equal(t, StatusPaused, snap.Status)
		assert.False(t, snap.Playing)
		assert.Equal(t, 42.0, snap.Position)
		assert.Equal(t, []api.Bookmark{{Chapter: 3, Position: 42}}, h.backend.Saved())

		last, ok := h.history.Last()
		require.True(t, ok)
		assert.Equal(t, 42.0, last.Position)

		require.NoError(t, h.ctrl.TogglePlayPause())
		synctest.Wait()
		assert.Equal(t, StatusPlaying, h.store.Snapshot().Status)
	})
}

func TestPauseWithoutAutoBookmark(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		opts := DefaultOptions()
		opts.AutoBookmark = false
		h := newHarness(t, opts)
		defer h.ctrl.Close()
		h.ready(t, 3, 300)

		time.Sleep(time.Minute)
		require.NoError(t, h.ctrl.TogglePlayPause())
		synctest.Wait()

		assert.Empty(t, h.backend.Saved())
		assert.Equal(t, int32(0), h.ctrl.timers.Load())
	})
}

func TestTimersFollowPlayingState(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		engine := h.ready(t, 1, 600)

		assert.Equal(t, int32(2), h.ctrl.timers.Load())

		engine.SetPosition(12.5)
		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, 12.5, h.store.Snapshot().Position)

		time.Sleep(15 * time.Second)
		synctest.Wait()
		saved := h.backend.Saved()
		require.Len(t, saved, 1)
		assert.Equal(t, 12.5, saved[0].Position)

		require.NoError(t, h.ctrl.TogglePlayPause())
		synctest.Wait()
		assert.Equal(t, int32(0), h.ctrl.timers.Load())

		// No polling while paused.
		engine.SetPosition(99)
		time.Sleep(time.Minute)
		synctest.Wait()
		assert.Equal(t, 12.5, h.store.Snapshot().Position)
		assert.Len(t, h.backend.Saved(), 2)

		// Resuming starts exactly one of each again.
		require.NoError(t, h.ctrl.TogglePlayPause())
		synctest.Wait()
		assert.Equal(t, int32(2), h.ctrl.timers.Load())

		require.NoError(t, h.ctrl.Stop())
		synctest.Wait()
		assert.Equal(t, int32(0), h.ctrl.timers.Load())
	})
}

func TestStopReleasesEverythingOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		engine := h.ready(t, 1, 100)
		assert.Equal(t, 1, h.blobs.Live())

		require.NoError(t, h.ctrl.Stop())
		require.NoError(t, h.ctrl.Stop())
		synctest.Wait()

		assert.Equal(t, 0, h.blobs.Live())
		assert.True(t, engine.Unloaded())
		assert.Equal(t, []string{"play", "stop", "unload"}, engine.Calls())

		snap := h.store.Snapshot()
		assert.Equal(t, StatusEmpty, snap.Status)
		assert.False(t, snap.Playing)
		assert.Equal(t, 0.0, snap.Duration)
	})
}

func TestLoadSupersedesSession(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		first := h.ready(t, 1, 100)

		require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: 2}))
		assert.True(t, first.Unloaded(), "previous engine released before the next load")

		synctest.Wait()
		require.Len(t, h.opener.Engines(), 2)
		assert.Equal(t, 1, h.blobs.Live())

		second := h.opener.Last()
		second.Load(80)
		synctest.Wait()
		assert.Equal(t, 2, h.store.Snapshot().Chapter)
		assert.Equal(t, StatusPlaying, h.store.Snapshot().Status)

		// Late events from the old engine are ignored.
		first.Finish()
		synctest.Wait()
		assert.Equal(t, StatusPlaying, h.store.Snapshot().Status)
	})
}

func TestStaleLoadIsDropped(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		gate := h.backend.gate(1)

		require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: 1}))
		synctest.Wait()
		require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: 2}))
		synctest.Wait()
		require.Len(t, h.opener.Engines(), 1)
		assert.Equal(t, 1, h.blobs.Live())

		close(gate)
		synctest.Wait()

		assert.Len(t, h.opener.Engines(), 1, "stale result must not open an engine")
		assert.Equal(t, 1, h.blobs.Live(), "stale source must be released")
		assert.Equal(t, 2, h.store.Snapshot().Chapter)
		assert.Equal(t, StatusLoading, h.store.Snapshot().Status)
	})
}

func TestTargetChangeTearsDown(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()
		engine := h.ready(t, 1, 100)

		require.NoError(t, h.ctrl.Target(Target{BookID: "B1", Chapter: 1, Title: "Renamed"}))
		assert.False(t, engine.Unloaded())
		assert.Equal(t, "Renamed", h.store.Snapshot().Title)

		require.NoError(t, h.ctrl.Target(Target{BookID: "B1", Chapter: 4, Title: "Four"}))
		synctest.Wait()
		assert.True(t, engine.Unloaded())
		assert.Equal(t, 0, h.blobs.Live())
		assert.Equal(t, int32(0), h.ctrl.timers.Load())

		snap := h.store.Snapshot()
		assert.Equal(t, StatusEmpty, snap.Status)
		assert.Equal(t, 4, snap.Chapter)
		assert.Equal(t, "Four", snap.Title)
	})
}

func TestLoadFailures(t *testing.T) {
	t.Run("synthesis fails", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			h := newHarness(t, DefaultOptions())
			defer h.ctrl.Close()
			h.backend.genErr = errors.New("tts offline")

			require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: 9}))
			synctest.Wait()

			snap := h.store.Snapshot()
			assert.Equal(t, StatusEmpty, snap.Status)
			assert.Contains(t, snap.Err, "tts offline")
			assert.Equal(t, []int{9}, h.backend.Generated())
			assert.Empty(t, h.opener.Engines())
		})
	})

	t.Run("engine cannot decode", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			h := newHarness(t, DefaultOptions())
			defer h.ctrl.Close()

			require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: 1}))
			synctest.Wait()
			engine := h.opener.Last()
			engine.FailLoad(errors.New("bad header"))
			synctest.Wait()

			snap := h.store.Snapshot()
			assert.Equal(t, StatusEmpty, snap.Status)
			assert.Contains(t, snap.Err, "bad header")
			assert.True(t, engine.Unloaded())
			assert.Equal(t, 0, h.blobs.Live())
		})
	})

	t.Run("engine cannot start", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			h := newHarness(t, DefaultOptions())
			defer h.ctrl.Close()
			h.opener.SetOpenErr(errors.New("mpv not found"))

			require.NoError(t, h.ctrl.LoadAndPlay(Target{BookID: "B1", Chapter: 1}))
			synctest.Wait()

			assert.Contains(t, h.store.Snapshot().Err, "mpv not found")
			assert.Equal(t, 0, h.blobs.Live())
		})
	})
}

func TestSynthesizesMissingAudio(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()

		h.ready(t, 7, 50)
		assert.Equal(t, []int{7}, h.backend.Generated())
		assert.Equal(t, StatusPlaying, h.store.Snapshot().Status)
	})
}

func TestEndPolicies(t *testing.T) {
	t.Run("stop", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			h := newHarness(t, DefaultOptions())
			defer h.ctrl.Close()
			engine := h.ready(t, 1, 90)

			engine.Finish()
			synctest.Wait()

			snap := h.store.Snapshot()
			assert.Equal(t, StatusPaused, snap.Status)
			assert.Equal(t, 90.0, snap.Position)
			assert.Equal(t, int32(0), h.ctrl.timers.Load())
			assert.Len(t, h.opener.Engines(), 1)

			saved := h.backend.Saved()
			require.NotEmpty(t, saved, "bookmark saved at end of chapter")
			assert.Equal(t, api.Bookmark{Chapter: 1, Position: 90}, saved[len(saved)-1])
		})
	})

	t.Run("advance", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			opts := DefaultOptions()
			opts.EndPolicy = EndAdvance
			opts.Advance = func(cur Target) (Target, bool) {
				if cur.Chapter >= 2 {
					return Target{}, false
				}
				return Target{BookID: cur.BookID, Chapter: cur.Chapter + 1, Title: "Next"}, true
			}
			h := newHarness(t, opts)
			defer h.ctrl.Close()
			first := h.ready(t, 1, 90)

			first.Finish()
			synctest.Wait()
			assert.True(t, first.Unloaded())
			require.Len(t, h.opener.Engines(), 2)
			assert.Equal(t, "Next", h.store.Snapshot().Title)

			second := h.opener.Last()
			second.Load(30)
			synctest.Wait()
			second.Finish()
			synctest.Wait()

			assert.Len(t, h.opener.Engines(), 2, "no chapter after the last one")
			assert.Equal(t, StatusPaused, h.store.Snapshot().Status)
		})
	})
}

func TestSpeedAndVolumeCarryOver(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		defer h.ctrl.Close()

		require.NoError(t, h.ctrl.SetSpeed(1.5))
		require.NoError(t, h.ctrl.SetVolume(3))
		assert.Equal(t, 1.5, h.store.Snapshot().Speed)
		assert.Equal(t, 1.0, h.store.Snapshot().Volume)

		engine := h.ready(t, 1, 100)
		assert.Equal(t, 1.5, engine.Opts.Rate)
		assert.Equal(t, 1.0, engine.Opts.Volume)

		require.NoError(t, h.ctrl.SetSpeed(0.1))
		require.NoError(t, h.ctrl.SetVolume(0.25))
		assert.Equal(t, 0.5, engine.Rate())
		assert.Equal(t, 0.25, engine.Volume())
	})
}

func TestCloseIsFinal(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t, DefaultOptions())
		engine := h.ready(t, 1, 100)

		require.NoError(t, h.ctrl.Close())
		require.NoError(t, h.ctrl.Close())
		assert.True(t, engine.Unloaded())
		assert.Equal(t, 0, h.blobs.Live())
		assert.ErrorIs(t, h.ctrl.Stop(), ErrClosed)
	})
}
