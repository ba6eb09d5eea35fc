package player

import (
	"testing"
	"time"

	"github.com/gopxl/beep/v2/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeLoadErrorIsReported(t *testing.T) {
	errs := make(chan error, 1)
	engine, err := NativeOpener{}.Open("/does/not/exist.wav", Options{Rate: 1, Volume: 1}, Callbacks{
		OnLoad:      func() { t.Error("unexpected load") },
		OnLoadError: func(err error) { errs <- err },
	})
	require.NoError(t, err)

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("load error was not reported")
	}

	_, err = engine.Position()
	assert.Error(t, err)
	assert.NoError(t, engine.Unload())
	assert.ErrorIs(t, engine.Play(), ErrUnloaded)
}

func TestNativeVolumeMapping(t *testing.T) {
	tests := []struct {
		level  float64
		volume float64
		silent bool
	}{
		{level: 1, volume: 0},
		{level: 0.5, volume: -1},
		{level: 0.25, volume: -2},
		{level: 0, volume: -10, silent: true},
	}

	for _, tt := range tests {
		n := &Native{volume: &effects.Volume{Base: 2}}
		n.applyVolume(tt.level)
		assert.InDelta(t, tt.volume, n.volume.Volume, 1e-9, "level %v", tt.level)
		assert.Equal(t, tt.silent, n.volume.Silent, "level %v", tt.level)
	}
}
