package history

import (
	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/where"
)

// Playback is the remembered speed and volume.
type Playback struct {
	Speed  float64 `json:"speed"`
	Volume float64 `json:"volume"`
}

var prefsCacher = gache.New[*Playback](
	&gache.Options{
		Path:       where.Preferences(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Prefs persists speed and volume between runs.
type Prefs struct{}

var _ playback.Preferences = Prefs{}

// SavePlayback implements playback.Preferences.
func (Prefs) SavePlayback(speed, volume float64) error {
	return prefsCacher.Set(&Playback{Speed: speed, Volume: volume})
}

// Load returns the remembered values, if any.
func (Prefs) Load() mo.Option[Playback] {
	cached, expired, err := prefsCacher.Get()
	if err != nil || expired || cached == nil {
		return mo.None[Playback]()
	}
	return mo.Some(*cached)
}

// Apply overrides the speed and volume of opts with remembered values.
func (p Prefs) Apply(opts playback.Options) playback.Options {
	if saved, ok := p.Load().Get(); ok {
		if saved.Speed > 0 {
			opts.Speed = saved.Speed
		}
		opts.Volume = saved.Volume
	}
	return opts
}
