package playback

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/util"
)

// EndPolicy decides what happens when a chapter finishes.
type EndPolicy int

const (
	// EndStop leaves the session Ready-Paused at the end of the chapter.
	EndStop EndPolicy = iota
	// EndAdvance asks Options.Advance for the next chapter and loads it.
	EndAdvance
)

func (p EndPolicy) String() string {
	if p == EndAdvance {
		return "advance"
	}
	return "stop"
}

// ParseEndPolicy parses "stop" or "advance".
func ParseEndPolicy(s string) (EndPolicy, error) {
	switch s {
	case "stop", "":
		return EndStop, nil
	case "advance":
		return EndAdvance, nil
	default:
		return EndStop, fmt.Errorf("unknown end policy %q, expected stop or advance", s)
	}
}

// Speed and volume bounds.
const (
	MinSpeed  = 0.5
	MaxSpeed  = 3.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// Options tune a controller.
type Options struct {
	PollInterval     time.Duration
	BookmarkInterval time.Duration
	// RestoreThreshold is the bookmark position, in seconds, below which playback starts from 0.
	RestoreThreshold float64
	// AutoBookmark enables saving on pause and on the bookmark timer.
	AutoBookmark bool
	EndPolicy    EndPolicy
	// Advance returns the chapter after current. It runs on the controller
	// goroutine and must not call back into the controller.
	Advance func(current Target) (Target, bool)
	Speed   float64
	Volume  float64
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		PollInterval:     200 * time.Millisecond,
		BookmarkInterval: 15 * time.Second,
		RestoreThreshold: 5,
		AutoBookmark:     true,
		EndPolicy:        EndStop,
		Speed:            1,
		Volume:           1,
	}
}

// OptionsFromConfig reads options from the loaded configuration.
func OptionsFromConfig() Options {
	opts := DefaultOptions()

	if ms := viper.GetInt(key.PlayerPollIntervalMs); ms > 0 {
		opts.PollInterval = time.Duration(ms) * time.Millisecond
	}
	if secs := viper.GetInt(key.BookmarkIntervalSeconds); secs > 0 {
		opts.BookmarkInterval = time.Duration(secs) * time.Second
	}
	opts.RestoreThreshold = viper.GetFloat64(key.BookmarkRestoreThresholdSeconds)
	opts.AutoBookmark = viper.GetBool(key.BookmarkAuto)
	opts.Speed = util.Clamp(viper.GetFloat64(key.PlayerSpeed), MinSpeed, MaxSpeed)
	opts.Volume = util.Clamp(viper.GetFloat64(key.PlayerVolume), MinVolume, MaxVolume)

	if policy, err := ParseEndPolicy(viper.GetString(key.PlayerOnEnd)); err == nil {
		opts.EndPolicy = policy
	}

	return opts
}
