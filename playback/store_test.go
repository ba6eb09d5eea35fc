package playback

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicepages/voicepages/key"
)

func TestStoreNotifiesOnChange(t *testing.T) {
	store := NewStore(1, 1)
	sub := store.Subscribe()
	defer sub.Close()

	store.update(func(s *Snapshot) { s.Status = StatusLoading })
	store.update(func(s *Snapshot) { s.Status = StatusLoading })
	store.update(func(s *Snapshot) { s.Position = 3 })

	first := <-sub.C()
	assert.Equal(t, StatusLoading, first.Status)
	second := <-sub.C()
	assert.Equal(t, 3.0, second.Position)
	assert.Empty(t, sub.C(), "unchanged state is not delivered")
}

func TestSlowSubscriberKeepsLatest(t *testing.T) {
	store := NewStore(1, 1)
	sub := store.Subscribe()
	defer sub.Close()

	for i := 1; i <= 3*subscriptionBuffer; i++ {
		store.update(func(s *Snapshot) { s.Position = float64(i) })
	}

	var last Snapshot
	for len(sub.C()) > 0 {
		last = <-sub.C()
	}
	assert.Equal(t, float64(3*subscriptionBuffer), last.Position)
}

func TestSubscriptionClose(t *testing.T) {
	store := NewStore(1, 1)
	sub := store.Subscribe()
	sub.Close()
	sub.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)

	other := store.Subscribe()
	store.Reset()
	_, ok = <-other.C()
	assert.False(t, ok)
	other.Close()

	store.update(func(s *Snapshot) { s.Title = "after reset" })
	assert.Equal(t, "after reset", store.Snapshot().Title)
}

func TestResetKeepsPreferences(t *testing.T) {
	store := NewStore(1.25, 0.5)
	store.update(func(s *Snapshot) {
		s.Status = StatusPlaying
		s.Duration = 10
	})

	store.Reset()
	snap := store.Snapshot()
	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Equal(t, 1.25, snap.Speed)
	assert.Equal(t, 0.5, snap.Volume)
}

func TestSnapshotFraction(t *testing.T) {
	assert.Equal(t, 0.0, Snapshot{Position: 5}.Fraction())
	assert.Equal(t, 0.25, Snapshot{Position: 50, Duration: 200}.Fraction())
}

func TestStatus(t *testing.T) {
	assert.False(t, StatusEmpty.IsReady())
	assert.False(t, StatusLoading.IsReady())
	assert.True(t, StatusPaused.IsReady())
	assert.True(t, StatusPlaying.IsReady())
	assert.Equal(t, "Playing", StatusPlaying.String())
}

func TestTarget(t *testing.T) {
	a := Target{BookID: "B1", Chapter: 2, Title: "Two"}
	assert.True(t, a.Same(Target{BookID: "B1", Chapter: 2}))
	assert.False(t, a.Same(Target{BookID: "B1", Chapter: 3}))
	assert.True(t, Target{}.IsZero())
	assert.False(t, a.IsZero())
}

func TestParseEndPolicy(t *testing.T) {
	policy, err := ParseEndPolicy("advance")
	require.NoError(t, err)
	assert.Equal(t, EndAdvance, policy)

	policy, err = ParseEndPolicy("")
	require.NoError(t, err)
	assert.Equal(t, EndStop, policy)

	_, err = ParseEndPolicy("loop")
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(key.PlayerPollIntervalMs, 500)
	viper.Set(key.BookmarkIntervalSeconds, 30)
	viper.Set(key.BookmarkRestoreThresholdSeconds, 10.0)
	viper.Set(key.BookmarkAuto, true)
	viper.Set(key.PlayerSpeed, 9.0)
	viper.Set(key.PlayerVolume, 0.4)
	viper.Set(key.PlayerOnEnd, "advance")

	opts := OptionsFromConfig()
	assert.Equal(t, int64(500), opts.PollInterval.Milliseconds())
	assert.Equal(t, 30.0, opts.BookmarkInterval.Seconds())
	assert.Equal(t, 10.0, opts.RestoreThreshold)
	assert.True(t, opts.AutoBookmark)
	assert.Equal(t, MaxSpeed, opts.Speed)
	assert.Equal(t, 0.4, opts.Volume)
	assert.Equal(t, EndAdvance, opts.EndPolicy)
}
