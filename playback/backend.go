package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/mo"
	"github.com/voicepages/voicepages/api"
	"github.com/voicepages/voicepages/blob"
	"github.com/voicepages/voicepages/log"
)

// Backend is the part of the server API the controller needs. *api.Client implements it.
type Backend interface {
	FetchAudio(ctx context.Context, bookID string, chapter int) (api.Audio, error)
	GenerateAudio(ctx context.Context, bookID string, chapter int) (api.Audio, error)
	GetBookmark(ctx context.Context, bookID string) (mo.Option[api.Bookmark], error)
	SaveBookmark(ctx context.Context, bookID string, bookmark api.Bookmark) error
}

// AudioCache keeps chapter audio between sessions.
type AudioCache interface {
	Get(bookID string, chapter int) (api.Audio, bool)
	Put(bookID string, chapter int, audio api.Audio) error
}

// Progress is a listening position reported to the history recorder.
type Progress struct {
	Target
	Position float64
	Duration float64
}

// Recorder keeps local listening history.
type Recorder interface {
	Record(p Progress) error
}

// Preferences persists speed and volume for future runs.
type Preferences interface {
	SavePlayback(speed, volume float64) error
}

var _ Backend = (*api.Client)(nil)

// fetchSource resolves chapter audio: local cache, then existing server audio, then synthesis.
func fetchSource(ctx context.Context, backend Backend, cache AudioCache, blobs *blob.Store, bookID string, chapter int) (*blob.Ref, error) {
	if cache != nil {
		if audio, ok := cache.Get(bookID, chapter); ok {
			log.Debugf("audio for %s/%d served from cache", bookID, chapter)
			return blobs.Put(audio.Data, audio.ContentType)
		}
	}

	audio, err := backend.FetchAudio(ctx, bookID, chapter)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, api.ErrNoAudio) {
			log.Warnf("fetch audio for %s/%d: %s", bookID, chapter, err)
		}

		log.Infof("synthesizing audio for %s/%d", bookID, chapter)
		audio, err = backend.GenerateAudio(ctx, bookID, chapter)
		if err != nil {
			return nil, fmt.Errorf("generate audio: %w", err)
		}
	}

	if cache != nil {
		if err := cache.Put(bookID, chapter, audio); err != nil {
			log.Warnf("cache audio for %s/%d: %s", bookID, chapter, err)
		}
	}

	return blobs.Put(audio.Data, audio.ContentType)
}
