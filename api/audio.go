package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/voicepages/voicepages/util"
)

// FetchAudio downloads previously generated audio for a chapter.
// A chapter without audio yields ErrNoAudio.
func (c *Client) FetchAudio(ctx context.Context, bookID string, chapter int) (Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	audio, err := c.audio(ctx, http.MethodGet, chapterPath(bookID, chapter)+"/audio", "fetch audio")
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return Audio{}, fmt.Errorf("%w: %w", ErrNoAudio, err)
	}
	return audio, err
}

// GenerateAudio asks the server to synthesize a chapter and returns the result.
// Synthesis is long-running and bounded by the synthesis timeout.
func (c *Client) GenerateAudio(ctx context.Context, bookID string, chapter int) (Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, c.synthesisTimeout)
	defer cancel()

	return c.audio(ctx, http.MethodPost, chapterPath(bookID, chapter)+"/audio", "generate audio")
}

// TestVoice synthesizes a short phrase with the given voice.
func (c *Client) TestVoice(ctx context.Context, text, voiceID string) (Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, c.synthesisTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("text", text)
	q.Set("voice_id", voiceID)
	return c.audio(ctx, http.MethodPost, "/api/tts/generate?"+q.Encode(), "test voice")
}

func (c *Client) audio(ctx context.Context, method, path, op string) (Audio, error) {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Accept", "audio/*")

	resp, err := c.do(req, op)
	if err != nil {
		return Audio{}, err
	}
	defer util.Ignore(resp.Body.Close)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("%s: read body: %w", op, err)
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("%s: empty audio", op)
	}

	return Audio{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}
