package api

import (
	"context"
	"net/http"

	"github.com/voicepages/voicepages/log"
)

// Voices lists the voices offered by the server.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var voices []Voice
	if err := c.doJSON(ctx, http.MethodGet, "/api/voices", "list voices", nil, &voices); err != nil {
		return nil, err
	}
	return voices, nil
}

// VoicesOrFallback lists the server voices and falls back to the built-in list on failure.
func (c *Client) VoicesOrFallback(ctx context.Context) []Voice {
	voices, err := c.Voices(ctx)
	if err != nil || len(voices) == 0 {
		if err != nil {
			log.Warnf("failed to load voices, using fallback list: %s", err)
		}
		return FallbackVoices
	}
	return voices
}
