package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/samber/mo"
	"github.com/voicepages/voicepages/util"
)

// GetBookmark returns the stored resume point of a book, if any.
// A missing or empty bookmark is not an error.
func (c *Client) GetBookmark(ctx context.Context, bookID string) (mo.Option[Bookmark], error) {
	const op = "get bookmark"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, bookPath(bookID)+"/bookmark", nil)
	if err != nil {
		return mo.None[Bookmark](), err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, op)
	if errors.Is(err, ErrNotFound) {
		return mo.None[Bookmark](), nil
	}
	if err != nil {
		return mo.None[Bookmark](), err
	}
	defer util.Ignore(resp.Body.Close)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return mo.None[Bookmark](), fmt.Errorf("%s: read body: %w", op, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("{}")) {
		return mo.None[Bookmark](), nil
	}

	var bookmark Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		return mo.None[Bookmark](), fmt.Errorf("%s: decode: %w", op, err)
	}
	return mo.Some(bookmark), nil
}

// SaveBookmark stores the resume point of a book.
func (c *Client) SaveBookmark(ctx context.Context, bookID string, bookmark Bookmark) error {
	return c.doJSON(ctx, http.MethodPost, bookPath(bookID)+"/bookmark", "save bookmark", bookmark, nil)
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
