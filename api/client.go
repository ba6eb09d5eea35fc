// Package api provides a client for the audiobook server REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voicepages/voicepages/constant"
	"github.com/voicepages/voicepages/network"
	"github.com/voicepages/voicepages/util"
)

var (
	// ErrNotFound is matched by errors for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrNoAudio is returned when a chapter has no generated audio yet.
	ErrNoAudio = errors.New("no audio for chapter")
)

// Error describes a non-2xx response.
type Error struct {
	Op     string
	Status int
	Body   string
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Is reports 404 responses as ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to a single audiobook server.
type Client struct {
	base             string
	token            string
	http             *http.Client
	timeout          time.Duration
	synthesisTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the shared network client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeouts sets the deadline for regular requests and for synthesis requests.
func WithTimeouts(regular, synthesis time.Duration) Option {
	return func(c *Client) {
		c.timeout = regular
		c.synthesisTimeout = synthesis
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:             strings.TrimRight(baseURL, "/"),
		http:             network.Client,
		timeout:          30 * time.Second,
		synthesisTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client was created with.
func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", constant.UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends the request and turns non-2xx responses into *Error.
// The caller owns the body of a successful response.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer util.Ignore(resp.Body.Close)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

// doJSON sends in (when non-nil) as a JSON body and decodes the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path, op string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer util.Ignore(resp.Body.Close)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.doJSON(ctx, http.MethodGet, "/api/health", "health check", nil, &h)
	return h, err
}
