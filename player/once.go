package player

import (
	"context"
	"errors"
)

// PlayOnce opens path, plays it to the end and unloads it.
// It returns early with the context error when ctx is done.
func PlayOnce(ctx context.Context, opener Opener, path string, opts Options) error {
	loaded := make(chan struct{}, 1)
	failed := make(chan error, 1)
	ended := make(chan struct{}, 1)

	engine, err := opener.Open(path, opts, Callbacks{
		OnLoad:      func() { signal(loaded) },
		OnLoadError: func(reason error) { failed <- reason },
		OnEnd:       func() { signal(ended) },
	})
	if err != nil {
		return err
	}
	defer func() { _ = engine.Unload() }()

	select {
	case <-loaded:
	case err := <-failed:
		if err == nil {
			err = errors.New("load failed")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := engine.Play(); err != nil {
		return err
	}

	select {
	case <-ended:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
