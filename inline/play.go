package inline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/playback"
	"github.com/voicepages/voicepages/util"
)

// Play plays a chapter without a user interface until it ends or ctx is done.
// With the advance end policy it keeps going while the book has chapters.
// Each status change is written to out as one line.
func Play(ctx context.Context, a *app.App, target playback.Target, policy playback.EndPolicy, out io.Writer) error {
	sub := a.Controller.Store().Subscribe()
	defer sub.Close()

	if err := a.Controller.LoadAndPlay(target); err != nil {
		return err
	}

	var (
		prev    playback.Snapshot
		started bool
	)

	for {
		select {
		case <-ctx.Done():
			return a.Controller.Stop()
		case snap, ok := <-sub.C():
			if !ok {
				return nil
			}

			if snap.Status != prev.Status || snap.Chapter != prev.Chapter {
				fmt.Fprintf(out, "%s\t%s\t%d\t%s/%s\n",
					snap.Status, snap.BookID, snap.Chapter,
					util.FormatSeconds(snap.Position), util.FormatSeconds(snap.Duration))
			}
			prev = snap

			switch {
			case snap.Status == playback.StatusEmpty && snap.Err != "":
				return errors.New(snap.Err)
			case snap.Status == playback.StatusPlaying:
				started = true
			case started && snap.Status == playback.StatusEmpty:
				return nil
			case started && snap.Status == playback.StatusPaused && finished(snap):
				if policy != playback.EndAdvance {
					return a.Controller.Stop()
				}
				if _, ok := a.Next(playback.Target{BookID: snap.BookID, Chapter: snap.Chapter}); !ok {
					return a.Controller.Stop()
				}
				started = false
			}
		}
	}
}

func finished(snap playback.Snapshot) bool {
	return snap.Duration > 0 && snap.Position >= snap.Duration
}
