package playback

import "time"

// startTimers starts the position poll and, with auto bookmarks, the bookmark timer.
// At most one of each runs.
func (c *Controller) startTimers() {
	if c.pollStop == nil {
		c.pollStop = c.every(c.opts.PollInterval, c.pollTick)
	}
	if c.opts.AutoBookmark && c.saveStop == nil {
		c.saveStop = c.every(c.opts.BookmarkInterval, c.saveTick)
	}
}

func (c *Controller) stopTimers() {
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
	if c.saveStop != nil {
		close(c.saveStop)
		c.saveStop = nil
	}
}

// every posts tick to the loop at each interval until the returned channel is closed.
func (c *Controller) every(interval time.Duration, tick func(gen uint64)) chan struct{} {
	stop := make(chan struct{})
	gen := c.sess.gen

	c.timers.Add(1)
	go func() {
		defer c.timers.Add(-1)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.post(func() { tick(gen) })
			}
		}
	}()

	return stop
}

func (c *Controller) current(gen uint64) bool {
	return c.sess != nil && c.sess.gen == gen && c.sess.playing
}

func (c *Controller) pollTick(gen uint64) {
	if c.current(gen) {
		c.refreshPosition()
	}
}

func (c *Controller) saveTick(gen uint64) {
	if c.current(gen) {
		c.persist()
	}
}
