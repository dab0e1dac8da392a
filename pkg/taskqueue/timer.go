package taskqueue

import "time"

// activeTimer measures active queue time. It only moves forward when the
// queue advances it from a running tick, so pausing the queue freezes it.
type activeTimer struct {
	elapsed time.Duration
	running bool
}

func (t *activeTimer) start() {
	t.elapsed = 0
	t.running = true
}

func (t *activeTimer) pause()  { t.running = false }
func (t *activeTimer) resume() { t.running = true }

func (t *activeTimer) stop() {
	*t = activeTimer{}
}

func (t *activeTimer) advance(d time.Duration) {
	if t.running && d > 0 {
		t.elapsed += d
	}
}

// exceeded reports whether limit is set and has been reached.
func (t *activeTimer) exceeded(limit time.Duration) bool {
	return limit > 0 && t.elapsed >= limit
}
