// Package ticker drives a Tickable, such as a taskqueue.Queue, from a
// time.Ticker.
//
//	d := ticker.New(q, ticker.WithInterval(50*time.Millisecond))
//	err := d.Run(ctx) // blocks until ctx is done
//
// The first tick is delivered immediately. Ticks that the target takes too
// long to handle are dropped by time.Ticker rather than queued, so a slow
// target never builds a backlog.
package ticker
