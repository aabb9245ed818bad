package session

import "time"

// Scheduler abstracts the recurring refresh check so tests drive ticks
// manually instead of waiting on the wall clock.
type Scheduler interface {
	// Every runs fn on the given period until the returned stop func is called.
	Every(d time.Duration, fn func()) (stop func())
}

// TickerScheduler runs fn on a real time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
