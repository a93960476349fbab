// Package ratelimit provides the throttle and debounce adapters wrapped
// around listener callbacks at registration time.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttler admits at most one call per interval, leading-edge. Denied
// calls are dropped, not queued; there is no trailing-call guarantee.
type Throttler struct {
	limiter *rate.Limiter
}

// NewThrottler returns a throttler whose first call is always admitted.
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow reports whether a call arriving now should run.
func (t *Throttler) Allow() bool {
	return t.limiter.Allow()
}

// Debouncer coalesces bursts of calls into one trailing-edge execution per
// quiescent period, firing with the most recent call's arguments.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fire  func(event string, args []any)
}

func NewDebouncer(delay time.Duration, fire func(event string, args []any)) *Debouncer {
	return &Debouncer{delay: delay, fire: fire}
}

// Call resets the pending timer and schedules fire for delay from now with
// these arguments. It returns immediately; the eventual execution happens
// on the timer goroutine.
func (d *Debouncer) Call(event string, args []any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(event, args)
	})
}

// Stop cancels any pending execution. Used when the listener is removed.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
