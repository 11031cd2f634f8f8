// Package throttle bounds how often a streaming consumer is notified of new
// accumulator state.
package throttle

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultRate is the base notification rate in calls per second.
	DefaultRate = 12.0
	// IdleFloor is the minimum gap between two notifications.
	IdleFloor = 20 * time.Millisecond
)

// Decimator drops calls that arrive before the next allowed time. The zero
// value is not usable; call New.
//
// The caller owns the final notification: after the stream ends it must
// invoke its callback once more without going through Decimate.
type Decimator struct {
	interval time.Duration
	disabled bool
	now      func() time.Time

	mu   sync.Mutex
	next time.Time
}

// New returns a Decimator for baseRate calls per second at the given level.
// Level 0 (or a non-positive rate) disables throttling, level 1 uses the
// base interval and higher levels stretch it by the square root of level.
func New(baseRate float64, level int) *Decimator {
	d := &Decimator{now: time.Now}
	if level <= 0 || baseRate <= 0 {
		d.disabled = true
		return d
	}
	interval := float64(time.Second) / baseRate
	if level > 1 {
		interval *= math.Sqrt(float64(level))
	}
	d.interval = time.Duration(interval)
	return d
}

// Interval returns the target gap between notifications, zero when disabled.
func (d *Decimator) Interval() time.Duration {
	return d.interval
}

// Decimate runs fn unless it is too early, and reports whether fn ran.
func (d *Decimator) Decimate(fn func()) bool {
	if d.disabled {
		fn()
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	start := d.now()
	if start.Before(d.next) {
		return false
	}
	fn()
	end := d.now()
	wait := max(d.interval-end.Sub(start), IdleFloor)
	d.next = end.Add(wait)
	return true
}
