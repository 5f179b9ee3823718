// Package core holds the time base, the single-slot task scheduler and the
// fail-stop state shared by the display link and the screens.
package core

import (
	"sync/atomic"
	"time"
)

// Clock supplies the millisecond time base used by the scheduler and the UI.
// The counter wraps after ~49 days, so comparisons go through Reached.
type Clock interface {
	Millis() uint32
}

// SystemClock counts milliseconds since it was created
type SystemClock struct {
	boot time.Time
}

// NewSystemClock creates a clock starting at zero
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

// Millis returns the milliseconds elapsed since boot
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.boot).Milliseconds())
}

// ManualClock is a clock that only moves when told to (for testing/simulation)
type ManualClock struct {
	ms uint32 // atomic
}

// NewManualClock creates a manual clock at the given time
func NewManualClock(ms uint32) *ManualClock {
	return &ManualClock{ms: ms}
}

// Millis returns the current time
func (c *ManualClock) Millis() uint32 {
	return atomic.LoadUint32(&c.ms)
}

// Set sets the current time
func (c *ManualClock) Set(ms uint32) {
	atomic.StoreUint32(&c.ms, ms)
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	atomic.AddUint32(&c.ms, ToMillis(d))
}

// ToMillis converts a duration to clock milliseconds
func ToMillis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d / time.Millisecond)
}

// Reached reports whether now is at or after deadline, tolerating wrap-around
func Reached(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}
