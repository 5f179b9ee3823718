package core

import "time"

// Mode tells the scheduler what to do with a task once it has run
type Mode uint8

const (
	OneShot   Mode = iota // run once, then free the slot
	Repeating             // run every delay until cleared
)

// Callback is the deferred work of a task
type Callback func()

// Scheduler holds a single cooperative background task.
//
// There is no queue: arming a task replaces whatever was pending. Execute is
// polled once per main loop iteration and runs on the same goroutine as the
// rest of the firmware, so callbacks must return promptly.
type Scheduler struct {
	clock    Clock
	callback Callback
	delay    uint32
	due      uint32
	mode     Mode
}

// NewScheduler creates an empty scheduler using clock as time base
func NewScheduler(clock Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Set arms the slot, replacing any previous task
func (s *Scheduler) Set(delay time.Duration, callback Callback, mode Mode) {
	s.callback = callback
	s.delay = ToMillis(delay)
	s.due = s.clock.Millis() + s.delay
	s.mode = mode
}

// Clear empties the slot
func (s *Scheduler) Clear() {
	s.callback = nil
	s.delay = 0
	s.due = 0
	s.mode = OneShot
}

// Armed reports whether a task is pending
func (s *Scheduler) Armed() bool {
	return s.callback != nil
}

// Execute runs the pending task if it is due, or unconditionally when force
// is set. It returns whether a callback ran.
func (s *Scheduler) Execute(force bool) bool {
	if s.callback == nil {
		return false
	}
	now := s.clock.Millis()
	if !force && !Reached(now, s.due) {
		return false
	}

	// The callback may clear or re-arm the slot, so work on a copy
	callback := s.callback
	if s.mode == Repeating {
		s.due = now + s.delay
	} else {
		s.Clear()
	}

	callback()
	return true
}
