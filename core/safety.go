package core

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Halter stops all motion and heating. It is implemented by the printer.
type Halter interface {
	Kill(reason string)
}

// Safety owns the fail-stop state. Once killed the firmware never resumes.
type Safety struct {
	halter Halter
	trace  *Trace

	killed uint32 // atomic bool
	mu     sync.Mutex
	reason string
}

// NewSafety creates the fail-stop guard. trace may be nil.
func NewSafety(halter Halter, trace *Trace) *Safety {
	return &Safety{halter: halter, trace: trace}
}

// Kill halts the printer unconditionally. Only the first call has an effect.
func (s *Safety) Kill(reason string) {
	if !atomic.CompareAndSwapUint32(&s.killed, 0, 1) {
		return
	}
	s.mu.Lock()
	s.reason = reason
	s.mu.Unlock()

	log.Error().Str("reason", reason).Msg("KILLED: halting motion and heaters")
	s.trace.Dump()
	if s.halter != nil {
		s.halter.Kill(reason)
	}
}

// IsKilled returns true once Kill has been called
func (s *Safety) IsKilled() bool {
	return atomic.LoadUint32(&s.killed) != 0
}

// Reason returns the reason given to Kill
func (s *Safety) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
