package core

import "github.com/rs/zerolog/log"

// Direction of a traced frame
type Direction uint8

const (
	DirSent     Direction = 1
	DirReceived Direction = 2
)

func (d Direction) String() string {
	switch d {
	case DirSent:
		return "TX"
	case DirReceived:
		return "RX"
	default:
		return "??"
	}
}

// FrameEvent captures one frame header for post-mortem analysis
type FrameEvent struct {
	Dir     Direction
	Command uint8
	Length  uint8
	Clock   uint32
}

const (
	TraceRingSize = 32 // Keep last 32 frames
)

// Trace is a ring of the last frames exchanged with the display. It is dumped
// when the link is declared lost.
type Trace struct {
	clock Clock
	ring  [TraceRingSize]FrameEvent
	head  uint8 // Next write position
}

// NewTrace creates an empty trace ring
func NewTrace(clock Clock) *Trace {
	return &Trace{clock: clock}
}

// Record captures a frame header. This is always non-blocking.
func (t *Trace) Record(dir Direction, command, length uint8) {
	if t == nil {
		return
	}
	idx := t.head
	t.ring[idx] = FrameEvent{
		Dir:     dir,
		Command: command,
		Length:  length,
		Clock:   t.clock.Millis(),
	}
	t.head = (idx + 1) % TraceRingSize
}

// Events returns the recorded frames from oldest to newest
func (t *Trace) Events() []FrameEvent {
	events := make([]FrameEvent, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := t.ring[(t.head+i)%TraceRingSize]
		if evt.Dir == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// Dump logs the ring (call on kill)
func (t *Trace) Dump() {
	if t == nil {
		return
	}
	events := t.Events()
	log.Warn().Int("frames", len(events)).Msg("frame trace dump")
	for _, evt := range events {
		log.Warn().
			Stringer("dir", evt.Dir).
			Uint8("cmd", evt.Command).
			Uint8("len", evt.Length).
			Uint32("clock", evt.Clock).
			Msg("frame")
	}
}

// Clear empties the ring
func (t *Trace) Clear() {
	for i := range t.ring {
		t.ring[i] = FrameEvent{}
	}
	t.head = 0
}
