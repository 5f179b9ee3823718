package protocol

import (
	"dgusui/core"

	"github.com/rs/zerolog/log"
)

// receiveState is the position of the engine inside an incoming frame
type receiveState uint8

const (
	stateStart   receiveState = iota // waiting for a header
	stateCommand                     // header and command decoded, not claimed yet
	stateData                        // claimed by a reader, payload being consumed
)

func (s receiveState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateCommand:
		return "command"
	case stateData:
		return "data"
	default:
		return "unknown"
	}
}

// EngineConfig holds the decoder limits
type EngineConfig struct {
	MaxGarbageBytes int
}

// Engine builds outgoing frames and decodes incoming ones.
//
// Incoming frames are consumed through a small state machine; bytes can be
// pushed back so that a decoder can peek at a frame and leave it to another.
// The engine is not safe for concurrent use: it belongs to the main loop.
type Engine struct {
	link  *Link
	trace *core.Trace
	cfg   EngineConfig

	// Receive side
	state    receiveState
	length   uint8   // LEN of the current frame
	count    uint8   // bytes of the current frame consumed (CMD counts as 1)
	command  Command // CMD of the current frame
	pushBack pushBackStack

	// Send side
	tx       ScratchOutput
	writing  bool
	declared int // declared LEN of the frame being written
}

// NewEngine creates an engine on top of a link. trace may be nil.
func NewEngine(link *Link, cfg EngineConfig, trace *core.Trace) *Engine {
	if cfg.MaxGarbageBytes <= 0 {
		cfg.MaxGarbageBytes = DefaultMaxGarbageBytes
	}
	return &Engine{
		link:  link,
		trace: trace,
		cfg:   cfg,
	}
}

// Link returns the underlying link
func (e *Engine) Link() *Link {
	return e.link
}

// ---------------------------------------------------------------------------
// Sending

// WriteHeader starts a new outgoing frame
func (e *Engine) WriteHeader(cmd Command, targetSize, dataSize int) error {
	length := 1 + targetSize + dataSize
	if length > MaxLength {
		log.Error().
			Stringer("cmd", cmd).
			Int("length", length).
			Msg("frame too long")
		return ErrFrameTooLong
	}

	e.tx.Reset()
	e.tx.Output([]byte{HeaderByte1, HeaderByte2, byte(length), byte(cmd)})
	e.writing = true
	e.declared = length
	return nil
}

// WriteByte appends one byte to the frame being written
func (e *Engine) WriteByte(b byte) error {
	if !e.writing {
		return ErrNoHeader
	}
	if !e.tx.OutputByte(b) {
		return ErrFrameTooLong
	}
	return nil
}

// Write appends bytes to the frame being written
func (e *Engine) Write(p []byte) (int, error) {
	if !e.writing {
		return 0, ErrNoHeader
	}
	if !e.tx.Output(p) {
		return 0, ErrFrameTooLong
	}
	return len(p), nil
}

// WriteWord appends a big-endian 16-bit word
func (e *Engine) WriteWord(w uint16) error {
	_, err := e.Write([]byte{byte(w >> 8), byte(w)})
	return err
}

// WriteWords appends several words
func (e *Engine) WriteWords(words ...uint16) error {
	for _, w := range words {
		if err := e.WriteWord(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteText appends text in a field of size bytes, padded on the right with
// spaces. Longer text is truncated.
func (e *Engine) WriteText(text string, size int) error {
	if len(text) > size {
		text = text[:size]
	}
	if _, err := e.Write([]byte(text)); err != nil {
		return err
	}
	return e.writePadding(size - len(text))
}

// WriteCenteredText appends text centered in a field of size bytes
func (e *Engine) WriteCenteredText(text string, size int) error {
	if len(text) > size {
		text = text[:size]
	}
	lead := (size - len(text)) / 2
	if err := e.writePadding(lead); err != nil {
		return err
	}
	if _, err := e.Write([]byte(text)); err != nil {
		return err
	}
	return e.writePadding(size - len(text) - lead)
}

func (e *Engine) writePadding(n int) error {
	for i := 0; i < n; i++ {
		if err := e.WriteByte(' '); err != nil {
			return err
		}
	}
	return nil
}

// Flush sends the frame being written. A frame whose content does not match
// the size declared in its header is dropped.
func (e *Engine) Flush() error {
	if !e.writing {
		return ErrNoHeader
	}
	e.writing = false

	written := e.tx.CurPosition() - HeaderSize
	if written != e.declared {
		log.Error().
			Int("declared", e.declared).
			Int("written", written).
			Hex("body", e.tx.DataSince(HeaderSize)).
			Msg("frame size mismatch, dropped")
		e.tx.Reset()
		return ErrSizeMismatch
	}

	frame := e.tx.Result()
	e.trace.Record(core.DirSent, frame[3], frame[2])
	_, err := e.link.Write(frame)
	e.tx.Reset()
	return err
}

// ---------------------------------------------------------------------------
// Receiving

// pending returns the number of bytes that can be read without waiting
func (e *Engine) pending() int {
	return e.pushBack.len() + e.link.Available()
}

// next returns the next byte of the stream, push-back first. Without
// blocking it returns ErrNoFrame when nothing is pending.
func (e *Engine) next(blocking bool) (byte, error) {
	if b, ok := e.pushBack.pop(); ok {
		return b, nil
	}
	if !blocking && e.link.Available() == 0 {
		return 0, ErrNoFrame
	}
	return e.link.ReadByte()
}

// Receive decodes the header of the next frame and claims it if its command
// is expected.
//
// When the command is different, ErrUnexpectedCommand is returned and the
// frame stays pending so that another Receive can claim it. Without blocking,
// ErrNoFrame is returned when no complete header is available.
func (e *Engine) Receive(expected Command, blocking bool) error {
	switch e.state {
	case stateCommand:
		return e.claim(expected)
	case stateData:
		log.Warn().
			Stringer("cmd", e.command).
			Uint8("length", e.length).
			Uint8("consumed", e.count).
			Msg("previous frame not fully consumed")
		if err := e.Discard(); err != nil {
			return err
		}
	}

	if !blocking && e.pending() < MinPending {
		return ErrNoFrame
	}

	e.length = 0
	e.count = 0

	garbage := 0
	for {
		b, err := e.next(blocking)
		if err != nil {
			return err
		}
		if b == HeaderByte1 {
			break
		}
		garbage++
		if garbage >= e.cfg.MaxGarbageBytes {
			log.Error().Int("skipped", garbage).Msg("no frame header found")
			return ErrGarbage
		}
	}

	// A5 LEN CMD must already be there, a poll never waits on the stream
	if !blocking && e.pending() < MinPending-1 {
		e.pushBack.push(HeaderByte1)
		return ErrNoFrame
	}

	b, err := e.next(true)
	if err != nil {
		return err
	}
	if b != HeaderByte2 {
		log.Error().Uint8("byte", b).Msg("invalid second header byte")
		return ErrBadHeader
	}

	length, err := e.next(true)
	if err != nil {
		return err
	}
	if length < MinLength {
		log.Error().Uint8("length", length).Msg("invalid frame length")
		return ErrBadLength
	}

	c, err := e.next(true)
	if err != nil {
		return err
	}
	cmd := Command(c)
	if !cmd.Valid() {
		log.Error().Uint8("cmd", c).Msg("unknown frame command")
		return ErrUnknownCommand
	}

	e.trace.Record(core.DirReceived, c, length)
	e.length = length
	e.command = cmd
	e.count = 1
	e.state = stateCommand

	return e.claim(expected)
}

// claim hands the decoded frame to the caller if the command matches
func (e *Engine) claim(expected Command) error {
	if e.command != expected {
		return ErrUnexpectedCommand
	}
	e.state = stateData
	return nil
}

// Command returns the command of the pending frame
func (e *Engine) Command() Command {
	return e.command
}

// Remaining returns the number of bytes of the current frame not read yet
func (e *Engine) Remaining() int {
	if e.state == stateStart {
		return 0
	}
	return int(e.length) - int(e.count)
}

// ReadByte reads one byte of the current frame
func (e *Engine) ReadByte() (byte, error) {
	if e.state != stateData {
		return 0, ErrFrameConsumed
	}
	b, err := e.next(true)
	if err != nil {
		return 0, err
	}
	e.count++
	if e.count >= e.length {
		e.state = stateStart
	}
	return b, nil
}

// ReadBytes fills p from the current frame
func (e *Engine) ReadBytes(p []byte) error {
	for i := range p {
		b, err := e.ReadByte()
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}

// ReadWord reads a big-endian 16-bit word of the current frame
func (e *Engine) ReadWord() (uint16, error) {
	hi, err := e.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := e.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// PushBack returns a byte to the engine. Bytes pushed back are read again,
// last pushed first, before the rest of the stream.
//
// Once every byte after CMD has been returned the frame is unclaimed again,
// and the next Receive hands it to whichever decoder expects its command.
func (e *Engine) PushBack(b byte) error {
	if !e.pushBack.push(b) {
		log.Error().Uint8("byte", b).Int("capacity", PushBackSize).Msg("push-back buffer full")
		return ErrPushBackFull
	}
	if e.count > 1 {
		e.count--
		if e.count == 1 {
			e.state = stateCommand
		} else {
			e.state = stateData
		}
	}
	return nil
}

// Discard consumes the rest of the current frame
func (e *Engine) Discard() error {
	if e.state == stateCommand {
		e.state = stateData
	}
	for e.state == stateData {
		if _, err := e.ReadByte(); err != nil {
			e.Reset()
			return err
		}
	}
	return nil
}

// Reset forgets the current frame and any pushed back bytes
func (e *Engine) Reset() {
	e.state = stateStart
	e.length = 0
	e.count = 0
	e.pushBack.reset()
}
