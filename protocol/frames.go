package protocol

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Target is an addressable location on the display: a 1-byte Register or a
// 2-byte Variable.
type Target interface {
	Register | Variable
	targetSize() int
}

func (Register) targetSize() int { return 1 }
func (Variable) targetSize() int { return 2 }

func writeTarget[T Target](e *Engine, target T) error {
	if target.targetSize() == 1 {
		return e.WriteByte(byte(target))
	}
	return e.WriteWord(uint16(target))
}

// unreadTarget pushes the target bytes back, last byte first
func unreadTarget[T Target](e *Engine, target T) error {
	if target.targetSize() == 1 {
		return e.PushBack(byte(target))
	}
	if err := e.PushBack(byte(target)); err != nil {
		return err
	}
	return e.PushBack(byte(uint16(target) >> 8))
}

func readTarget[T Target](e *Engine) (T, error) {
	var zero T
	if zero.targetSize() == 1 {
		b, err := e.ReadByte()
		return T(b), err
	}
	w, err := e.ReadWord()
	return T(w), err
}

// ---------------------------------------------------------------------------
// Outgoing frames

// Request is an outgoing frame addressed to a register or a variable. Each
// Write method sends one complete frame.
type Request[T Target] struct {
	engine  *Engine
	command Command
	target  T
}

type (
	WriteRegisterRequest = Request[Register]
	ReadRegisterRequest  = Request[Register]
	WriteRamRequest      = Request[Variable]
	ReadRamRequest       = Request[Variable]
)

// NewWriteRegisterRequest creates a request writing to a register
func NewWriteRegisterRequest(e *Engine, reg Register) WriteRegisterRequest {
	return Request[Register]{engine: e, command: WriteRegister, target: reg}
}

// NewReadRegisterRequest creates a request asking for the content of a
// register. The payload is the number of bytes to read.
func NewReadRegisterRequest(e *Engine, reg Register) ReadRegisterRequest {
	return Request[Register]{engine: e, command: ReadRegister, target: reg}
}

// NewWriteRamRequest creates a request writing to a variable
func NewWriteRamRequest(e *Engine, v Variable) WriteRamRequest {
	return Request[Variable]{engine: e, command: WriteRam, target: v}
}

// NewReadRamRequest creates a request asking for the content of a variable.
// The payload is the number of words to read.
func NewReadRamRequest(e *Engine, v Variable) ReadRamRequest {
	return Request[Variable]{engine: e, command: ReadRam, target: v}
}

// Target returns the addressed register or variable
func (r Request[T]) Target() T {
	return r.target
}

// begin writes the header and the target of a frame carrying dataSize bytes
func (r Request[T]) begin(dataSize int) error {
	if err := r.engine.WriteHeader(r.command, r.target.targetSize(), dataSize); err != nil {
		return err
	}
	return writeTarget(r.engine, r.target)
}

// WriteByte sends a frame with a single byte of payload
func (r Request[T]) WriteByte(b byte) error {
	if err := r.begin(1); err != nil {
		return err
	}
	if err := r.engine.WriteByte(b); err != nil {
		return err
	}
	return r.engine.Flush()
}

// WriteBytes sends a frame with the given payload
func (r Request[T]) WriteBytes(p []byte) error {
	if err := r.begin(len(p)); err != nil {
		return err
	}
	if _, err := r.engine.Write(p); err != nil {
		return err
	}
	return r.engine.Flush()
}

// WriteWord sends a frame with one word of payload
func (r Request[T]) WriteWord(w uint16) error {
	return r.WriteWords(w)
}

// WriteWords sends a frame with several words of payload
func (r Request[T]) WriteWords(words ...uint16) error {
	if err := r.begin(2 * len(words)); err != nil {
		return err
	}
	if err := r.engine.WriteWords(words...); err != nil {
		return err
	}
	return r.engine.Flush()
}

// WriteText sends text padded with spaces to size bytes
func (r Request[T]) WriteText(text string, size int) error {
	if err := r.begin(size); err != nil {
		return err
	}
	if err := r.engine.WriteText(text, size); err != nil {
		return err
	}
	return r.engine.Flush()
}

// WriteCenteredText sends text centered in a field of size bytes
func (r Request[T]) WriteCenteredText(text string, size int) error {
	if err := r.begin(size); err != nil {
		return err
	}
	if err := r.engine.WriteCenteredText(text, size); err != nil {
		return err
	}
	return r.engine.Flush()
}

// WriteCurveRequest sends samples to the curve buffers selected by a channel
// mask
type WriteCurveRequest struct {
	engine   *Engine
	channels uint8
}

// NewWriteCurveRequest creates a curve request for the channels in mask
func NewWriteCurveRequest(e *Engine, channels uint8) WriteCurveRequest {
	return WriteCurveRequest{engine: e, channels: channels}
}

// WriteWords sends curve samples
func (r WriteCurveRequest) WriteWords(words ...uint16) error {
	if err := r.engine.WriteHeader(WriteCurve, 1, 2*len(words)); err != nil {
		return err
	}
	if err := r.engine.WriteByte(r.channels); err != nil {
		return err
	}
	if err := r.engine.WriteWords(words...); err != nil {
		return err
	}
	return r.engine.Flush()
}

// ---------------------------------------------------------------------------
// Incoming frames

// Response reads a frame sent by the display: a reply to a read request, or
// an unsolicited report such as a key press.
type Response[T Target] struct {
	engine  *Engine
	command Command
	target  T
	known   bool // target must match
	nbData  int  // number of data units (bytes for registers, words for variables)
	read    int  // bytes read from the payload
}

type (
	ReadRegisterResponse = Response[Register]
	ReadRamResponse      = Response[Variable]
)

// NewReadRegisterResponse creates a reader for the reply to a register read
func NewReadRegisterResponse(e *Engine, reg Register) *ReadRegisterResponse {
	return &Response[Register]{engine: e, command: ReadRegister, target: reg, known: true}
}

// NewReadRamResponse creates a reader for the reply to a variable read
func NewReadRamResponse(e *Engine, v Variable) *ReadRamResponse {
	return &Response[Variable]{engine: e, command: ReadRam, target: v, known: true}
}

// NewUnsolicitedRamResponse creates a reader accepting any variable, for
// data pushed by the display without a request
func NewUnsolicitedRamResponse(e *Engine) *ReadRamResponse {
	return &Response[Variable]{engine: e, command: ReadRam}
}

// Receive decodes the frame header, target and data count.
func (r *Response[T]) Receive(blocking bool) error {
	r.nbData = 0
	r.read = 0

	if err := r.engine.Receive(r.command, blocking); err != nil {
		return err
	}

	target, err := readTarget[T](r.engine)
	if err != nil {
		return err
	}
	if r.known && target != r.target {
		log.Error().
			Stringer("cmd", r.command).
			Uint16("expected", uint16(r.target)).
			Uint16("received", uint16(target)).
			Msg("response target mismatch")
		// Hand the frame back unclaimed, it may be a key press
		if err := unreadTarget(r.engine, target); err != nil {
			return err
		}
		return ErrTargetMismatch
	}
	r.target = target

	n, err := r.engine.ReadByte()
	if err != nil {
		return err
	}
	r.nbData = int(n)
	return nil
}

// Target returns the register or variable of the received frame
func (r *Response[T]) Target() T {
	return r.target
}

// NbData returns the declared number of data units
func (r *Response[T]) NbData() int {
	return r.nbData
}

// ReadByte reads the next payload byte
func (r *Response[T]) ReadByte() (byte, error) {
	if r.read >= r.nbData*r.target.targetSize() {
		return 0, ErrOutOfBounds
	}
	b, err := r.engine.ReadByte()
	if err != nil {
		return 0, err
	}
	r.read++
	return b, nil
}

// ReadWord reads the next payload word
func (r *Response[T]) ReadWord() (uint16, error) {
	if r.read+2 > r.nbData*r.target.targetSize() {
		return 0, ErrOutOfBounds
	}
	w, err := r.engine.ReadWord()
	if err != nil {
		return 0, err
	}
	r.read += 2
	return w, nil
}

// Done consumes whatever is left of the frame
func (r *Response[T]) Done() error {
	return r.engine.Discard()
}

// ---------------------------------------------------------------------------
// Synchronous exchanges

// Exchange is a read request followed by its response
type Exchange[T Target] struct {
	Request[T]
	*Response[T]
}

type (
	ReadRegisterExchange = Exchange[Register]
	ReadRamExchange      = Exchange[Variable]
)

// NewReadRegister prepares a synchronous register read
func NewReadRegister(e *Engine, reg Register) *ReadRegisterExchange {
	return &Exchange[Register]{
		Request:  NewReadRegisterRequest(e, reg),
		Response: NewReadRegisterResponse(e, reg),
	}
}

// NewReadRam prepares a synchronous variable read
func NewReadRam(e *Engine, v Variable) *ReadRamExchange {
	return &Exchange[Variable]{
		Request:  NewReadRamRequest(e, v),
		Response: NewReadRamResponse(e, v),
	}
}

// SendReceive asks for n data units and blocks until the matching response
// header has been decoded. Only one exchange may be outstanding.
func (x *Exchange[T]) SendReceive(n uint8) error {
	if err := x.Request.WriteByte(n); err != nil {
		return err
	}
	return x.Response.Receive(true)
}

// ReceiveAction decodes an unsolicited key press: the display reports the
// key value in the action variable bound to the pressed control.
func ReceiveAction(e *Engine, blocking bool) (action Action, key KeyValue, err error) {
	r := NewUnsolicitedRamResponse(e)
	if err := r.Receive(blocking); err != nil {
		return ActionNone, 0, err
	}
	defer func() {
		if derr := r.Done(); derr != nil && err == nil {
			action, key, err = ActionNone, 0, derr
		}
	}()

	if r.NbData() < 1 {
		log.Error().Uint16("variable", uint16(r.Target())).Msg("key press without value")
		return ActionNone, 0, ErrOutOfBounds
	}
	w, err := r.ReadWord()
	if err != nil {
		return ActionNone, 0, err
	}
	return Action(r.Target()), KeyValue(w), nil
}

// ReadVersion reads the firmware version of the panel, formatted major.minor
// from the two nibbles of the version register
func ReadVersion(e *Engine) (version string, err error) {
	x := NewReadRegister(e, RegisterVersion)
	if err := x.SendReceive(1); err != nil {
		return "", err
	}
	defer func() {
		if derr := x.Done(); derr != nil && err == nil {
			version, err = "", derr
		}
	}()

	v, err := x.ReadByte()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", v>>4, v&0x0F), nil
}
