// Package protocol implements the DGUS display serial protocol: the link to the
// panel, the frame engine and the typed register/variable frames built on it.
package protocol

import "errors"

// Version represents the firmware version reported on the Versions screen
const Version = "0.3.0"

// Frame layout constants
const (
	HeaderByte1 = 0x5A
	HeaderByte2 = 0xA5

	HeaderSize   = 3   // 5A A5 LEN
	MinLength    = 3   // CMD + smallest target + one data byte
	MaxLength    = 255 // LEN must fit one byte
	MaxFrameSize = HeaderSize + MaxLength

	// MinPending is the number of bytes a non-blocking receive needs before
	// it starts decoding (5A A5 LEN CMD)
	MinPending = HeaderSize + 1

	PushBackSize = 5
	RxBufferSize = 512
)

// Default link tuning
const (
	DefaultBaudRate        = 115200
	DefaultMaxGarbageBytes = 5
	DefaultReadDelayMs     = 10
	DefaultKillCount       = 200 // 2s of silence with the default read delay
)

// Command is the kind of a frame
type Command uint8

const (
	WriteRegister Command = 0x80
	ReadRegister  Command = 0x81
	WriteRam      Command = 0x82
	ReadRam       Command = 0x83
	WriteCurve    Command = 0x84
)

// Valid reports whether c is one of the five known commands
func (c Command) Valid() bool {
	return c >= WriteRegister && c <= WriteCurve
}

func (c Command) String() string {
	switch c {
	case WriteRegister:
		return "WriteRegister"
	case ReadRegister:
		return "ReadRegister"
	case WriteRam:
		return "WriteRam"
	case ReadRam:
		return "ReadRam"
	case WriteCurve:
		return "WriteCurve"
	default:
		return "Unknown"
	}
}

// Decode errors fail a single exchange. ErrCommunicationLost is the only
// fatal one: the link has been declared dead and the printer killed.
var (
	ErrNoData            = errors.New("not enough data available")
	ErrNoFrame           = errors.New("no frame available")
	ErrGarbage           = errors.New("too many garbage bytes before header")
	ErrBadHeader         = errors.New("invalid frame header")
	ErrBadLength         = errors.New("invalid frame length")
	ErrUnknownCommand    = errors.New("unknown frame command")
	ErrUnexpectedCommand = errors.New("unexpected frame command")
	ErrTargetMismatch    = errors.New("response target does not match request")
	ErrOutOfBounds       = errors.New("read past the frame payload")
	ErrFrameConsumed     = errors.New("frame already fully consumed")
	ErrPushBackFull      = errors.New("push-back buffer full")
	ErrFrameTooLong      = errors.New("frame length does not fit one byte")
	ErrNoHeader          = errors.New("frame written without a header")
	ErrSizeMismatch      = errors.New("frame payload does not match declared size")
	ErrCommunicationLost = errors.New("communication with the display lost")
)
