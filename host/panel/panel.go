// Package panel owns the connection to a DGUS panel: the serial port, the
// link and frame engine on top of it, and the fail-stop guard they report to.
package panel

import (
	"errors"
	"fmt"
	"io"

	"dgusui/core"
	"dgusui/host/serial"
	"dgusui/protocol"

	"github.com/rs/zerolog/log"
)

var ErrNotConnected = errors.New("not connected to the panel")

// Options holds the link tuning
type Options struct {
	Link   protocol.LinkConfig
	Engine protocol.EngineConfig
	Trace  bool // record frame headers, dumped on kill
}

// DefaultOptions returns the default link tuning
func DefaultOptions() Options {
	return Options{
		Link:   protocol.DefaultLinkConfig(),
		Engine: protocol.EngineConfig{MaxGarbageBytes: protocol.DefaultMaxGarbageBytes},
	}
}

// Info describes the connected panel
type Info struct {
	Version string // panel firmware, major.minor
}

// Panel represents a connection to a DGUS display
type Panel struct {
	clock  core.Clock
	halter core.Halter
	safety *core.Safety
	trace  *core.Trace

	port   serial.Port
	link   *protocol.Link
	engine *protocol.Engine

	info      Info
	connected bool
}

// New creates a panel instance (not yet connected). halter is killed when
// the panel stops answering.
func New(halter core.Halter, clock core.Clock) *Panel {
	return &Panel{
		clock:  clock,
		halter: halter,
	}
}

// Attach starts the link on an opened port
func (p *Panel) Attach(port serial.Port, opts Options) {
	if opts.Trace {
		p.trace = core.NewTrace(p.clock)
	}
	p.safety = core.NewSafety(p.halter, p.trace)

	p.port = port
	p.link = protocol.NewLink(port, opts.Link, p.safety.Kill)
	p.engine = protocol.NewEngine(p.link, opts.Engine, p.trace)
	p.connected = true
}

// Close closes the connection to the panel
func (p *Panel) Close() error {
	if !p.connected {
		return nil
	}
	p.connected = false
	if err := p.link.Close(); err != nil {
		return fmt.Errorf("failed to close the panel port: %w", err)
	}
	return nil
}

// IsConnected returns whether the panel is connected
func (p *Panel) IsConnected() bool {
	return p.connected
}

// Engine returns the frame engine
func (p *Panel) Engine() *protocol.Engine {
	return p.engine
}

// Safety returns the fail-stop guard, nil before Attach
func (p *Panel) Safety() *core.Safety {
	return p.safety
}

// Trace returns the frame trace, nil when disabled
func (p *Panel) Trace() *core.Trace {
	return p.trace
}

// Identify reads the panel firmware version
func (p *Panel) Identify() (Info, error) {
	if !p.connected {
		return Info{}, ErrNotConnected
	}

	// Drop whatever the panel sent before we listened
	if err := p.port.Flush(); err != nil {
		return Info{}, fmt.Errorf("failed to flush the port: %w", err)
	}
	p.link.Flush()
	p.engine.Reset()

	version, err := protocol.ReadVersion(p.engine)
	if err != nil {
		return Info{}, fmt.Errorf("failed to identify the panel: %w", err)
	}
	p.info = Info{Version: version}
	log.Info().Str("version", version).Msg("panel identified")
	return p.info, nil
}

// Reboot restarts the panel firmware
func (p *Panel) Reboot() error {
	if !p.connected {
		return ErrNotConnected
	}
	return protocol.NewWriteRegisterRequest(p.engine, protocol.RegisterResetTrigger).
		WriteBytes([]byte{protocol.HeaderByte1, protocol.HeaderByte2})
}

// PrintInfo writes a summary of the connection
func (p *Panel) PrintInfo(w io.Writer) {
	fmt.Fprintln(w, "=== DGUS Panel ===")
	if !p.connected {
		fmt.Fprintln(w, "Not connected")
		return
	}
	version := p.info.Version
	if version == "" {
		version = "unknown"
	}
	fmt.Fprintf(w, "Panel firmware: %s\n", version)
	fmt.Fprintf(w, "Host firmware:  %s\n", protocol.Version)
	fmt.Fprintf(w, "Link lost:      %v\n", p.link.Lost())
	if p.safety.IsKilled() {
		fmt.Fprintf(w, "Killed:         %s\n", p.safety.Reason())
	}
	if p.trace != nil {
		events := p.trace.Events()
		fmt.Fprintf(w, "\nLast frames (%d):\n", len(events))
		for _, ev := range events {
			fmt.Fprintf(w, "  %8d %s cmd=0x%02X len=%d\n", ev.Clock, ev.Dir, ev.Command, ev.Length)
		}
	}
}
