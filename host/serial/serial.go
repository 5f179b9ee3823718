// Package serial opens the UART connected to the display.
//
// Several implementations hide behind Port:
// - Native serial (github.com/tarm/serial), the default on a host
// - go.bug.st/serial, which can also enumerate ports
// - TinyGo drivers.UART, on a microcontroller
// - MockPort, for testing
package serial

import (
	"io"
	"time"
)

// Port represents a serial port interface
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Driver selects the host serial implementation
type Driver string

const (
	DriverTarm  Driver = "tarm"
	DriverBugst Driver = "bugst"
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Host implementation, DriverTarm when empty
	Driver Driver

	// Baud rate (the panel is configured for 115200 8N1)
	Baud int

	// Read timeout. A read that times out returns no data and the link polls
	// again, so keep it short.
	ReadTimeout time.Duration
}

// DefaultConfig returns a default configuration for a DGUS panel
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Driver:      DriverTarm,
		Baud:        115200,
		ReadTimeout: 50 * time.Millisecond,
	}
}
