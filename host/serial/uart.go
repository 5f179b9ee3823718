package serial

import (
	"time"

	"tinygo.org/x/drivers"
)

// UARTPort adapts a TinyGo UART to Port
type UARTPort struct {
	uart drivers.UART
	idle time.Duration
}

// NewUARTPort wraps uart. A read with nothing buffered sleeps for idle and
// returns no data, so the reader goroutine does not spin.
func NewUARTPort(uart drivers.UART, idle time.Duration) *UARTPort {
	if idle <= 0 {
		idle = time.Millisecond
	}
	return &UARTPort{uart: uart, idle: idle}
}

// Read reads whatever is buffered
func (p *UARTPort) Read(b []byte) (int, error) {
	if p.uart.Buffered() == 0 {
		time.Sleep(p.idle)
		return 0, nil
	}
	return p.uart.Read(b)
}

// Write writes data to the UART
func (p *UARTPort) Write(b []byte) (int, error) {
	return p.uart.Write(b)
}

// Close is a no-op, a hardware UART stays configured
func (p *UARTPort) Close() error {
	return nil
}

// Flush drops everything buffered
func (p *UARTPort) Flush() error {
	var scratch [32]byte
	for p.uart.Buffered() > 0 {
		if _, err := p.uart.Read(scratch[:]); err != nil {
			return err
		}
	}
	return nil
}
