//go:build !tinygo

package panel

import (
	"fmt"
	"time"

	"dgusui/host/serial"
)

// Connect opens the serial port of the panel and starts the link
func (p *Panel) Connect(cfg *serial.Config, opts Options) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	p.Attach(port, opts)

	// Give the panel time to initialize (if it just powered on)
	time.Sleep(100 * time.Millisecond)

	return nil
}
