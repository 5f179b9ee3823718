//go:build rp2040

package main

import (
	"errors"
	"machine"
	"time"

	"dgusui/core"
	"dgusui/host/panel"
	"dgusui/host/serial"
	"dgusui/printer"
	"dgusui/protocol"
	"dgusui/ui"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

var (
	uart = uartx.UART1
	tx   = uartx.UART1_TX_PIN // Pico: GP8
	rx   = uartx.UART1_RX_PIN // Pico: GP9

	// Debug counters
	loopPanics uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	if err := uart.Configure(uartx.UARTConfig{
		BaudRate: protocol.DefaultBaudRate,
		TX:       tx,
		RX:       rx,
	}); err != nil {
		println("uart1 configure error")
		halt(led)
	}

	clock := hardwareClock{}
	settings, _ := printer.LoadSettings("") // no filesystem, kept in RAM
	sim := printer.NewSimulated(clock, printer.DefaultSimConfig(), settings)

	pnl := panel.New(sim, clock)
	pnl.Attach(serial.NewUARTPort(uart, time.Millisecond), panel.DefaultOptions())

	display, err := ui.New(pnl.Engine(), sim, settings, clock, pnl.Safety(), ui.DefaultOptions())
	if err != nil {
		println("display setup error")
		halt(led)
	}
	sim.SetListener(display)

	// Give the panel time to boot
	time.Sleep(500 * time.Millisecond)
	if err := display.Open(); err != nil {
		println("display open error")
		halt(led)
	}

	for {
		lost := false
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					pnl.Engine().Reset()
				}
			}()

			sim.Step()
			if err := display.Idle(); errors.Is(err, protocol.ErrCommunicationLost) {
				lost = true
			}
		}()
		if lost {
			// Fail-stop: the printer is already halted
			println("display lost:", pnl.Safety().Reason())
			halt(led)
		}

		// Yield to the link reader goroutine
		time.Sleep(time.Millisecond)
	}
}

// halt blinks the LED forever
func halt(led machine.Pin) {
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}

var _ core.Clock = hardwareClock{}
