//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // Raw timer high word
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// hardwareClock is the 1MHz RP2040 timer seen as a millisecond core.Clock
type hardwareClock struct{}

// Millis returns the uptime in milliseconds, wrapping like the host clock
func (hardwareClock) Millis() uint32 {
	return uint32(hardwareUptime() / 1000)
}

// hardwareUptime reads the full 64-bit microsecond counter
func hardwareUptime() uint64 {
	// Read high, low, high again to detect a rollover of the low word
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}
