// Package printer defines what the display needs from the rest of the
// firmware, and ships a simulated printer to run the display without one.
package printer

import "dgusui/core"

// Heater is the state of one heater, in °C
type Heater struct {
	Current float64
	Target  float64
}

// Temperatures groups the heaters shown on the status block
type Temperatures struct {
	Bed    Heater
	HotEnd Heater
}

// Status is the rest of the periodic status block
type Status struct {
	FanSpeed uint8   // 0-255
	ZHeight  float64 // mm
	Progress uint8   // print progress in percent
}

// Printer is the motion and thermal side of the firmware, as seen by the
// display. Kill halts motion and heating; it is called on communication loss.
type Printer interface {
	core.Halter

	IsBusy() bool
	IsHomed() bool
	IsPrinting() bool

	// InjectCommands queues newline separated G-code
	InjectCommands(gcode string) error

	Temperatures() Temperatures
	Status() Status
	SetTargetHotEnd(celsius float64)
	SetTargetBed(celsius float64)

	PausePrint() error
	ResumePrint() error
	StopPrint() error
}

// Settings is the persistent settings layer
type Settings interface {
	Brightness() uint8
	SetBrightness(percent uint8)
	Save() error
}

// Listener receives the asynchronous events of the printer
type Listener interface {
	OnPrintStarted()
	OnPrintFinished()
	OnMediaInserted()
	OnMediaRemoved()
	OnLevelingProgress(percent uint8)
}
