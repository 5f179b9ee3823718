package ui

import (
	"errors"
	"fmt"

	"dgusui/core"
	"dgusui/protocol"

	"github.com/rs/zerolog/log"
)

// Keys of the main menu (ActionScreen)
const (
	KeyMenuPrint      protocol.KeyValue = 1
	KeyMenuLoadUnload protocol.KeyValue = 2
	KeyMenuLeveling   protocol.KeyValue = 3
	KeyMenuBrightness protocol.KeyValue = 4
	KeyMenuVersions   protocol.KeyValue = 5
)

// Menu is the main page. Its keys open the other screens.
type Menu struct {
	Base
	d *Display
}

func newMenu(d *Display) *Menu {
	return &Menu{Base: NewBase(protocol.ActionScreen), d: d}
}

func (m *Menu) OnShow() (Page, bool) {
	return PageMain, true
}

func (m *Menu) Dispatch(key protocol.KeyValue) bool {
	var target protocol.Action
	switch key {
	case KeyMenuPrint:
		target = protocol.ActionPrintCommand
	case KeyMenuLoadUnload:
		target = protocol.ActionLoadUnload
	case KeyMenuLeveling:
		target = protocol.ActionLeveling
	case KeyMenuBrightness:
		target = protocol.ActionBrightness
	case KeyMenuVersions:
		target = protocol.ActionVersions
	default:
		return false
	}
	m.d.HandleKey(target, protocol.KeyShow)
	return true
}

// ---------------------------------------------------------------------------
// Print

// Keys of the print page
const (
	KeyPrintStop   protocol.KeyValue = 1
	KeyPrintPause  protocol.KeyValue = 2
	KeyPrintResume protocol.KeyValue = 3
)

// PrintScreen controls the running print
type PrintScreen struct {
	Base
	d *Display
}

func newPrintScreen(d *Display) *PrintScreen {
	return &PrintScreen{Base: NewBase(protocol.ActionPrintCommand), d: d}
}

func (p *PrintScreen) OnShow() (Page, bool) {
	return PagePrint, true
}

func (p *PrintScreen) Dispatch(key protocol.KeyValue) bool {
	switch key {
	case KeyPrintStop:
		p.d.wait.WaitBackContinue("Stop the print?", func() bool {
			return true
		}, p.stop)
	case KeyPrintPause:
		if err := p.d.printer.PausePrint(); err != nil {
			log.Warn().Err(err).Msg("pause refused")
			return true
		}
		p.d.WriteMessage("Paused")
	case KeyPrintResume:
		if err := p.d.printer.ResumePrint(); err != nil {
			log.Warn().Err(err).Msg("resume refused")
			return true
		}
		p.d.WriteMessage("Printing")
	default:
		return false
	}
	return true
}

func (p *PrintScreen) stop() bool {
	if err := p.d.printer.StopPrint(); err != nil {
		log.Warn().Err(err).Msg("stop refused")
	}
	p.d.WriteMessage("Print stopped")
	p.d.nav.Reset()
	return false
}

// ---------------------------------------------------------------------------
// Leveling

// Keys of the leveling page
const (
	KeyLevelingPoint1 protocol.KeyValue = 1 // front left
	KeyLevelingPoint2 protocol.KeyValue = 2 // front right
	KeyLevelingPoint3 protocol.KeyValue = 3 // back right
	KeyLevelingPoint4 protocol.KeyValue = 4 // back left
	KeyLevelingPoint5 protocol.KeyValue = 5 // center
	KeyLevelingAuto   protocol.KeyValue = 0x10
)

// Leveling homes the printer if needed, then moves the nozzle over the
// leveling points or runs G29
type Leveling struct {
	Base
	d *Display
}

func newLeveling(d *Display) *Leveling {
	return &Leveling{Base: NewBase(protocol.ActionLeveling), d: d}
}

func (l *Leveling) OnShow() (Page, bool) {
	if !l.d.allowed(PageLeveling) {
		return PageNone, false
	}
	if l.d.printer.IsHomed() {
		return PageLeveling, true
	}

	if err := l.d.printer.InjectCommands("G28"); err != nil {
		log.Error().Err(err).Msg("failed to start homing")
		return PageNone, false
	}
	l.d.wait.WaitBack("Homing...", l.cancel)
	l.d.scheduler.Set(l.d.opts.CheckInterval, l.checkHomed, core.Repeating)
	return PageNone, false
}

func (l *Leveling) checkHomed() {
	if !l.d.printer.IsHomed() {
		return
	}
	l.d.scheduler.Clear()
	l.d.nav.Show(PageLeveling, protocol.ActionLeveling)
}

func (l *Leveling) cancel() bool {
	l.d.scheduler.Clear()
	return true
}

func (l *Leveling) Dispatch(key protocol.KeyValue) bool {
	if key == KeyLevelingAuto {
		if err := l.d.printer.InjectCommands("G29"); err != nil {
			log.Error().Err(err).Msg("failed to start leveling")
			return true
		}
		l.progress(0)
		l.d.WriteMessage("Leveling...")
		return true
	}

	x, y, ok := l.point(key)
	if !ok {
		return false
	}
	gcode := fmt.Sprintf("G1 Z5 F600\nG1 X%.0f Y%.0f F6000\nG1 Z0 F600", x, y)
	if err := l.d.printer.InjectCommands(gcode); err != nil {
		log.Error().Err(err).Msg("failed to move to leveling point")
	}
	return true
}

// point returns the bed position of a leveling key
func (l *Leveling) point(key protocol.KeyValue) (float64, float64, bool) {
	size := l.d.opts.BedSize
	margin := l.d.opts.LevelingMargin
	switch key {
	case KeyLevelingPoint1:
		return margin, margin, true
	case KeyLevelingPoint2:
		return size - margin, margin, true
	case KeyLevelingPoint3:
		return size - margin, size - margin, true
	case KeyLevelingPoint4:
		return margin, size - margin, true
	case KeyLevelingPoint5:
		return size / 2, size / 2, true
	}
	return 0, 0, false
}

// OnBack raises the nozzle before leaving
func (l *Leveling) OnBack() bool {
	if err := l.d.printer.InjectCommands("G1 Z10 F600"); err != nil {
		log.Error().Err(err).Msg("failed to raise Z")
	}
	return true
}

func (l *Leveling) OnAbort() {
	l.d.scheduler.Clear()
}

func (l *Leveling) progress(percent uint8) {
	err := protocol.NewWriteRamRequest(l.d.engine, protocol.VariableProgress).WriteWord(uint16(percent))
	if err != nil {
		log.Error().Err(err).Msg("failed to write leveling progress")
	}
}

// ---------------------------------------------------------------------------
// Load / Unload

// Keys of the load/unload page
const (
	KeyLoadFilament   protocol.KeyValue = 1
	KeyUnloadFilament protocol.KeyValue = 2
)

// heatTolerance is how close to target the hotend must be to extrude, in °C
const heatTolerance = 2

// LoadUnload heats the hotend then feeds or retracts filament
type LoadUnload struct {
	Base
	d      *Display
	target float64
	length float64 // negative to unload
}

func newLoadUnload(d *Display) *LoadUnload {
	return &LoadUnload{Base: NewBase(protocol.ActionLoadUnload), d: d}
}

func (l *LoadUnload) OnShow() (Page, bool) {
	return PageLoadUnload, true
}

func (l *LoadUnload) Dispatch(key protocol.KeyValue) bool {
	switch key {
	case KeyLoadFilament:
		l.start(l.d.opts.LoadLength)
	case KeyUnloadFilament:
		l.start(-l.d.opts.LoadLength)
	default:
		return false
	}
	return true
}

func (l *LoadUnload) start(length float64) {
	l.target = l.d.opts.PreheatHotEnd
	l.length = length
	l.d.printer.SetTargetHotEnd(l.target)
	l.d.wait.WaitBack("Heating...", l.cancel)
	l.d.scheduler.Set(l.d.opts.CheckInterval, l.checkTemperature, core.Repeating)
}

func (l *LoadUnload) checkTemperature() {
	if l.d.printer.Temperatures().HotEnd.Current < l.target-heatTolerance {
		return
	}
	l.d.scheduler.Clear()

	gcode := fmt.Sprintf("G91\nG1 E%.0f F%.0f\nG90", l.length, l.d.opts.LoadFeedRate)
	if err := l.d.printer.InjectCommands(gcode); err != nil {
		log.Error().Err(err).Msg("failed to move filament")
	}
	if l.length > 0 {
		l.d.WriteMessage("Loading filament")
	} else {
		l.d.WriteMessage("Unloading filament")
	}
	l.d.nav.ShowBackPage(1)
}

func (l *LoadUnload) cancel() bool {
	l.d.scheduler.Clear()
	l.d.printer.SetTargetHotEnd(0)
	return true
}

// OnBack turns the hotend off
func (l *LoadUnload) OnBack() bool {
	l.d.printer.SetTargetHotEnd(0)
	return true
}

func (l *LoadUnload) OnAbort() {
	l.d.scheduler.Clear()
	l.d.printer.SetTargetHotEnd(0)
}

// ---------------------------------------------------------------------------
// Brightness

// Keys of the brightness page
const (
	KeyBrightnessUp   protocol.KeyValue = 1
	KeyBrightnessDown protocol.KeyValue = 2
)

const brightnessStep = 10

// Brightness adjusts the backlight live. Back reverts, Save persists.
type Brightness struct {
	Base
	d     *Display
	saved uint8
	value uint8
}

func newBrightness(d *Display) *Brightness {
	return &Brightness{Base: NewBase(protocol.ActionBrightness), d: d}
}

func (b *Brightness) OnShow() (Page, bool) {
	b.saved = b.d.settings.Brightness()
	b.value = b.saved
	b.writeValue()
	return PageBrightness, true
}

func (b *Brightness) Dispatch(key protocol.KeyValue) bool {
	switch key {
	case KeyBrightnessUp:
		b.value += brightnessStep
		if b.value > 100 {
			b.value = 100
		}
	case KeyBrightnessDown:
		if b.value <= brightnessStep {
			b.value = brightnessStep
		} else {
			b.value -= brightnessStep
		}
	default:
		return false
	}
	b.d.SetBrightness(b.value)
	b.writeValue()
	return true
}

func (b *Brightness) writeValue() {
	err := protocol.NewWriteRamRequest(b.d.engine, protocol.VariableValue0).WriteWord(uint16(b.value))
	if err != nil {
		log.Error().Err(err).Msg("failed to write brightness value")
	}
}

// OnBack restores the saved level
func (b *Brightness) OnBack() bool {
	b.value = b.saved
	b.d.SetBrightness(b.saved)
	return true
}

// OnSave keeps the new level
func (b *Brightness) OnSave() bool {
	b.d.settings.SetBrightness(b.value)
	b.saved = b.value
	return true
}

// ---------------------------------------------------------------------------
// Versions

// Versions shows the panel and firmware versions
type Versions struct {
	Base
	d *Display
}

func newVersions(d *Display) *Versions {
	return &Versions{Base: NewBase(protocol.ActionVersions), d: d}
}

func (v *Versions) OnShow() (Page, bool) {
	lcd, err := v.d.ReadPanelVersion()
	if errors.Is(err, protocol.ErrCommunicationLost) {
		return PageNone, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("panel version unavailable")
		lcd = "Unknown"
	}

	req := protocol.NewWriteRamRequest(v.d.engine, protocol.VariableLCDVersion)
	if err := req.WriteText(lcd, protocol.VersionSize); err != nil {
		log.Error().Err(err).Msg("failed to write panel version")
	}
	req = protocol.NewWriteRamRequest(v.d.engine, protocol.VariableFirmwareVersion)
	if err := req.WriteText(protocol.Version, protocol.VersionSize); err != nil {
		log.Error().Err(err).Msg("failed to write firmware version")
	}
	return PageVersions, true
}
