package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"dgusui/protocol"
)

func TestDisplayOpen(t *testing.T) {
	h := newHarness(t)

	if err := h.d.Open(); err != nil {
		t.Fatal(err)
	}
	s := h.sent()
	if len(s.brightness) != 1 || s.brightness[0] != 80 {
		t.Errorf("Expected saved brightness 80, got %v", s.brightness)
	}
	if len(s.pages) != 1 || Page(s.pages[0]) != PageBoot {
		t.Errorf("Expected the boot page, got %v", s.pages)
	}
	if !h.d.Scheduler().Armed() {
		t.Error("Main page should be scheduled")
	}

	if err := h.d.Idle(); err != nil {
		t.Fatal(err)
	}
	s = h.sent()
	if s.lastPage() != PageMain {
		t.Errorf("Expected the main page, got %v", s.pages)
	}
	if _, ok := s.ram[protocol.VariableTargetBed]; !ok {
		t.Error("Status block should be refreshed on the first idle")
	}
}

func TestDisplayStatusBlock(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.printer.SetTargetHotEnd(210)
	h.printer.SetTargetBed(60)
	h.clock.Advance(time.Second)
	h.d.Idle()

	block, ok := h.sent().ram[protocol.VariableTargetBed]
	if !ok {
		t.Fatal("Status block not sent")
	}
	want := []byte{
		0x00, 60, // bed target
		0x00, 25, // bed current
		0x00, 210, // hotend target
		0x00, 25, // hotend current
		0x00, 0x00, // fan
		0x00, 0x00, // Z x100
		0x00, 0x00, // progress
	}
	if string(block) != string(want) {
		t.Errorf("Expected % X, got % X", want, block)
	}

	// Not due yet
	h.clock.Advance(500 * time.Millisecond)
	h.d.Idle()
	if _, ok := h.sent().ram[protocol.VariableTargetBed]; ok {
		t.Error("Status block sent before its interval")
	}
}

func TestDisplayKeyFromPanel(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.feedKey(protocol.ActionScreen, KeyMenuBrightness)
	if err := h.d.Idle(); err != nil {
		t.Fatal(err)
	}
	h.expectPage(PageBrightness)
	if s := h.sent(); s.lastPage() != PageBrightness {
		t.Errorf("Brightness picture not sent: %v", s.pages)
	}
}

func TestDisplayUnsolicitedFrameDropped(t *testing.T) {
	h := newHarness(t)
	h.open()

	// Panel acknowledgment of a write: 5A A5 03 82 4F 4B
	ack := []byte{0x5A, 0xA5, 0x03, 0x82, 0x4F, 0x4B}
	key := keyFrame(protocol.ActionScreen, KeyMenuVersions)
	h.port.Responder = func(written []byte) []byte {
		if len(written) > 4 && written[3] == byte(protocol.ReadRegister) {
			return []byte{0x5A, 0xA5, 0x04, 0x81, 0x00, 0x01, 0x10}
		}
		return nil
	}
	h.port.Feed(append(ack, key...)...)
	h.waitAvailable(len(ack) + len(key))

	h.d.Idle()
	h.expectPage(PageMain)
	h.d.Idle()
	h.expectPage(PageVersions)
}

func TestDisplayIgnoresNonActionVariable(t *testing.T) {
	h := newHarness(t)
	h.open()

	frame := []byte{0x5A, 0xA5, 0x06, 0x83, 0x00, 0x10, 0x01, 0x00, 0x01}
	h.port.Feed(frame...)
	h.waitAvailable(len(frame))

	if err := h.d.Idle(); err != nil {
		t.Fatal(err)
	}
	h.expectPage(PageMain)
	if h.link.Available() != 0 {
		t.Errorf("Frame should be consumed, %d bytes left", h.link.Available())
	}
}

func TestDisplayBrightness(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.d.HandleKey(protocol.ActionScreen, KeyMenuBrightness)
	h.d.HandleKey(protocol.ActionBrightness, KeyBrightnessUp)
	h.d.HandleKey(protocol.ActionBrightness, KeyBrightnessUp)
	h.d.HandleKey(protocol.ActionBrightness, KeyBrightnessUp)

	s := h.sent()
	if len(s.brightness) != 3 || s.brightness[2] != 100 {
		t.Errorf("Expected live brightness clamped to 100, got %v", s.brightness)
	}
	if v := s.ram[protocol.VariableValue0]; len(v) != 2 || v[1] != 100 {
		t.Errorf("Brightness value % X", v)
	}

	// Back reverts
	h.d.HandleKey(protocol.ActionBrightness, protocol.KeyBack)
	s = h.sent()
	if len(s.brightness) != 1 || s.brightness[0] != 80 {
		t.Errorf("Expected brightness reverted to 80, got %v", s.brightness)
	}
	h.expectPage(PageMain)
	if h.settings.saves != 0 || h.settings.brightness != 80 {
		t.Errorf("Settings changed: %+v", h.settings)
	}

	// Save persists
	h.d.HandleKey(protocol.ActionScreen, KeyMenuBrightness)
	h.d.HandleKey(protocol.ActionBrightness, KeyBrightnessDown)
	h.d.HandleKey(protocol.ActionBrightness, protocol.KeySave)
	if h.settings.saves != 1 || h.settings.brightness != 70 {
		t.Errorf("Expected saved brightness 70, got %+v", h.settings)
	}
	h.expectPage(PageMain)
}

func TestDisplayLevelingHomesFirst(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.d.HandleKey(protocol.ActionScreen, KeyMenuLeveling)
	h.expectPage(PageWaitBack)
	if hist := h.printer.History(); len(hist) != 1 || hist[0] != "G28" {
		t.Fatalf("Expected G28, got %v", hist)
	}
	if s := h.sent(); len(s.messages) != 1 || s.messages[0] != "Homing..." {
		t.Errorf("Messages %q", s.messages)
	}
	if !h.d.Scheduler().Armed() {
		t.Fatal("Homing check not armed")
	}

	h.run(1500 * time.Millisecond)
	h.expectPage(PageLeveling)
	if h.d.Scheduler().Armed() {
		t.Error("Homing check should be cleared")
	}
	if h.d.Navigator().Depth() != 0 {
		t.Errorf("Wait page must not be recorded, history %v", h.d.Navigator().History())
	}

	h.d.HandleKey(protocol.ActionLeveling, KeyLevelingPoint2)
	h.d.HandleKey(protocol.ActionLeveling, protocol.KeyBack)
	h.expectPage(PageMain)

	hist := h.printer.History()
	want := []string{"G28", "G1 F600 Z5", "G1 F6000 X190 Y30", "G1 F600 Z0", "G1 F600 Z10"}
	if strings.Join(hist, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %v, got %v", want, hist)
	}
}

func TestDisplayLevelingCancelHoming(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.d.HandleKey(protocol.ActionScreen, KeyMenuLeveling)
	h.expectPage(PageWaitBack)

	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	h.expectPage(PageMain)
	if h.d.Scheduler().Armed() {
		t.Error("Homing check should be cleared")
	}

	h.run(1500 * time.Millisecond)
	h.expectPage(PageMain)
}

func TestDisplayLevelingAuto(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.printer.InjectCommands("G28")
	h.run(1200 * time.Millisecond)

	h.d.HandleKey(protocol.ActionScreen, KeyMenuLeveling)
	h.expectPage(PageLeveling)
	h.d.HandleKey(protocol.ActionLeveling, KeyLevelingAuto)
	h.sent()

	h.run(1500 * time.Millisecond)
	s := h.sent()
	if v := s.ram[protocol.VariableProgress]; len(v) != 2 || v[1] != 100 {
		t.Errorf("Expected progress 100, got % X", v)
	}
	if len(s.messages) == 0 || s.messages[len(s.messages)-1] != "Leveling done" {
		t.Errorf("Messages %q", s.messages)
	}
}

func TestDisplayLoadFilament(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.d.HandleKey(protocol.ActionScreen, KeyMenuLoadUnload)
	h.expectPage(PageLoadUnload)
	h.d.HandleKey(protocol.ActionLoadUnload, KeyLoadFilament)
	h.expectPage(PageWaitBack)
	if target := h.printer.Temperatures().HotEnd.Target; target != 200 {
		t.Errorf("Expected preheat 200, got %v", target)
	}

	h.run(3 * time.Second)
	h.expectPage(PageLoadUnload)
	if h.d.Navigator().Depth() != 0 {
		t.Errorf("History %v", h.d.Navigator().History())
	}

	want := []string{"G91", "G1 E100 F300", "G90"}
	if hist := h.printer.History(); strings.Join(hist, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %v, got %v", want, hist)
	}

	h.d.HandleKey(protocol.ActionLoadUnload, protocol.KeyBack)
	h.expectPage(PageMain)
	if target := h.printer.Temperatures().HotEnd.Target; target != 0 {
		t.Errorf("Hotend should be off, target %v", target)
	}
}

func TestDisplayUnloadCancelled(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.d.HandleKey(protocol.ActionScreen, KeyMenuLoadUnload)
	h.d.HandleKey(protocol.ActionLoadUnload, KeyUnloadFilament)
	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)

	h.expectPage(PageLoadUnload)
	if target := h.printer.Temperatures().HotEnd.Target; target != 0 {
		t.Errorf("Hotend should be off, target %v", target)
	}
	h.run(3 * time.Second)
	if hist := h.printer.History(); len(hist) != 0 {
		t.Errorf("No filament move expected, got %v", hist)
	}
}

func TestDisplayBlockedWhilePrinting(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.printer.InjectCommands("G28")
	h.run(1200 * time.Millisecond)
	if err := h.printer.StartPrint(); err != nil {
		t.Fatal(err)
	}
	h.expectPage(PagePrint)
	h.d.HandleKey(protocol.ActionPrintCommand, protocol.KeyBack)
	h.expectPage(PageMain)
	h.sent()

	h.d.HandleKey(protocol.ActionScreen, KeyMenuLeveling)
	h.d.HandleKey(protocol.ActionScreen, KeyMenuLoadUnload)
	h.expectPage(PageMain)

	s := h.sent()
	if len(s.pages) != 0 {
		t.Errorf("No page expected, got %v", s.pages)
	}
	if s.beeps != 2 || len(s.messages) != 2 {
		t.Errorf("Expected two refusals, got %d beeps and %q", s.beeps, s.messages)
	}
	if hist := h.printer.History(); len(hist) != 1 {
		t.Errorf("Leveling must not home during a print: %v", hist)
	}
}

func TestDisplayPrintStop(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.printer.InjectCommands("G28")
	h.run(1200 * time.Millisecond)
	h.d.HandleKey(protocol.ActionScreen, KeyMenuBrightness)
	h.printer.StartPrint()
	h.expectPage(PagePrint)

	// Cancel the confirmation
	h.d.HandleKey(protocol.ActionPrintCommand, KeyPrintStop)
	h.expectPage(PageWaitBackContinue)
	h.d.HandleKey(protocol.ActionWait, protocol.KeyBack)
	h.expectPage(PagePrint)
	if !h.printer.IsPrinting() {
		t.Fatal("Print should still run")
	}

	// Confirm
	h.d.HandleKey(protocol.ActionPrintCommand, KeyPrintStop)
	h.d.HandleKey(protocol.ActionWait, protocol.KeySave)
	h.expectPage(PageMain)
	if h.printer.IsPrinting() {
		t.Error("Print should be stopped")
	}
	if h.settings.saves != 0 {
		t.Error("Stopping must not save settings")
	}
	if h.d.Navigator().Depth() != 0 {
		t.Errorf("History %v", h.d.Navigator().History())
	}
}

func TestDisplayPrintPauseResume(t *testing.T) {
	h := newHarness(t)
	h.open()

	// Refused without a print
	h.d.HandleKey(protocol.ActionPrintCommand, KeyPrintPause)
	if s := h.sent(); len(s.messages) != 0 {
		t.Errorf("Messages %q", s.messages)
	}

	h.printer.InjectCommands("G28")
	h.run(1200 * time.Millisecond)
	h.printer.StartPrint()
	h.sent()

	h.d.HandleKey(protocol.ActionPrintCommand, KeyPrintPause)
	h.run(time.Second)
	if p := h.printer.Status().Progress; p != 0 {
		t.Errorf("Paused print progressed to %d", p)
	}
	h.d.HandleKey(protocol.ActionPrintCommand, KeyPrintResume)
	h.run(time.Second)
	if p := h.printer.Status().Progress; p == 0 {
		t.Error("Resumed print did not progress")
	}

	s := h.sent()
	if text, ok := s.ram[protocol.VariableProgressText]; !ok || !strings.HasPrefix(trimText(text), "Printing ") {
		t.Errorf("Progress text %q", text)
	}
}

func TestDisplayPrintStartedAbortsWait(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.d.HandleKey(protocol.ActionScreen, KeyMenuLeveling)
	h.expectPage(PageWaitBack)

	h.d.OnPrintStarted()
	h.expectPage(PagePrint)
	if h.d.Scheduler().Armed() {
		t.Error("Pending homing check should be aborted")
	}
}

func TestDisplayMediaRemoved(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.printer.InjectCommands("G28")
	h.run(1200 * time.Millisecond)
	h.printer.StartPrint()
	h.sent()

	h.printer.RemoveMedia()
	h.expectPage(PageMain)
	if h.printer.IsPrinting() {
		t.Error("Print should stop with the media")
	}
	s := h.sent()
	if len(s.messages) != 1 || s.messages[0] != "Media removed" {
		t.Errorf("Messages %q", s.messages)
	}
}

func TestDisplayVersions(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.port.Responder = func(written []byte) []byte {
		// 5A A5 03 81 00 01: read one byte of the version register
		if len(written) == 6 && written[3] == byte(protocol.ReadRegister) && written[4] == byte(protocol.RegisterVersion) {
			return []byte{0x5A, 0xA5, 0x04, 0x81, 0x00, 0x01, 0x22}
		}
		return nil
	}

	h.d.HandleKey(protocol.ActionScreen, KeyMenuVersions)
	h.expectPage(PageVersions)

	s := h.sent()
	if v := trimText(s.ram[protocol.VariableLCDVersion]); v != "2.2" {
		t.Errorf("Expected panel version 2.2, got %q", v)
	}
	if v := trimText(s.ram[protocol.VariableFirmwareVersion]); v != protocol.Version {
		t.Errorf("Expected firmware version %s, got %q", protocol.Version, v)
	}
}

func TestDisplayInvalidKey(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.d.HandleKey(protocol.ActionScreen, 0x1234)
	h.d.HandleKey(protocol.Action(0x04F0), KeyMenuPrint)
	h.expectPage(PageMain)
	if s := h.sent(); len(s.pages) != 0 {
		t.Errorf("No page expected, got %v", s.pages)
	}
}

func TestDisplayKilled(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.safety.Kill("test")
	if err := h.d.Idle(); !errors.Is(err, protocol.ErrCommunicationLost) {
		t.Errorf("Expected ErrCommunicationLost, got %v", err)
	}
	if killed, _ := h.printer.Killed(); !killed {
		t.Error("Printer should be halted")
	}
}

func TestDisplayLinkLost(t *testing.T) {
	h := newHarness(t)
	h.open()

	// Panel never answers the version request
	h.d.HandleKey(protocol.ActionScreen, KeyMenuVersions)
	h.expectPage(PageMain)

	if !h.d.Killed() {
		t.Fatal("Display should be killed")
	}
	if killed, reason := h.printer.Killed(); !killed || reason == "" {
		t.Errorf("Printer should be halted, killed=%v reason=%q", killed, reason)
	}
	if err := h.d.Idle(); !errors.Is(err, protocol.ErrCommunicationLost) {
		t.Errorf("Expected ErrCommunicationLost, got %v", err)
	}
}

func TestNewRejectsDuplicateScreens(t *testing.T) {
	h := newHarness(t)
	if err := h.d.Router().Register(newMenu(h.d)); !errors.Is(err, ErrDuplicateAction) {
		t.Errorf("Expected ErrDuplicateAction, got %v", err)
	}
	if h.d.Router().Count() != 7 {
		t.Errorf("Expected 7 screens, got %d", h.d.Router().Count())
	}
}

func TestToWord(t *testing.T) {
	tests := []struct {
		in   float64
		want uint16
	}{
		{0, 0},
		{-5, 0},
		{24.6, 25},
		{1234.4, 1234},
		{1e9, 0xFFFF},
	}
	for _, tt := range tests {
		if got := toWord(tt.in); got != tt.want {
			t.Errorf("toWord(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
