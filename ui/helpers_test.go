package ui

import (
	"testing"
	"time"

	"dgusui/core"
	"dgusui/host/serial"
	"dgusui/printer"
	"dgusui/protocol"
)

// memSettings keeps the settings in memory and counts saves
type memSettings struct {
	brightness uint8
	saves      int
}

func (s *memSettings) Brightness() uint8         { return s.brightness }
func (s *memSettings) SetBrightness(level uint8) { s.brightness = level }
func (s *memSettings) Save() error {
	s.saves++
	return nil
}

type harness struct {
	t        *testing.T
	port     *serial.MockPort
	link     *protocol.Link
	clock    *core.ManualClock
	printer  *printer.Simulated
	settings *memSettings
	safety   *core.Safety
	d        *Display
}

func testSimConfig() printer.SimConfig {
	return printer.SimConfig{
		HomingTime:   time.Second,
		MoveTime:     10 * time.Millisecond,
		LevelingTime: time.Second,
		PrintTime:    10 * time.Second,
		HeatRate:     100,
		Ambient:      25,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:        t,
		port:     serial.NewMockPort(),
		clock:    core.NewManualClock(1000),
		settings: &memSettings{brightness: 80},
	}
	h.printer = printer.NewSimulated(h.clock, testSimConfig(), h.settings)
	h.safety = core.NewSafety(h.printer, nil)
	h.link = protocol.NewLink(h.port, protocol.LinkConfig{
		ReadDelay: time.Millisecond,
		KillCount: 50,
	}, h.safety.Kill)
	t.Cleanup(func() { h.link.Close() })

	engine := protocol.NewEngine(h.link, protocol.EngineConfig{}, nil)
	d, err := New(engine, h.printer, h.settings, h.clock, h.safety, Options{
		StatusInterval: time.Second,
		CheckInterval:  100 * time.Millisecond,
		BootDelay:      0,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.printer.SetListener(d)
	h.d = d
	return h
}

// open boots the display onto the main page and forgets what was sent
func (h *harness) open() {
	h.t.Helper()
	if err := h.d.Open(); err != nil {
		h.t.Fatalf("Open failed: %v", err)
	}
	if err := h.d.Idle(); err != nil {
		h.t.Fatalf("Idle failed: %v", err)
	}
	if got := h.d.Navigator().Current().Page; got != PageMain {
		h.t.Fatalf("Expected the main page after boot, got %v", got)
	}
	h.port.TakeSent()
}

// run advances the clock in steps, running the printer and the display
func (h *harness) run(d time.Duration) {
	h.t.Helper()
	const step = 50 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.clock.Advance(step)
		h.printer.Step()
		if err := h.d.Idle(); err != nil {
			h.t.Fatalf("Idle failed: %v", err)
		}
	}
}

// feedKey queues a key press frame and waits for the link to receive it
func (h *harness) feedKey(action protocol.Action, key protocol.KeyValue) {
	h.t.Helper()
	frame := keyFrame(action, key)
	h.port.Feed(frame...)
	h.waitAvailable(len(frame))
}

func (h *harness) waitAvailable(n int) {
	h.t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.link.Available() < n {
		if time.Now().After(deadline) {
			h.t.Fatalf("timeout waiting for %d bytes, have %d", n, h.link.Available())
		}
		time.Sleep(time.Millisecond)
	}
}

func keyFrame(action protocol.Action, key protocol.KeyValue) []byte {
	return []byte{
		protocol.HeaderByte1, protocol.HeaderByte2, 0x06, byte(protocol.ReadRam),
		byte(action >> 8), byte(action), 0x01,
		byte(key >> 8), byte(key),
	}
}

// sentFrame is one frame written to the panel
type sentFrame struct {
	command protocol.Command
	payload []byte // target then data
}

func (h *harness) frames() []sentFrame {
	h.t.Helper()
	data := h.port.TakeSent()

	var frames []sentFrame
	for len(data) > 0 {
		if len(data) < protocol.HeaderSize+1 || data[0] != protocol.HeaderByte1 || data[1] != protocol.HeaderByte2 {
			h.t.Fatalf("malformed output % X", data)
		}
		end := protocol.HeaderSize + int(data[2])
		if end > len(data) {
			h.t.Fatalf("truncated frame % X", data)
		}
		frames = append(frames, sentFrame{
			command: protocol.Command(data[3]),
			payload: data[4:end],
		})
		data = data[end:]
	}
	return frames
}

// sent splits the frames written since the last call
type sent struct {
	pages      []uint16
	messages   []string
	brightness []uint8
	beeps      int
	ram        map[protocol.Variable][]byte // last write of each variable
}

func (h *harness) sent() sent {
	h.t.Helper()
	s := sent{ram: make(map[protocol.Variable][]byte)}
	for _, f := range h.frames() {
		switch f.command {
		case protocol.WriteRegister:
			switch protocol.Register(f.payload[0]) {
			case protocol.RegisterPictureID:
				s.pages = append(s.pages, uint16(f.payload[1])<<8|uint16(f.payload[2]))
			case protocol.RegisterBrightness:
				s.brightness = append(s.brightness, f.payload[1])
			case protocol.RegisterBuzzerBeep:
				s.beeps++
			}
		case protocol.WriteRam:
			v := protocol.Variable(uint16(f.payload[0])<<8 | uint16(f.payload[1]))
			s.ram[v] = f.payload[2:]
			if v == protocol.VariableMessage {
				s.messages = append(s.messages, trimText(f.payload[2:]))
			}
		}
	}
	return s
}

func (s sent) lastPage() Page {
	if len(s.pages) == 0 {
		return PageNone
	}
	return Page(s.pages[len(s.pages)-1])
}

func trimText(b []byte) string {
	start, end := 0, len(b)
	for start < end && b[start] == ' ' {
		start++
	}
	for end > start && b[end-1] == ' ' {
		end--
	}
	return string(b[start:end])
}

func (h *harness) expectPage(want Page) {
	h.t.Helper()
	if got := h.d.Navigator().Current().Page; got != want {
		h.t.Fatalf("Expected page %v, got %v", want, got)
	}
}
