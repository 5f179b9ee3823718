package printer

import (
	"errors"
	"math"
	"sync"
	"time"

	"dgusui/core"
	"dgusui/printer/gcode"

	"github.com/rs/zerolog/log"
)

var (
	ErrKilled      = errors.New("printer killed")
	ErrNotPrinting = errors.New("no print in progress")
	ErrNotHomed    = errors.New("printer not homed")
)

// SimConfig holds the timing of the simulated printer
type SimConfig struct {
	HomingTime   time.Duration
	MoveTime     time.Duration // per G0/G1
	LevelingTime time.Duration // G29
	PrintTime    time.Duration // StartPrint to finish
	HeatRate     float64       // °C per second, heating and cooling
	Ambient      float64       // °C
}

// DefaultSimConfig returns timings close to a small bed slinger
func DefaultSimConfig() SimConfig {
	return SimConfig{
		HomingTime:   3 * time.Second,
		MoveTime:     200 * time.Millisecond,
		LevelingTime: 10 * time.Second,
		PrintTime:    2 * time.Minute,
		HeatRate:     5,
		Ambient:      25,
	}
}

type position struct {
	X, Y, Z, E float64
}

// Simulated is a printer without hardware. G-code is parsed and executed
// one command at a time as Step is called from the main loop.
type Simulated struct {
	mu       sync.Mutex
	clock    core.Clock
	cfg      SimConfig
	parser   *gcode.Parser
	settings Settings
	listener Listener

	temps    Temperatures
	fan      uint8
	pos      position
	relative bool
	homed    bool

	queue     []*gcode.Command
	busy      bool
	busyUntil uint32
	waitFor   *Heater // M109/M190
	onDone    func(events *[]func(Listener))
	lastStep  uint32

	leveling      bool
	levelingStart uint32
	levelingShown uint8

	printing     bool
	paused       bool
	printElapsed uint32
	progress     uint8

	killed     bool
	killReason string
	history    []string
}

// NewSimulated creates a cold, unhomed printer. settings may be nil.
func NewSimulated(clock core.Clock, cfg SimConfig, settings Settings) *Simulated {
	s := &Simulated{
		clock:    clock,
		cfg:      cfg,
		parser:   gcode.NewParser(),
		settings: settings,
		lastStep: clock.Millis(),
	}
	s.temps.Bed.Current = cfg.Ambient
	s.temps.HotEnd.Current = cfg.Ambient
	return s
}

// SetListener registers the receiver of printer events
func (s *Simulated) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Step advances the simulation to the current clock
func (s *Simulated) Step() {
	var events []func(Listener)

	s.mu.Lock()
	now := s.clock.Millis()
	dt := now - s.lastStep
	s.lastStep = now

	if !s.killed {
		s.updateHeaters(dt)
		s.updateLeveling(now, &events)
		s.runQueue(now, &events)
		s.updatePrint(dt, &events)
	}
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		return
	}
	for _, event := range events {
		event(listener)
	}
}

func (s *Simulated) updateHeaters(dt uint32) {
	delta := s.cfg.HeatRate * float64(dt) / 1000
	approach(&s.temps.Bed, delta, s.cfg.Ambient)
	approach(&s.temps.HotEnd, delta, s.cfg.Ambient)
}

func approach(h *Heater, delta, ambient float64) {
	goal := h.Target
	if goal < ambient {
		goal = ambient
	}
	switch {
	case h.Current < goal:
		h.Current = math.Min(h.Current+delta, goal)
	case h.Current > goal:
		h.Current = math.Max(h.Current-delta, goal)
	}
}

func (s *Simulated) runQueue(now uint32, events *[]func(Listener)) {
	for {
		if s.busy {
			if !core.Reached(now, s.busyUntil) {
				return
			}
			if s.waitFor != nil && math.Abs(s.waitFor.Current-s.waitFor.Target) > 1 {
				return
			}
			s.busy = false
			s.waitFor = nil
			if done := s.onDone; done != nil {
				s.onDone = nil
				done(events)
			}
		}

		if len(s.queue) == 0 {
			return
		}
		cmd := s.queue[0]
		s.queue = s.queue[1:]
		s.execute(cmd, now)
	}
}

// occupy marks the printer busy for d
func (s *Simulated) occupy(now uint32, d time.Duration) {
	s.busy = true
	s.busyUntil = now + core.ToMillis(d)
}

func (s *Simulated) execute(cmd *gcode.Command, now uint32) {
	log.Debug().Str("gcode", cmd.String()).Msg("executing")

	switch cmd.Type {
	case 'G':
		s.executeG(cmd, now)
	case 'M':
		s.executeM(cmd, now)
	default:
		log.Debug().Str("gcode", cmd.String()).Msg("unsupported command ignored")
	}
}

// executeG handles G-codes
func (s *Simulated) executeG(cmd *gcode.Command, now uint32) {
	switch cmd.Number {
	case 0, 1: // Linear move
		s.move(cmd)
		s.occupy(now, s.cfg.MoveTime)
	case 28: // Home
		s.homed = false
		s.occupy(now, s.cfg.HomingTime)
		s.onDone = func(*[]func(Listener)) {
			s.homed = true
			s.pos = position{E: s.pos.E}
		}
	case 29: // Bed leveling
		if !s.homed {
			log.Warn().Msg("G29 refused: printer not homed")
			return
		}
		s.leveling = true
		s.levelingStart = now
		s.levelingShown = 0
		s.occupy(now, s.cfg.LevelingTime)
		s.onDone = func(events *[]func(Listener)) {
			s.leveling = false
			*events = append(*events, func(l Listener) { l.OnLevelingProgress(100) })
		}
	case 90: // Absolute positioning
		s.relative = false
	case 91: // Relative positioning
		s.relative = true
	case 92: // Set position
		if cmd.HasParameter('E') {
			s.pos.E = cmd.GetParameter('E', 0)
		}
	default:
		log.Debug().Str("gcode", cmd.String()).Msg("unsupported command ignored")
	}
}

// executeM handles M-codes
func (s *Simulated) executeM(cmd *gcode.Command, now uint32) {
	switch cmd.Number {
	case 104: // Set hotend temperature
		s.temps.HotEnd.Target = cmd.GetParameter('S', 0)
	case 109: // Set hotend temperature and wait
		s.temps.HotEnd.Target = cmd.GetParameter('S', s.temps.HotEnd.Target)
		s.occupy(now, 0)
		s.waitFor = &s.temps.HotEnd
	case 140: // Set bed temperature
		s.temps.Bed.Target = cmd.GetParameter('S', 0)
	case 190: // Set bed temperature and wait
		s.temps.Bed.Target = cmd.GetParameter('S', s.temps.Bed.Target)
		s.occupy(now, 0)
		s.waitFor = &s.temps.Bed
	case 106: // Fan on
		s.fan = uint8(math.Max(0, math.Min(255, cmd.GetParameter('S', 255))))
	case 107: // Fan off
		s.fan = 0
	case 500: // Save settings
		if s.settings != nil {
			if err := s.settings.Save(); err != nil {
				log.Error().Err(err).Msg("M500 failed")
			}
		}
	default:
		log.Debug().Str("gcode", cmd.String()).Msg("unsupported command ignored")
	}
}

func (s *Simulated) move(cmd *gcode.Command) {
	axis := func(letter byte, current float64) float64 {
		if !cmd.HasParameter(letter) {
			return current
		}
		if s.relative {
			return current + cmd.GetParameter(letter, 0)
		}
		return cmd.GetParameter(letter, current)
	}
	s.pos.X = axis('X', s.pos.X)
	s.pos.Y = axis('Y', s.pos.Y)
	s.pos.Z = axis('Z', s.pos.Z)
	s.pos.E = axis('E', s.pos.E)
}

func (s *Simulated) updateLeveling(now uint32, events *[]func(Listener)) {
	if !s.leveling {
		return
	}
	total := core.ToMillis(s.cfg.LevelingTime)
	if total == 0 {
		return
	}
	elapsed := now - s.levelingStart
	percent := uint8(uint64(elapsed) * 100 / uint64(total))
	if percent >= 100 {
		percent = 99 // 100 is reported when G29 completes
	}
	// Report every 10%
	if percent/10 > s.levelingShown/10 {
		s.levelingShown = percent
		*events = append(*events, func(l Listener) { l.OnLevelingProgress(percent) })
	}
}

func (s *Simulated) updatePrint(dt uint32, events *[]func(Listener)) {
	if !s.printing || s.paused {
		return
	}
	s.printElapsed += dt
	total := core.ToMillis(s.cfg.PrintTime)
	if total == 0 || s.printElapsed >= total {
		s.printing = false
		s.progress = 100
		s.temps.HotEnd.Target = 0
		s.temps.Bed.Target = 0
		*events = append(*events, func(l Listener) { l.OnPrintFinished() })
		return
	}
	s.progress = uint8(uint64(s.printElapsed) * 100 / uint64(total))
}

// StartPrint starts a simulated print
func (s *Simulated) StartPrint() error {
	s.mu.Lock()
	if s.killed {
		s.mu.Unlock()
		return ErrKilled
	}
	if !s.homed {
		s.mu.Unlock()
		return ErrNotHomed
	}
	s.printing = true
	s.paused = false
	s.printElapsed = 0
	s.progress = 0
	listener := s.listener
	s.mu.Unlock()

	log.Info().Msg("print started")
	if listener != nil {
		listener.OnPrintStarted()
	}
	return nil
}

// InsertMedia simulates an SD card being inserted
func (s *Simulated) InsertMedia() {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener.OnMediaInserted()
	}
}

// RemoveMedia simulates the SD card being pulled. A running print stops.
func (s *Simulated) RemoveMedia() {
	s.mu.Lock()
	if s.printing {
		s.stop()
	}
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener.OnMediaRemoved()
	}
}

// Kill halts motion and heating. The printer stays dead.
func (s *Simulated) Kill(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.killed {
		return
	}
	s.killed = true
	s.killReason = reason
	s.queue = nil
	s.busy = false
	s.onDone = nil
	s.waitFor = nil
	s.leveling = false
	s.printing = false
	s.temps.HotEnd.Target = 0
	s.temps.Bed.Target = 0
	s.fan = 0
	log.Error().Str("reason", reason).Msg("printer halted")
}

// Killed reports whether Kill was called, and why
func (s *Simulated) Killed() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed, s.killReason
}

// IsBusy reports whether commands are running or queued
func (s *Simulated) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy || len(s.queue) > 0
}

// IsHomed reports whether G28 completed
func (s *Simulated) IsHomed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.homed
}

// IsPrinting reports whether a print is running, paused or not
func (s *Simulated) IsPrinting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.printing
}

// InjectCommands queues G-code for execution
func (s *Simulated) InjectCommands(text string) error {
	cmds, err := s.parser.ParseLines(text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.killed {
		return ErrKilled
	}
	for _, cmd := range cmds {
		s.history = append(s.history, cmd.String())
	}
	s.queue = append(s.queue, cmds...)
	return nil
}

// History returns every command injected so far
func (s *Simulated) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

// Temperatures returns the heater states
func (s *Simulated) Temperatures() Temperatures {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temps
}

// Status returns fan, Z and progress
func (s *Simulated) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		FanSpeed: s.fan,
		ZHeight:  s.pos.Z,
		Progress: s.progress,
	}
}

// SetTargetHotEnd sets the hotend target
func (s *Simulated) SetTargetHotEnd(celsius float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.killed {
		s.temps.HotEnd.Target = celsius
	}
}

// SetTargetBed sets the bed target
func (s *Simulated) SetTargetBed(celsius float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.killed {
		s.temps.Bed.Target = celsius
	}
}

// PausePrint suspends the print
func (s *Simulated) PausePrint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.printing {
		return ErrNotPrinting
	}
	s.paused = true
	return nil
}

// ResumePrint resumes a paused print
func (s *Simulated) ResumePrint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.printing {
		return ErrNotPrinting
	}
	s.paused = false
	return nil
}

// StopPrint aborts the print and turns the heaters off
func (s *Simulated) StopPrint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.printing {
		return ErrNotPrinting
	}
	s.stop()
	return nil
}

func (s *Simulated) stop() {
	s.printing = false
	s.paused = false
	s.queue = nil
	s.temps.HotEnd.Target = 0
	s.temps.Bed.Target = 0
	log.Info().Uint8("progress", s.progress).Msg("print stopped")
}
