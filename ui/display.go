package ui

import (
	"errors"
	"fmt"
	"math"
	"time"

	"dgusui/core"
	"dgusui/printer"
	"dgusui/protocol"

	"github.com/rs/zerolog/log"
)

// Options tune the screens
type Options struct {
	StatusInterval time.Duration // period of the temperature block refresh
	CheckInterval  time.Duration // period of background condition checks
	BootDelay      time.Duration // boot picture before the main page
	BeepDuration   time.Duration

	PreheatHotEnd float64 // °C
	PreheatBed    float64 // °C
	LoadLength    float64 // mm of filament for load/unload
	LoadFeedRate  float64 // mm/min

	BedSize        float64 // mm, square bed
	LevelingMargin float64 // mm from the edges to the leveling points
}

// DefaultOptions returns the options used when a field is left zero
func DefaultOptions() Options {
	return Options{
		StatusInterval: time.Second,
		CheckInterval:  500 * time.Millisecond,
		BootDelay:      time.Second,
		BeepDuration:   100 * time.Millisecond,
		PreheatHotEnd:  200,
		PreheatBed:     60,
		LoadLength:     100,
		LoadFeedRate:   300,
		BedSize:        220,
		LevelingMargin: 30,
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()
	if o.StatusInterval <= 0 {
		o.StatusInterval = def.StatusInterval
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = def.CheckInterval
	}
	if o.BootDelay < 0 {
		o.BootDelay = def.BootDelay
	}
	if o.BeepDuration <= 0 {
		o.BeepDuration = def.BeepDuration
	}
	if o.PreheatHotEnd <= 0 {
		o.PreheatHotEnd = def.PreheatHotEnd
	}
	if o.PreheatBed <= 0 {
		o.PreheatBed = def.PreheatBed
	}
	if o.LoadLength <= 0 {
		o.LoadLength = def.LoadLength
	}
	if o.LoadFeedRate <= 0 {
		o.LoadFeedRate = def.LoadFeedRate
	}
	if o.BedSize <= 0 {
		o.BedSize = def.BedSize
	}
	if o.LevelingMargin <= 0 || o.LevelingMargin*2 >= o.BedSize {
		o.LevelingMargin = def.LevelingMargin
	}
}

var _ printer.Listener = (*Display)(nil)

// Display is the state of the panel application: link, navigation,
// scheduler and screens. All methods run on the main loop.
type Display struct {
	engine   *protocol.Engine
	printer  printer.Printer
	settings printer.Settings
	clock    core.Clock
	safety   *core.Safety
	opts     Options

	scheduler *core.Scheduler
	nav       *Navigator
	router    *Router
	wait      *Wait
	leveling  *Leveling

	nextStatus uint32
}

// New wires the screens. safety may be nil.
func New(engine *protocol.Engine, p printer.Printer, settings printer.Settings,
	clock core.Clock, safety *core.Safety, opts Options) (*Display, error) {
	opts.applyDefaults()

	d := &Display{
		engine:    engine,
		printer:   p,
		settings:  settings,
		clock:     clock,
		safety:    safety,
		opts:      opts,
		scheduler: core.NewScheduler(clock),
		router:    NewRouter(),
	}
	d.nav = NewNavigator(
		Context{Page: PageMain, Action: protocol.ActionScreen},
		Context{Page: PagePrint, Action: protocol.ActionPrintCommand},
		d.showPicture,
		d.abort,
	)
	d.wait = newWait(d)
	d.leveling = newLeveling(d)

	handlers := []Handler{
		newMenu(d),
		newPrintScreen(d),
		d.wait,
		newLoadUnload(d),
		d.leveling,
		newBrightness(d),
		newVersions(d),
	}
	for _, h := range handlers {
		if err := d.router.Register(h); err != nil {
			return nil, fmt.Errorf("failed to register screen: %w", err)
		}
	}

	return d, nil
}

// Navigator returns the page history
func (d *Display) Navigator() *Navigator {
	return d.nav
}

// Scheduler returns the background task slot
func (d *Display) Scheduler() *core.Scheduler {
	return d.scheduler
}

// Router returns the action routing table
func (d *Display) Router() *Router {
	return d.router
}

// Wait returns the wait overlay
func (d *Display) Wait() *Wait {
	return d.wait
}

func (d *Display) showPicture(page Page) error {
	return protocol.NewWriteRegisterRequest(d.engine, protocol.RegisterPictureID).WriteWord(page.Number())
}

func (d *Display) abort(action protocol.Action) {
	if h, ok := d.router.Lookup(action); ok {
		h.OnAbort()
	}
}

// Open applies the saved brightness, shows the boot picture and schedules
// the main page
func (d *Display) Open() error {
	if err := d.SetBrightness(d.settings.Brightness()); err != nil {
		return fmt.Errorf("failed to initialize the display: %w", err)
	}
	if err := d.showPicture(PageBoot); err != nil {
		return fmt.Errorf("failed to show the boot page: %w", err)
	}
	d.scheduler.Set(d.opts.BootDelay, func() {
		if err := d.nav.Reset(); err != nil {
			log.Error().Err(err).Msg("failed to show the main page")
		}
	}, core.OneShot)

	log.Info().Str("firmware", protocol.Version).Msg("display opened")
	return nil
}

// Killed reports whether the printer was halted or the link lost
func (d *Display) Killed() bool {
	if d.safety != nil && d.safety.IsKilled() {
		return true
	}
	return d.engine.Link().Lost()
}

// Idle is one step of the main loop: background task, status refresh and at
// most one key press.
func (d *Display) Idle() error {
	if d.Killed() {
		return protocol.ErrCommunicationLost
	}

	d.scheduler.Execute(false)

	now := d.clock.Millis()
	if core.Reached(now, d.nextStatus) {
		d.nextStatus = now + core.ToMillis(d.opts.StatusInterval)
		if err := d.sendStatus(); err != nil {
			if errors.Is(err, protocol.ErrCommunicationLost) {
				return err
			}
			log.Error().Err(err).Msg("failed to refresh status")
		}
	}

	return d.poll()
}

func (d *Display) poll() error {
	action, key, err := protocol.ReceiveAction(d.engine, false)
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrNoFrame):
		return nil
	case errors.Is(err, protocol.ErrUnexpectedCommand):
		log.Debug().Stringer("cmd", d.engine.Command()).Msg("unsolicited frame dropped")
		if err := d.engine.Discard(); errors.Is(err, protocol.ErrCommunicationLost) {
			return err
		}
		return nil
	case errors.Is(err, protocol.ErrCommunicationLost):
		return err
	default:
		log.Warn().Err(err).Msg("invalid frame from the display")
		return nil
	}

	if !protocol.IsAction(protocol.Variable(action)) {
		log.Debug().Uint16("variable", uint16(action)).Msg("not an action variable, ignored")
		return nil
	}
	d.HandleKey(action, key)
	return nil
}

func (d *Display) sendStatus() error {
	t := d.printer.Temperatures()
	s := d.printer.Status()

	err := protocol.NewWriteRamRequest(d.engine, protocol.VariableTargetBed).WriteWords(
		toWord(t.Bed.Target),
		toWord(t.Bed.Current),
		toWord(t.HotEnd.Target),
		toWord(t.HotEnd.Current),
		uint16(s.FanSpeed),
		toWord(s.ZHeight*100),
		uint16(s.Progress),
	)
	if err != nil {
		return err
	}

	if d.printer.IsPrinting() {
		text := fmt.Sprintf("Printing %d%%", s.Progress)
		return protocol.NewWriteRamRequest(d.engine, protocol.VariableProgressText).
			WriteText(text, protocol.ProgressSize)
	}
	return nil
}

// toWord rounds a value to a display word, clamping to the word range
func toWord(v float64) uint16 {
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

// HandleKey routes a key to the handler of action
func (d *Display) HandleKey(action protocol.Action, key protocol.KeyValue) {
	h, ok := d.router.Lookup(action)
	if !ok {
		log.Warn().
			Uint16("action", uint16(action)).
			Uint16("key", uint16(key)).
			Msg("no handler for action")
		return
	}
	d.Handle(h, key)
}

// Handle gives a key to a handler, then runs the universal key behavior
func (d *Display) Handle(h Handler, key protocol.KeyValue) {
	if h.Dispatch(key) {
		return
	}

	switch key {
	case protocol.KeyShow:
		page, ok := h.OnShow()
		if !ok || !d.allowed(page) {
			return
		}
		d.report(d.nav.Show(page, h.Action()))
	case protocol.KeySave:
		if !h.OnSave() {
			return
		}
		if err := d.settings.Save(); err != nil {
			log.Error().Err(err).Msg("failed to save settings")
		}
		d.report(d.nav.ShowForwardPage())
	case protocol.KeyBack:
		if h.OnBack() {
			d.report(d.nav.ShowBackPage(1))
		}
	default:
		h.Invalid(key)
	}
}

// allowed refuses pages blocked while printing, telling the user why
func (d *Display) allowed(page Page) bool {
	if !page.IsBlockedWhilePrinting() || !d.printer.IsPrinting() {
		return true
	}
	log.Info().Stringer("page", page).Msg("page refused while printing")
	d.WriteMessage("Not available while printing")
	d.Beep()
	return false
}

func (d *Display) report(err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to change page")
	}
}

// WriteMessage centers a message in the message field
func (d *Display) WriteMessage(message string) error {
	return protocol.NewWriteRamRequest(d.engine, protocol.VariableMessage).
		WriteCenteredText(message, protocol.MessageSize)
}

// SetBrightness changes the backlight, in percent
func (d *Display) SetBrightness(percent uint8) error {
	return protocol.NewWriteRegisterRequest(d.engine, protocol.RegisterBrightness).WriteByte(percent)
}

// Beep sounds the buzzer
func (d *Display) Beep() error {
	units := d.opts.BeepDuration / (10 * time.Millisecond)
	if units < 1 {
		units = 1
	}
	if units > 0xFF {
		units = 0xFF
	}
	return protocol.NewWriteRegisterRequest(d.engine, protocol.RegisterBuzzerBeep).WriteByte(byte(units))
}

// ReadPanelVersion asks the panel for its firmware version
func (d *Display) ReadPanelVersion() (string, error) {
	return protocol.ReadVersion(d.engine)
}

// ---------------------------------------------------------------------------
// Printer events

// OnPrintStarted jumps to the print page
func (d *Display) OnPrintStarted() {
	d.report(d.nav.GoToPrint())
}

// OnPrintFinished tells the user
func (d *Display) OnPrintFinished() {
	d.WriteMessage("Print finished")
	d.Beep()
}

// OnMediaInserted tells the user
func (d *Display) OnMediaInserted() {
	d.WriteMessage("Media inserted")
}

// OnMediaRemoved unwinds every page, a print using the media is gone
func (d *Display) OnMediaRemoved() {
	d.WriteMessage("Media removed")
	d.report(d.nav.Reset())
}

// OnLevelingProgress updates the leveling progress bar
func (d *Display) OnLevelingProgress(percent uint8) {
	d.leveling.progress(percent)
	if percent >= 100 {
		d.WriteMessage("Leveling done")
	}
}
