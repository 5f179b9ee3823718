package ui

import (
	"dgusui/protocol"

	"github.com/rs/zerolog/log"
)

// WaitCallback runs when Back or Continue is pressed on the wait page. It
// returns true to continue with the default navigation.
type WaitCallback func() bool

// Wait is the overlay shown while a background step is pending. It holds at
// most one Back and one Continue callback; setting one replaces the previous.
type Wait struct {
	Base
	d *Display

	onBack     WaitCallback
	onContinue WaitCallback
}

func newWait(d *Display) *Wait {
	return &Wait{Base: NewBase(protocol.ActionWait), d: d}
}

// Wait shows the plain waiting page
func (w *Wait) Wait() error {
	return w.WaitMessage("")
}

// WaitMessage shows the plain waiting page with a message
func (w *Wait) WaitMessage(message string) error {
	w.onBack = nil
	w.onContinue = nil
	return w.show(PageWaiting, message)
}

// WaitBack shows a waiting page that can be left with Back
func (w *Wait) WaitBack(message string, back WaitCallback) error {
	w.onBack = back
	w.onContinue = nil
	return w.show(PageWaitBack, message)
}

// WaitBackContinue shows a waiting page offering Back and Continue. Continue
// returns to the page the wait was shown from.
func (w *Wait) WaitBackContinue(message string, back, cont WaitCallback) error {
	w.onBack = back
	w.onContinue = cont
	w.d.nav.SaveForwardPage()
	return w.show(PageWaitBackContinue, message)
}

func (w *Wait) show(page Page, message string) error {
	if err := w.d.WriteMessage(message); err != nil {
		return err
	}
	return w.d.nav.Show(page, protocol.ActionWait)
}

// OnBack runs the Back callback, if any. Leaving the wait cancels it, so
// the marks left on wait pages are dropped.
func (w *Wait) OnBack() bool {
	back := w.onBack
	if back == nil {
		log.Debug().Msg("back pressed while waiting, ignored")
		return false
	}
	w.onBack = nil
	if !back() {
		return false
	}
	w.d.nav.ClearTemporaries()
	return true
}

// OnSave runs the Continue callback, if any
func (w *Wait) OnSave() bool {
	cont := w.onContinue
	if cont == nil {
		log.Debug().Msg("continue pressed while waiting, ignored")
		return false
	}
	w.onContinue = nil
	return cont()
}

// OnAbort drops the callbacks and the background step they were waiting for
func (w *Wait) OnAbort() {
	w.onBack = nil
	w.onContinue = nil
	w.d.scheduler.Clear()
}
