package ui

import (
	"dgusui/protocol"

	"github.com/rs/zerolog/log"
)

// Handler receives the keys reported on one action variable.
//
// Dispatch gets every key first and returns false for keys it does not
// handle. The universal keys then go to the hooks: Show asks OnShow for the
// page to display, Save and Back run OnSave and OnBack and continue with the
// default navigation when they return true. Any other key is Invalid.
//
// A handler that cannot show its page yet (homing, heating) returns false
// from OnShow, arms the scheduler and shows the page once the condition is
// met.
type Handler interface {
	Action() protocol.Action
	Dispatch(key protocol.KeyValue) bool
	OnShow() (Page, bool)
	OnSave() bool
	OnBack() bool
	OnAbort()
	Invalid(key protocol.KeyValue)
}

// Base implements the default behavior of every hook
type Base struct {
	action protocol.Action
}

// NewBase creates the default hooks for action
func NewBase(action protocol.Action) Base {
	return Base{action: action}
}

// Action returns the action the handler is bound to
func (b Base) Action() protocol.Action {
	return b.action
}

// Dispatch handles no key
func (Base) Dispatch(protocol.KeyValue) bool {
	return false
}

// OnShow has no page
func (Base) OnShow() (Page, bool) {
	return PageNone, false
}

// OnSave continues with the default save
func (Base) OnSave() bool {
	return true
}

// OnBack continues with the default back
func (Base) OnBack() bool {
	return true
}

// OnAbort does nothing
func (Base) OnAbort() {}

// Invalid logs the key
func (b Base) Invalid(key protocol.KeyValue) {
	log.Warn().
		Uint16("action", uint16(b.action)).
		Uint16("key", uint16(key)).
		Msg("invalid key")
}
