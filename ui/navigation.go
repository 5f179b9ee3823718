package ui

import (
	"dgusui/protocol"

	"github.com/rs/zerolog/log"
)

// BackSize is the depth of the navigation history
const BackSize = 8

// Context is a page together with the action its keys are reported on
type Context struct {
	Page   Page
	Action protocol.Action
}

// IsZero reports whether the context is unset
func (c Context) IsZero() bool {
	return c.Page == PageNone
}

// ShowFunc switches the picture of the panel
type ShowFunc func(page Page) error

// AbortFunc is called for each context unwound by GoToPrint or Reset
type AbortFunc func(action protocol.Action)

// Navigator keeps the current page, the back history and the forward mark.
//
// The history holds at most BackSize contexts, never two equal
// contexts next to each other, and never a temporary page.
type Navigator struct {
	show  ShowFunc
	abort AbortFunc
	home  Context
	print Context

	current    Context
	back       [BackSize]Context
	depth      int
	forward    Context
	hasForward bool
}

// NewNavigator creates a navigator. home is shown when the history runs out,
// print is the page GoToPrint unwinds to.
func NewNavigator(home, print Context, show ShowFunc, abort AbortFunc) *Navigator {
	if abort == nil {
		abort = func(protocol.Action) {}
	}
	return &Navigator{
		show:  show,
		abort: abort,
		home:  home,
		print: print,
	}
}

// Current returns the context on screen
func (n *Navigator) Current() Context {
	return n.current
}

// Home returns the default context
func (n *Navigator) Home() Context {
	return n.home
}

// Depth returns the number of contexts in the history
func (n *Navigator) Depth() int {
	return n.depth
}

// Forward returns the context marked by SaveForwardPage
func (n *Navigator) Forward() (Context, bool) {
	return n.forward, n.hasForward
}

// History returns the back history, oldest first
func (n *Navigator) History() []Context {
	return append([]Context(nil), n.back[:n.depth]...)
}

// Show displays page, recording the current context in the history unless
// it is temporary or the home page.
func (n *Navigator) Show(page Page, action protocol.Action) error {
	next := Context{Page: page, Action: action}
	if n.shouldRecord(next) {
		n.push(n.current)
	}
	return n.display(next)
}

func (n *Navigator) shouldRecord(next Context) bool {
	c := n.current
	switch {
	case c.IsZero(), c.Page.IsTemporary(), c.Page == n.home.Page, c == next:
		return false
	case n.depth > 0 && n.back[n.depth-1] == c:
		return false
	}
	return true
}

func (n *Navigator) push(c Context) {
	if n.depth == BackSize {
		log.Warn().
			Stringer("dropped", n.back[0].Page).
			Int("size", BackSize).
			Msg("navigation history full, oldest page dropped")
		copy(n.back[:], n.back[1:])
		n.depth--
	}
	n.back[n.depth] = c
	n.depth++
}

func (n *Navigator) pop() (Context, bool) {
	if n.depth == 0 {
		return Context{}, false
	}
	n.depth--
	c := n.back[n.depth]
	n.back[n.depth] = Context{}
	return c, true
}

func (n *Navigator) display(c Context) error {
	n.current = c
	log.Debug().Stringer("page", c.Page).Uint16("action", uint16(c.Action)).Msg("show page")
	return n.show(c.Page)
}

// SaveForwardPage marks the current context as the one ShowForwardPage
// returns to
func (n *Navigator) SaveForwardPage() {
	n.forward = n.current
	n.hasForward = true
}

func (n *Navigator) clearForward() {
	n.forward = Context{}
	n.hasForward = false
}

// ShowBackPage pops count contexts and displays the last one popped. When
// the history runs out first, the home page is displayed.
func (n *Navigator) ShowBackPage(count int) error {
	if count < 1 {
		count = 1
	}

	target := n.home
	for i := 0; i < count; i++ {
		c, ok := n.pop()
		if !ok {
			target = n.home
			break
		}
		target = c
		if n.hasForward && c == n.forward {
			n.clearForward()
		}
	}
	return n.display(target)
}

// ShowForwardPage unwinds the history to the forward mark. Without a mark it
// goes back one page.
func (n *Navigator) ShowForwardPage() error {
	if !n.hasForward {
		return n.ShowBackPage(1)
	}

	forward := n.forward
	n.clearForward()
	for {
		c, ok := n.pop()
		if !ok {
			log.Error().
				Stringer("page", forward.Page).
				Uint16("action", uint16(forward.Action)).
				Msg("forward page not found in history")
			return n.display(n.home)
		}
		if c == forward {
			return n.display(c)
		}
	}
}

// ClearTemporaries removes temporary pages from the history and the
// forward mark
func (n *Navigator) ClearTemporaries() {
	kept := 0
	for i := 0; i < n.depth; i++ {
		if n.back[i].Page.IsTemporary() {
			continue
		}
		n.back[kept] = n.back[i]
		kept++
	}
	for i := kept; i < n.depth; i++ {
		n.back[i] = Context{}
	}
	n.depth = kept

	if n.hasForward && n.forward.Page.IsTemporary() {
		n.clearForward()
	}
}

// GoToPrint unwinds to the print page, aborting every context on the way.
// The print page is shown even when it is not in the history.
func (n *Navigator) GoToPrint() error {
	n.clearForward()
	for n.current.Page != n.print.Page {
		if !n.current.IsZero() {
			n.abort(n.current.Action)
		}
		c, ok := n.pop()
		if !ok {
			n.current = n.print
			break
		}
		n.current = c
	}
	return n.display(n.current)
}

// Reset aborts every context and shows the home page with an empty history
func (n *Navigator) Reset() error {
	if !n.current.IsZero() {
		n.abort(n.current.Action)
	}
	for {
		c, ok := n.pop()
		if !ok {
			break
		}
		n.abort(c.Action)
	}
	n.clearForward()
	return n.display(n.home)
}
