package ui

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"dgusui/protocol"
)

// ErrDuplicateAction is returned when two handlers claim the same action
var ErrDuplicateAction = errors.New("action already registered")

// Router maps action variables to their handler
type Router struct {
	mu       sync.RWMutex
	handlers map[protocol.Action]Handler
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{
		handlers: make(map[protocol.Action]Handler),
	}
}

// Register binds a handler to its action
func (r *Router) Register(h Handler) error {
	action := h.Action()
	if !protocol.IsAction(protocol.Variable(action)) {
		return fmt.Errorf("variable 0x%04X is not an action", uint16(action))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[action]; exists {
		return fmt.Errorf("0x%04X: %w", uint16(action), ErrDuplicateAction)
	}
	r.handlers[action] = h
	return nil
}

// Lookup retrieves the handler of an action
func (r *Router) Lookup(action protocol.Action) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[action]
	return h, ok
}

// Count returns the number of registered handlers
func (r *Router) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Actions returns the registered actions in ascending order
func (r *Router) Actions() []protocol.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]protocol.Action, 0, len(r.handlers))
	for a := range r.handlers {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
