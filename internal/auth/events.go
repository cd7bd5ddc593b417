// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "sync"

// AccountEvent names a lifecycle change of an account.
type AccountEvent string

// Account lifecycle events.
const (
	EventSignup AccountEvent = "signup"
	EventUpdate AccountEvent = "update"
	EventRemove AccountEvent = "remove"
)

// AccountListener receives the projection of the affected account.
type AccountListener func(event AccountEvent, account AccountView)

// Events fans account lifecycle events out to listeners. Listeners run
// synchronously on the emitting goroutine.
type Events struct {
	mu        sync.RWMutex
	listeners map[AccountEvent][]AccountListener
}

// NewEvents creates an empty event registry.
func NewEvents() *Events {
	return &Events{listeners: make(map[AccountEvent][]AccountListener)}
}

// On registers fn for event.
func (e *Events) On(event AccountEvent, fn AccountListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], fn)
}

func (e *Events) emit(event AccountEvent, view *AccountView) {
	if e == nil || view == nil {
		return
	}
	e.mu.RLock()
	fns := append([]AccountListener(nil), e.listeners[event]...)
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(event, *view)
	}
}
