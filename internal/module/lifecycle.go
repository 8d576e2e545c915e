package module

import (
	"context"
	"sync"

	"github.com/specialistvlad/patchbay/internal/routing"
)

// Lifecycle is an embeddable implementation of the module state machine and
// port bookkeeping.
type Lifecycle struct {
	id   ID
	kind string
	name string

	mu      sync.Mutex
	state   State
	in, out routing.Port
	waiters []func(ctx context.Context)
}

// NewLifecycle returns a Pending lifecycle.
func NewLifecycle(id ID, kind, name string) *Lifecycle {
	if id == "" {
		id = NewID()
	}
	if name == "" {
		name = kind
	}
	return &Lifecycle{id: id, kind: kind, name: name}
}

func (l *Lifecycle) ID() ID       { return l.id }
func (l *Lifecycle) Kind() string { return l.kind }
func (l *Lifecycle) Name() string { return l.name }

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Ports() (routing.Port, routing.Port, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.Ready() {
		return nil, nil, false
	}
	return l.in, l.out, true
}

func (l *Lifecycle) OnReady(fn func(ctx context.Context)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Ready() {
		return true
	}
	if l.state == StateRemoved {
		return false
	}
	l.waiters = append(l.waiters, fn)
	return false
}

// Resolve records the module's ports and moves it to Active. Ready callbacks
// run after the lock is released. It returns false, leaving everything
// untouched, if the module was removed first.
func (l *Lifecycle) Resolve(ctx context.Context, in, out routing.Port) bool {
	l.mu.Lock()
	if l.state != StatePending {
		l.mu.Unlock()
		return false
	}
	l.in, l.out = in, out
	l.state = StateActive
	waiters := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	for _, fn := range waiters {
		fn(ctx)
	}
	return true
}

// Mark moves a ready module between Active and Bypassed.
func (l *Lifecycle) Mark(bypassed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.Ready() {
		return
	}
	if bypassed {
		l.state = StateBypassed
	} else {
		l.state = StateActive
	}
}

// Remove marks the lifecycle Removed and reports whether it was ready before.
func (l *Lifecycle) Remove() (wasReady bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	wasReady = l.state.Ready()
	l.state = StateRemoved
	l.waiters = nil
	return wasReady
}

// Removed reports whether the lifecycle reached its terminal state.
func (l *Lifecycle) Removed() bool {
	return l.State() == StateRemoved
}
