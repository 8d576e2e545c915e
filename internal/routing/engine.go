package routing

import (
	"context"
	"sync"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
)

// Opener creates the substrate behind an Engine.
type Opener func(ctx context.Context) (Substrate, error)

// Engine owns the process-wide substrate: it is opened at most once and closed
// on shutdown.
type Engine struct {
	open Opener

	mu     sync.Mutex
	sub    Substrate
	err    error
	opened bool
	closed bool
}

// NewEngine creates an engine that lazily opens its substrate with open.
func NewEngine(open Opener) *Engine {
	return &Engine{open: open}
}

// Open returns the substrate, creating it on first use. A failed open is
// remembered and returned to every later caller.
func (e *Engine) Open(ctx context.Context) (Substrate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if !e.opened {
		e.opened = true
		e.sub, e.err = e.open(ctx)
		if e.err == nil {
			ctxlog.FromContext(ctx).Debug("Routing engine opened.")
		}
	}
	return e.sub, e.err
}

// Close tears the substrate down. It is safe to call more than once.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.sub == nil {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Routing engine closing.")
	return e.sub.Close(ctx)
}
