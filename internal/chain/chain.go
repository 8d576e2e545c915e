package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/plan"
	"github.com/specialistvlad/patchbay/internal/routing"
)

var (
	// ErrStaleReference describes an operation on a module or index the chain
	// no longer holds. Chain operations log it and return nil.
	ErrStaleReference = errors.New("stale module reference")
	// ErrClosed is returned when mutating a closed chain.
	ErrClosed = errors.New("chain is closed")
	// ErrDuplicate is returned when adding a module that is already a member.
	ErrDuplicate = errors.New("module already in chain")
)

// ErrorHandler receives failures of replanning passes that were triggered
// asynchronously by a module becoming ready.
type ErrorHandler func(ctx context.Context, err error)

// Option configures a Chain.
type Option func(*Chain)

// WithName sets the name used in log records.
func WithName(name string) Option {
	return func(c *Chain) { c.name = name }
}

// WithErrorHandler sets the sink for asynchronous replanning failures.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(c *Chain) { c.onError = fn }
}

// Chain is an ordered list of modules wired in sequence.
type Chain struct {
	sub     routing.Substrate
	name    string
	onError ErrorHandler

	mu      sync.Mutex
	in, out routing.Port
	slots   []module.Module
	current plan.Plan
	dirty   bool
	closed  bool
}

// New creates an empty chain with no boundary.
func New(sub routing.Substrate, opts ...Option) *Chain {
	c := &Chain{sub: sub, name: "root"}
	for _, opt := range opts {
		opt(c)
	}
	if c.onError == nil {
		c.onError = func(ctx context.Context, err error) {
			ctxlog.FromContext(ctx).Error("Deferred replanning failed.", "chain", c.name, "error", err)
		}
	}
	return c
}

// Name returns the chain's log name.
func (c *Chain) Name() string { return c.name }

// AddModule inserts m at position. A position below zero or past the end
// appends.
func (c *Chain) AddModule(ctx context.Context, m module.Module, position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.indexOf(m.ID()) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, m.ID())
	}
	if position < 0 || position > len(c.slots) {
		position = len(c.slots)
	}
	c.slots = append(c.slots, nil)
	copy(c.slots[position+1:], c.slots[position:])
	c.slots[position] = m

	if _, _, ok := m.Ports(); !ok {
		id := m.ID()
		if m.OnReady(func(ctx context.Context) { c.moduleReady(ctx, id) }) {
			ctxlog.FromContext(ctx).Debug("Module became ready during insertion.", "chain", c.name, "module_id", id)
		}
	}

	ctxlog.FromContext(ctx).Debug("Module added.", "chain", c.name, "module_id", m.ID(), "kind", m.Kind(), "position", position)
	return c.replan(ctx)
}

// moduleReady runs on the goroutine that finished initialising the module.
func (c *Chain) moduleReady(ctx context.Context, id module.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	if c.closed || c.indexOf(id) < 0 {
		logger.Debug("Ready module is no longer a member.", "chain", c.name, "module_id", id)
		return
	}
	logger.Debug("Module ready, replanning.", "chain", c.name, "module_id", id)
	if err := c.replan(ctx); err != nil {
		c.onError(ctx, err)
	}
}

// RemoveModule removes m. A ready module is matched on both of its ports, a
// pending one on its ID. Its output is disconnected explicitly and the module
// is closed.
func (c *Chain) RemoveModule(ctx context.Context, m module.Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.match(m)
	if idx < 0 {
		c.stale(ctx, "remove", m.ID())
		return nil
	}
	return c.removeAt(ctx, idx)
}

// Remove removes the module with the given ID.
func (c *Chain) Remove(ctx context.Context, id module.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		c.stale(ctx, "remove", id)
		return nil
	}
	return c.removeAt(ctx, idx)
}

func (c *Chain) removeAt(ctx context.Context, idx int) error {
	m := c.slots[idx]
	if _, out, ok := m.Ports(); ok {
		if err := c.sub.DisconnectAll(ctx, out); err != nil {
			return fmt.Errorf("failed to detach module %s: %w", m.ID(), err)
		}
	}
	c.slots = append(c.slots[:idx], c.slots[idx+1:]...)
	ctxlog.FromContext(ctx).Debug("Module removed.", "chain", c.name, "module_id", m.ID())

	replanErr := c.replan(ctx)
	if err := m.Close(ctx); err != nil {
		return errors.Join(replanErr, fmt.Errorf("failed to close module %s: %w", m.ID(), err))
	}
	return replanErr
}

// Reorder moves the module at index from to index to.
func (c *Chain) Reorder(ctx context.Context, from, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if from < 0 || from >= len(c.slots) || to < 0 || to >= len(c.slots) {
		ctxlog.FromContext(ctx).Debug("Stale reference ignored.",
			"chain", c.name, "op", "reorder", "from", from, "to", to, "len", len(c.slots), "error", ErrStaleReference)
		return nil
	}
	c.reorder(from, to)
	return c.replan(ctx)
}

// Move moves the module with the given ID to index to.
func (c *Chain) Move(ctx context.Context, id module.ID, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.indexOf(id)
	if from < 0 || to < 0 || to >= len(c.slots) {
		c.stale(ctx, "move", id)
		return nil
	}
	c.reorder(from, to)
	return c.replan(ctx)
}

func (c *Chain) reorder(from, to int) {
	m := c.slots[from]
	c.slots = append(c.slots[:from], c.slots[from+1:]...)
	c.slots = append(c.slots, nil)
	copy(c.slots[to+1:], c.slots[to:])
	c.slots[to] = m
}

// SetExternalInput replaces the chain's input boundary. The previous input
// stops feeding the chain. If the new wiring cannot be applied the previous
// input is kept and the chain is left dirty.
func (c *Chain) SetExternalInput(ctx context.Context, p routing.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	previous := c.in
	if previous != nil && (p == nil || previous.ID() != p.ID()) {
		if err := c.detach(ctx, previous); err != nil {
			return fmt.Errorf("failed to detach input %s: %w", previous.ID(), err)
		}
	}
	c.in = p
	if err := c.replan(ctx); err != nil {
		c.in = previous
		return err
	}
	return nil
}

// SetExternalOutput replaces the chain's output boundary. Clearing it
// disconnects the tail of the chain.
func (c *Chain) SetExternalOutput(ctx context.Context, p routing.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	previous := c.out
	if p == nil && previous != nil {
		if tail := c.tail(); tail != nil {
			if err := c.detach(ctx, tail); err != nil {
				return fmt.Errorf("failed to detach tail %s: %w", tail.ID(), err)
			}
		}
	}
	c.out = p
	if err := c.replan(ctx); err != nil {
		c.out = previous
		return err
	}
	return nil
}

// detach severs the outgoing connections of p. A released port has none.
func (c *Chain) detach(ctx context.Context, p routing.Port) error {
	if err := c.sub.DisconnectAll(ctx, p); err != nil && !errors.Is(err, routing.ErrReleased) {
		return err
	}
	return nil
}

// tail is the port currently feeding the output, if known.
func (c *Chain) tail() routing.Port {
	if len(c.slots) == 0 {
		return c.in
	}
	_, out, ok := c.slots[len(c.slots)-1].Ports()
	if !ok {
		return nil
	}
	return out
}

// Boundary returns the external input and output.
func (c *Chain) Boundary() (in, out routing.Port) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in, c.out
}

// Replan recomputes and applies the wiring for the current state.
func (c *Chain) Replan(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.replan(ctx)
}

func (c *Chain) replan(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	stages := make([]plan.Stage, len(c.slots))
	for i, m := range c.slots {
		in, out, ok := m.Ports()
		if ok {
			stages[i] = plan.Stage{In: in, Out: out}
		}
	}

	p, err := plan.Compute(c.in, c.out, stages)
	switch {
	case errors.Is(err, plan.ErrNoBoundary):
		logger.Debug("Replanning skipped, boundary not set.", "chain", c.name)
		return nil
	case errors.Is(err, plan.ErrNotReady):
		logger.Debug("Replanning deferred.", "chain", c.name, "reason", err)
		return nil
	case err != nil:
		return err
	}

	if err := plan.Apply(ctx, c.sub, p); err != nil {
		c.dirty = true
		return fmt.Errorf("chain %s: %w", c.name, err)
	}
	c.current = p
	c.dirty = false
	logger.Debug("Chain replanned.", "chain", c.name, "module_count", len(c.slots), "edge_count", len(p.Edges))
	return nil
}

// Plan returns the last plan applied successfully.
func (c *Chain) Plan() plan.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return plan.Plan{
		Sever: append([]routing.Port(nil), c.current.Sever...),
		Edges: append([]plan.Edge(nil), c.current.Edges...),
	}
}

// Dirty reports whether the last replanning pass failed.
func (c *Chain) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Modules returns the members in order.
func (c *Chain) Modules() []module.Module {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]module.Module(nil), c.slots...)
}

// Len returns the number of members.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Lookup finds a member by ID.
func (c *Chain) Lookup(id module.ID) (module.Module, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return nil, -1, false
	}
	return c.slots[idx], idx, true
}

// Close severs the input and every module output, then closes every module.
// The chain cannot be used afterwards.
func (c *Chain) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.in != nil {
		if err := c.sub.DisconnectAll(ctx, c.in); err != nil {
			errs = append(errs, err)
		}
	}
	for _, m := range c.slots {
		if _, out, ok := m.Ports(); ok {
			if err := c.sub.DisconnectAll(ctx, out); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, m := range c.slots {
		if err := m.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close module %s: %w", m.ID(), err))
		}
	}
	c.slots = nil
	c.current = plan.Plan{}
	ctxlog.FromContext(ctx).Debug("Chain closed.", "chain", c.name)
	return errors.Join(errs...)
}

func (c *Chain) indexOf(id module.ID) int {
	for i, m := range c.slots {
		if m.ID() == id {
			return i
		}
	}
	return -1
}

// match finds m by identity of both ports, or by ID while it is pending.
func (c *Chain) match(m module.Module) int {
	idx := c.indexOf(m.ID())
	if idx < 0 {
		return -1
	}
	wantIn, wantOut, wantReady := m.Ports()
	gotIn, gotOut, gotReady := c.slots[idx].Ports()
	if !wantReady || !gotReady {
		return idx
	}
	if wantIn.ID() != gotIn.ID() || wantOut.ID() != gotOut.ID() {
		return -1
	}
	return idx
}

func (c *Chain) stale(ctx context.Context, op string, id module.ID) {
	ctxlog.FromContext(ctx).Debug("Stale reference ignored.",
		"chain", c.name, "op", op, "module_id", id, "error", ErrStaleReference)
}
