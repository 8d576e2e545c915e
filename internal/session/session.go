package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/patchbay/internal/chain"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/nested"
	"github.com/specialistvlad/patchbay/internal/patch"
	"github.com/specialistvlad/patchbay/internal/plan"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session is closed")
	// ErrUnknownChain is returned for a ChainRef that addresses no chain.
	ErrUnknownChain = errors.New("unknown chain")
	// ErrUnsupported is returned when a module lacks the capability an
	// operation needs.
	ErrUnsupported = errors.New("operation not supported by module")
)

// DefaultOutput is the label of the destination created by New.
const DefaultOutput = "speakers"

// ChainRef addresses a chain within the session.
type ChainRef string

// Root is the ChainRef of the root chain.
const Root ChainRef = ""

// BranchRef returns the ref of branch i of the module with the given ID.
func BranchRef(id module.ID, branch int) ChainRef {
	return ChainRef(fmt.Sprintf("%s/%d", id, branch))
}

type entry struct {
	module module.Module
	parent *chain.Chain
}

// Session is the serialised entry point for UI operations.
type Session struct {
	sub     routing.Substrate
	builder *patch.Builder

	mu     sync.Mutex
	name   string
	root   *chain.Chain
	chains map[ChainRef]*chain.Chain
	index  map[module.ID]entry
	source routing.Port
	dest   routing.Port
	closed bool

	errMu   sync.Mutex
	errs    []error
	onError func(ctx context.Context, err error)
}

// New creates a session with an empty root chain feeding the default output.
func New(ctx context.Context, sub routing.Substrate, reg *registry.Registry) (*Session, error) {
	s := &Session{
		sub:    sub,
		chains: make(map[ChainRef]*chain.Chain),
		index:  make(map[module.ID]entry),
	}
	s.builder = &patch.Builder{
		Registry:  reg,
		Substrate: sub,
		OnError:   s.report,
		OnModule:  s.track,
	}
	s.root = chain.New(sub, chain.WithName("root"), chain.WithErrorHandler(s.report))
	s.chains[Root] = s.root

	if err := s.setOutput(ctx, DefaultOutput); err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Session created.", "output", DefaultOutput)
	return s, nil
}

// Load builds the patch into the root chain and selects its input.
func (s *Session) Load(ctx context.Context, p *patch.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.name = p.Name
	if err := s.builder.Build(ctx, s.root, p.Stages); err != nil {
		return fmt.Errorf("failed to build patch %q: %w", p.Name, err)
	}
	if p.Input != "" {
		if err := s.selectInput(ctx, p.Input); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Info("Patch loaded.", "patch", p.Name, "modules", len(s.index))
	return nil
}

// OnError installs the handler for asynchronous failures.
func (s *Session) OnError(fn func(ctx context.Context, err error)) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.onError = fn
}

// Errors returns the asynchronous failures recorded so far.
func (s *Session) Errors() []error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *Session) report(ctx context.Context, err error) {
	s.errMu.Lock()
	s.errs = append(s.errs, err)
	fn := s.onError
	s.errMu.Unlock()

	ctxlog.FromContext(ctx).Warn("Asynchronous routing failure.", "error", err)
	if fn != nil {
		fn(ctx, err)
	}
}

// track indexes m and the chains it owns. Called with s.mu held.
func (s *Session) track(m module.Module, parent *chain.Chain) {
	s.index[m.ID()] = entry{module: m, parent: parent}
	if br, ok := m.(nested.Brancher); ok {
		for i, c := range br.Branches() {
			s.chains[BranchRef(m.ID(), i)] = c
		}
	}
}

// subtree collects m and everything nested inside it. Closing a container
// empties its branches, so it is gathered before removal.
func subtree(m module.Module) (ids []module.ID, refs []ChainRef) {
	ids = append(ids, m.ID())
	br, ok := m.(nested.Brancher)
	if !ok {
		return ids, nil
	}
	for i, c := range br.Branches() {
		refs = append(refs, BranchRef(m.ID(), i))
		for _, child := range c.Modules() {
			childIDs, childRefs := subtree(child)
			ids = append(ids, childIDs...)
			refs = append(refs, childRefs...)
		}
	}
	return ids, refs
}

// untrack drops the collected modules and branches from the index.
func (s *Session) untrack(ids []module.ID, refs []ChainRef) {
	for _, id := range ids {
		delete(s.index, id)
	}
	for _, ref := range refs {
		delete(s.chains, ref)
	}
}

func (s *Session) chain(ref ChainRef) (*chain.Chain, error) {
	if ref == "root" {
		ref = Root
	}
	c, ok := s.chains[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, ref)
	}
	return c, nil
}

// lookup returns the indexed module, logging stale references.
func (s *Session) lookup(ctx context.Context, op string, id module.ID) (entry, bool) {
	e, ok := s.index[id]
	if !ok {
		ctxlog.FromContext(ctx).Debug("Stale module reference ignored.", "op", op, "module_id", id)
	}
	return e, ok
}

// AddModule builds a module of the given kind and inserts it into the chain
// at position. A negative position appends. If the module was inserted but
// the chain failed to rewire, its ID is returned along with the error.
func (s *Session) AddModule(ctx context.Context, ref ChainRef, kind, name string, position int, params map[string]cty.Value) (module.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	c, err := s.chain(ref)
	if err != nil {
		return "", err
	}
	m, err := s.builder.BuildStage(ctx, c, patch.Stage{Kind: kind, Name: name, Params: params}, position)
	if m == nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Info("Module added.", "module_id", m.ID(), "kind", kind, "chain", c.Name())
	return m.ID(), err
}

// RemoveModule removes the module wherever it is nested.
func (s *Session) RemoveModule(ctx context.Context, id module.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.lookup(ctx, "remove", id)
	if !ok {
		return nil
	}
	ids, refs := subtree(e.module)
	err := e.parent.Remove(ctx, id)
	if _, _, still := e.parent.Lookup(id); !still {
		s.untrack(ids, refs)
	}
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Module removed.", "module_id", id, "chain", e.parent.Name())
	return nil
}

// Reorder moves the module at index from to index to within a chain.
func (s *Session) Reorder(ctx context.Context, ref ChainRef, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	c, err := s.chain(ref)
	if err != nil {
		return err
	}
	return c.Reorder(ctx, from, to)
}

// Move moves a module to index to within its own chain.
func (s *Session) Move(ctx context.Context, id module.ID, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.lookup(ctx, "move", id)
	if !ok {
		return nil
	}
	return e.parent.Move(ctx, id, to)
}

// ToggleBypass flips a module's bypass state and returns the new state.
func (s *Session) ToggleBypass(ctx context.Context, id module.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	e, ok := s.lookup(ctx, "toggle_bypass", id)
	if !ok {
		return false, nil
	}
	if t, ok := e.module.(module.Toggler); ok {
		return t.ToggleBypass(ctx)
	}
	on := !e.module.Bypassed()
	return on, e.module.SetBypass(ctx, on)
}

// SetBypass sets a module's bypass state.
func (s *Session) SetBypass(ctx context.Context, id module.ID, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.lookup(ctx, "set_bypass", id)
	if !ok {
		return nil
	}
	return e.module.SetBypass(ctx, on)
}

// SetParam sets a module parameter.
func (s *Session) SetParam(ctx context.Context, id module.ID, name string, value cty.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.lookup(ctx, "set_param", id)
	if !ok {
		return nil
	}
	p, ok := e.module.(module.Parameterized)
	if !ok {
		return fmt.Errorf("%w: %s has no parameters", ErrUnsupported, e.module.Kind())
	}
	return p.SetParam(ctx, name, value)
}

type crossfader interface {
	SetCrossfade(ctx context.Context, x float64) error
}

// SetCrossfade sets a splitter's crossfade.
func (s *Session) SetCrossfade(ctx context.Context, id module.ID, x float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.lookup(ctx, "set_crossfade", id)
	if !ok {
		return nil
	}
	cf, ok := e.module.(crossfader)
	if !ok {
		return fmt.Errorf("%w: %s has no crossfade", ErrUnsupported, e.module.Kind())
	}
	return cf.SetCrossfade(ctx, x)
}

// LoadDevice loads a device descriptor into an external module. An empty
// path unloads the device.
func (s *Session) LoadDevice(ctx context.Context, id module.ID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.lookup(ctx, "load_device", id)
	if !ok {
		return nil
	}
	dl, ok := e.module.(module.DeviceLoader)
	if !ok {
		return fmt.Errorf("%w: %s cannot host a device", ErrUnsupported, e.module.Kind())
	}
	if path == "" {
		return dl.UnloadDevice(ctx)
	}
	return dl.LoadDevice(ctx, path)
}

// SelectInput makes the source with the given label the root chain's input.
// An empty label disconnects the input.
func (s *Session) SelectInput(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.selectInput(ctx, source)
}

func (s *Session) selectInput(ctx context.Context, source string) error {
	p, err := s.swapBoundary(ctx, routing.KindSource, source, s.source, s.root.SetExternalInput)
	if err != nil {
		return fmt.Errorf("failed to select input %q: %w", source, err)
	}
	s.source = p
	return nil
}

// SetOutput routes the root chain to the destination with the given label.
// An empty label disconnects the output.
func (s *Session) SetOutput(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.setOutput(ctx, label)
}

func (s *Session) setOutput(ctx context.Context, label string) error {
	p, err := s.swapBoundary(ctx, routing.KindDestination, label, s.dest, s.root.SetExternalOutput)
	if err != nil {
		return fmt.Errorf("failed to set output %q: %w", label, err)
	}
	s.dest = p
	return nil
}

// swapBoundary creates a boundary node, installs it with set and releases
// the previous one.
func (s *Session) swapBoundary(ctx context.Context, kind routing.Kind, label string, previous routing.Port, set func(context.Context, routing.Port) error) (routing.Port, error) {
	var next routing.Port
	if label != "" {
		p, err := s.sub.CreateNode(ctx, kind, label, nil)
		if err != nil {
			return nil, err
		}
		next = p
	}

	if err := set(ctx, next); err != nil {
		if next != nil {
			err = errors.Join(err, s.sub.Release(ctx, next))
		}
		return nil, err
	}
	if previous != nil {
		if err := s.sub.Release(ctx, previous); err != nil {
			return next, err
		}
	}
	return next, nil
}

// Plan returns the wiring currently applied to a chain.
func (s *Session) Plan(ref ChainRef) (plan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.chain(ref)
	if err != nil {
		return plan.Plan{}, err
	}
	return c.Plan(), nil
}

// Module returns the indexed module with the given ID.
func (s *Session) Module(id module.ID) (module.Module, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[id]
	return e.module, ok
}

// Settle blocks until every module that loads in the background has finished
// loading, or ctx is done.
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	var pending []<-chan struct{}
	for _, e := range s.index {
		if l, ok := e.module.(loader); ok {
			pending = append(pending, l.Done())
		}
	}
	s.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

type loader interface {
	Done() <-chan struct{}
}

// Close tears down the chain tree and the boundary nodes.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	errs := []error{s.root.Close(ctx)}
	for _, p := range []routing.Port{s.source, s.dest} {
		if p != nil {
			errs = append(errs, s.sub.Release(ctx, p))
		}
	}
	s.index = make(map[module.ID]entry)
	s.chains = make(map[ChainRef]*chain.Chain)
	ctxlog.FromContext(ctx).Debug("Session closed.")
	return errors.Join(errs...)
}
