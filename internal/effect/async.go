package effect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// ErrNotReady is returned by operations that need the unit before it exists.
var ErrNotReady = errors.New("module is still loading")

// Async is a module whose subgraph is built after a processor loads.
type Async struct {
	*module.Lifecycle
	env    registry.Env
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	unit     *Unit
	err      error
	bypassed bool
}

// NewAsync starts loading processor in the background and then builds the
// unit declared by declare. The returned module is pending until then.
func NewAsync(ctx context.Context, kind, processor string, env registry.Env, declare func(b *Builder)) *Async {
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &Async{
		Lifecycle: module.NewLifecycle(env.ID, kind, env.Name),
		env:       env,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go a.load(loadCtx, kind, processor, declare)
	return a
}

func (a *Async) load(ctx context.Context, kind, processor string, declare func(b *Builder)) {
	defer close(a.done)
	defer a.cancel()
	ctx = ctxlog.With(ctx, "module_id", a.ID(), "processor", processor)
	logger := ctxlog.FromContext(ctx)

	if err := a.env.Substrate.LoadProcessor(ctx, processor); err != nil {
		if a.Removed() {
			logger.Debug("Processor load abandoned, module removed.")
			return
		}
		a.fail(fmt.Errorf("failed to load processor %q: %w", processor, err))
		logger.Error("Processor load failed.", "error", err)
		return
	}
	if a.Removed() {
		logger.Debug("Module removed while loading, nothing to build.")
		return
	}

	a.mu.Lock()
	env := a.env
	a.mu.Unlock()

	b := NewBuilder(kind, env)
	declare(b)
	u, err := b.assemble(ctx, a.Lifecycle)
	if err != nil {
		a.fail(err)
		logger.Error("Module build failed.", "error", err)
		return
	}

	a.mu.Lock()
	a.unit = u
	bypassed := a.bypassed
	a.mu.Unlock()

	if bypassed && u.switcher != nil {
		if err := u.switcher.Set(ctx, true); err != nil {
			a.fail(err)
		}
	}
	in, out := u.nodes[b.input], u.nodes[b.output]
	if !a.Resolve(ctx, in, out) {
		logger.Debug("Module removed before ready, releasing nodes.")
		if err := u.release(ctx); err != nil {
			logger.Warn("Failed to release nodes of removed module.", "error", err)
		}
		return
	}
	// SetBypass may have reached the unit while it was still pending.
	if u.Bypassed() {
		a.Mark(true)
	}
	logger.Debug("Module ready.")
}

func (a *Async) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Done is closed when loading has finished, successfully or not.
func (a *Async) Done() <-chan struct{} {
	return a.done
}

// Err returns the loading failure, if any.
func (a *Async) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Unit returns the built unit, or nil while loading.
func (a *Async) Unit() *Unit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unit
}

func (a *Async) Bypassed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unit != nil {
		return a.unit.Bypassed()
	}
	return a.bypassed
}

// SetBypass applies immediately once loaded; before that the state is
// remembered and applied when the unit is built.
func (a *Async) SetBypass(ctx context.Context, on bool) error {
	a.mu.Lock()
	u := a.unit
	if u == nil {
		a.bypassed = on
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()
	return u.SetBypass(ctx, on)
}

func (a *Async) ToggleBypass(ctx context.Context) (bool, error) {
	on := !a.Bypassed()
	return on, a.SetBypass(ctx, on)
}

// SetParam forwards to the unit. Before the unit exists the value is
// validated and used when it is built.
func (a *Async) SetParam(ctx context.Context, name string, v cty.Value) error {
	a.mu.Lock()
	u := a.unit
	if u == nil {
		defer a.mu.Unlock()
		spec, ok := registry.FindSpec(a.env.Specs, name)
		if !ok {
			return &registry.ParamError{Kind: a.Kind(), Param: name, Err: registry.ErrUnknownParam}
		}
		coerced, err := spec.Coerce(v)
		if err != nil {
			return &registry.ParamError{Kind: a.Kind(), Param: name, Err: err}
		}
		params := make(map[string]cty.Value, len(a.env.Params)+1)
		for k, pv := range a.env.Params {
			params[k] = pv
		}
		params[name] = coerced
		a.env.Params = params
		return nil
	}
	a.mu.Unlock()
	return u.SetParam(ctx, name, v)
}

func (a *Async) Params() map[string]cty.Value {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unit != nil {
		return a.unit.Params()
	}
	out := make(map[string]cty.Value, len(a.env.Params))
	for k, v := range a.env.Params {
		out[k] = v
	}
	return out
}

// Close cancels loading if it is still in progress and releases the unit if
// it was built.
func (a *Async) Close(ctx context.Context) error {
	a.Remove()
	a.cancel()

	a.mu.Lock()
	u := a.unit
	a.mu.Unlock()
	if u == nil {
		return nil
	}
	return u.release(ctx)
}
