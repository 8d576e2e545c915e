package effect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/patchbay/internal/bypass"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/zclconf/go-cty/cty"
)

// Unit is a module built from a declared subgraph.
type Unit struct {
	*module.Lifecycle
	sub routing.Substrate

	nodes    map[string]routing.Port
	order    []string
	switcher bypass.Switch
	delegate *bypass.DelegateController
	specs    []registry.ParamSpec
	bindings map[string][]binding
	hooks    map[string]ParamHook

	mu     sync.Mutex
	values map[string]cty.Value
	closed bool
}

// Node returns a node by its declared name.
func (u *Unit) Node(name string) routing.Port {
	return u.nodes[name]
}

// Substrate returns the substrate the unit lives on.
func (u *Unit) Substrate() routing.Substrate {
	return u.sub
}

// Delegate returns the delegate controller, if the unit routes through a device.
func (u *Unit) Delegate() *bypass.DelegateController {
	return u.delegate
}

func (u *Unit) lookup(names []string) []routing.Port {
	ports := make([]routing.Port, 0, len(names))
	for _, n := range names {
		ports = append(ports, u.nodes[n])
	}
	return ports
}

func (u *Unit) Bypassed() bool {
	if u.switcher == nil {
		return false
	}
	return u.switcher.Bypassed()
}

func (u *Unit) SetBypass(ctx context.Context, on bool) error {
	if u.switcher == nil {
		return bypass.ErrUnsupported
	}
	if err := u.switcher.Set(ctx, on); err != nil {
		return err
	}
	u.Mark(on)
	return nil
}

func (u *Unit) ToggleBypass(ctx context.Context) (bool, error) {
	if u.switcher == nil {
		return false, bypass.ErrUnsupported
	}
	on, err := u.switcher.Toggle(ctx)
	if err != nil {
		return on, err
	}
	u.Mark(on)
	return on, nil
}

// SetParam validates v against the parameter's declaration and applies it.
func (u *Unit) SetParam(ctx context.Context, name string, v cty.Value) error {
	spec, ok := registry.FindSpec(u.specs, name)
	if !ok {
		return &registry.ParamError{Kind: u.Kind(), Param: name, Err: registry.ErrUnknownParam}
	}
	coerced, err := spec.Coerce(v)
	if err != nil {
		return &registry.ParamError{Kind: u.Kind(), Param: name, Err: err}
	}
	return u.apply(ctx, name, coerced)
}

func (u *Unit) apply(ctx context.Context, name string, v cty.Value) error {
	if v.Type() == cty.Number {
		f := registry.Float(v)
		for _, bd := range u.bindings[name] {
			value := f
			if bd.scale != nil {
				value = bd.scale(f)
			}
			if err := u.sub.SetParam(ctx, u.nodes[bd.node], bd.nodeParam, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", name, err)
			}
		}
	}
	if hook, ok := u.hooks[name]; ok {
		if err := hook(ctx, u, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}

	u.mu.Lock()
	u.values[name] = v
	u.mu.Unlock()
	return nil
}

// Params returns the current parameter values.
func (u *Unit) Params() map[string]cty.Value {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]cty.Value, len(u.values))
	for k, v := range u.values {
		out[k] = v
	}
	return out
}

// Param returns one current parameter value.
func (u *Unit) Param(name string) cty.Value {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.values[name]
}

// Close releases every node of the unit. It is idempotent.
func (u *Unit) Close(ctx context.Context) error {
	u.Remove()
	return u.release(ctx)
}

func (u *Unit) release(ctx context.Context) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.mu.Unlock()

	var errs []error
	for i := len(u.order) - 1; i >= 0; i-- {
		if err := u.sub.Release(ctx, u.nodes[u.order[i]]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
