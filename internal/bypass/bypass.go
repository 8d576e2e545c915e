package bypass

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// ErrUnsupported is returned for modules whose input and output are the same port.
var ErrUnsupported = errors.New("bypass not supported: input and output are the same port")

// Switch is implemented by both controllers.
type Switch interface {
	// Apply re-wires for the current state.
	Apply(ctx context.Context) error
	// Set switches to the given state. On failure the state is unchanged.
	Set(ctx context.Context, on bool) error
	// Toggle flips the state and returns the new one.
	Toggle(ctx context.Context) (bool, error)
	Bypassed() bool
}

// Binding describes a module's bypass topology. It is fixed once the
// controller has been created.
type Binding struct {
	Input             routing.Port
	Output            routing.Port
	InputConnectsTo   []routing.Port
	ConnectedToOutput []routing.Port
}

// Controller implements Switch for a static Binding.
type Controller struct {
	sub     routing.Substrate
	binding Binding

	mu       sync.Mutex
	bypassed bool
}

// New creates an active (not bypassed) controller. It does not touch the
// substrate until Apply or Set is called.
func New(sub routing.Substrate, b Binding) (*Controller, error) {
	if err := checkPorts(b.Input, b.Output); err != nil {
		return nil, err
	}
	b.InputConnectsTo = append([]routing.Port(nil), b.InputConnectsTo...)
	b.ConnectedToOutput = append([]routing.Port(nil), b.ConnectedToOutput...)
	return &Controller{sub: sub, binding: b}, nil
}

func checkPorts(in, out routing.Port) error {
	if in == nil || out == nil {
		return fmt.Errorf("bypass binding requires input and output ports")
	}
	if in.ID() == out.ID() {
		return ErrUnsupported
	}
	return nil
}

// Binding returns a copy of the controller's binding.
func (c *Controller) Binding() Binding {
	b := c.binding
	b.InputConnectsTo = append([]routing.Port(nil), b.InputConnectsTo...)
	b.ConnectedToOutput = append([]routing.Port(nil), b.ConnectedToOutput...)
	return b
}

func (c *Controller) Bypassed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bypassed
}

func (c *Controller) Apply(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wire(ctx, c.bypassed)
}

func (c *Controller) Set(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.wire(ctx, on); err != nil {
		return err
	}
	c.bypassed = on
	return nil
}

func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := !c.bypassed
	if err := c.wire(ctx, next); err != nil {
		return c.bypassed, err
	}
	c.bypassed = next
	return next, nil
}

func (c *Controller) wire(ctx context.Context, on bool) error {
	b := c.binding
	if err := c.sub.DisconnectAll(ctx, b.Input); err != nil {
		return fmt.Errorf("bypass: %w", err)
	}
	for _, p := range b.ConnectedToOutput {
		if err := c.sub.DisconnectAll(ctx, p); err != nil {
			return fmt.Errorf("bypass: %w", err)
		}
	}

	if on {
		if err := c.sub.Connect(ctx, b.Input, b.Output); err != nil {
			return fmt.Errorf("bypass: %w", err)
		}
	} else {
		for _, p := range b.InputConnectsTo {
			if err := c.sub.Connect(ctx, b.Input, p); err != nil {
				return fmt.Errorf("bypass: %w", err)
			}
		}
		for _, p := range b.ConnectedToOutput {
			if err := c.sub.Connect(ctx, p, b.Output); err != nil {
				return fmt.Errorf("bypass: %w", err)
			}
		}
	}
	ctxlog.FromContext(ctx).Debug("Bypass applied.", "input", b.Input.ID(), "bypassed", on)
	return nil
}
