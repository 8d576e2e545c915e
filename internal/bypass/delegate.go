package bypass

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// DelegateBinding describes a module that routes through an externally
// loaded device: Input -> device -> Post -> Output.
type DelegateBinding struct {
	Input  routing.Port
	Output routing.Port
	Post   routing.Port
}

// DelegateController implements Switch for a delegate device. Without a
// device the module always passes Input straight to Output.
type DelegateController struct {
	sub     routing.Substrate
	binding DelegateBinding

	mu       sync.Mutex
	bypassed bool
	device   routing.Port
}

// NewDelegate creates a controller with no device loaded.
func NewDelegate(sub routing.Substrate, b DelegateBinding) (*DelegateController, error) {
	if err := checkPorts(b.Input, b.Output); err != nil {
		return nil, err
	}
	if b.Post == nil {
		return nil, fmt.Errorf("delegate binding requires a post port")
	}
	return &DelegateController{sub: sub, binding: b}, nil
}

func (c *DelegateController) Bypassed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bypassed
}

// Device returns the current device, or nil.
func (c *DelegateController) Device() routing.Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

func (c *DelegateController) Apply(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wire(ctx, c.bypassed, c.device, nil)
}

func (c *DelegateController) Set(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.wire(ctx, on, c.device, nil); err != nil {
		return err
	}
	c.bypassed = on
	return nil
}

func (c *DelegateController) Toggle(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := !c.bypassed
	if err := c.wire(ctx, next, c.device, nil); err != nil {
		return c.bypassed, err
	}
	c.bypassed = next
	return next, nil
}

// SetDevice swaps the delegate device (nil unloads it) and re-wires. The
// previous device's outgoing connections are severed; releasing it is up to
// the caller.
func (c *DelegateController) SetDevice(ctx context.Context, device routing.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.wire(ctx, c.bypassed, device, c.device); err != nil {
		return err
	}
	c.device = device
	return nil
}

func (c *DelegateController) wire(ctx context.Context, on bool, device, previous routing.Port) error {
	b := c.binding
	sever := []routing.Port{b.Input, b.Post}
	if device != nil {
		sever = append(sever, device)
	}
	if previous != nil && (device == nil || previous.ID() != device.ID()) {
		sever = append(sever, previous)
	}
	for _, p := range sever {
		if err := c.sub.DisconnectAll(ctx, p); err != nil {
			return fmt.Errorf("bypass: %w", err)
		}
	}

	var edges [][2]routing.Port
	if device == nil || on {
		edges = [][2]routing.Port{{b.Input, b.Output}}
	} else {
		edges = [][2]routing.Port{{b.Input, device}, {device, b.Post}, {b.Post, b.Output}}
	}
	for _, e := range edges {
		if err := c.sub.Connect(ctx, e[0], e[1]); err != nil {
			return fmt.Errorf("bypass: %w", err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Delegate bypass applied.",
		"input", b.Input.ID(), "bypassed", on, "device_loaded", device != nil)
	return nil
}
