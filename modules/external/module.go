package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "external"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// Descriptor is the JSON description of an exported device.
type Descriptor struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params"`
}

// Host routes its input through an externally loaded device. Without a device
// it passes the input straight through.
type Host struct {
	*effect.Unit

	mu     sync.Mutex
	device routing.Port
	name   string
}

// New builds the host with no device loaded.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	u, err := effect.NewBuilder(Kind, env).
		Node("in", routing.KindGain, routing.Params{"gain": 1}).
		Node("out", routing.KindGain, routing.Params{"gain": 1}).
		Node("post", routing.KindGain, nil).
		Ports("in", "out").
		Delegate("post").
		Param("gain", "post", "gain", nil).
		Build(ctx)
	if err != nil {
		return nil, err
	}
	return &Host{Unit: u}, nil
}

// ReadDescriptor parses a device descriptor file.
func ReadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse device descriptor %s: %w", path, err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("device descriptor %s has no name", path)
	}
	return &d, nil
}

// LoadDevice creates the device described by the file at path and swaps it
// in. The previous device, if any, is released.
func (h *Host) LoadDevice(ctx context.Context, path string) error {
	d, err := ReadDescriptor(path)
	if err != nil {
		return err
	}

	sub := h.Substrate()
	device, err := sub.CreateNode(ctx, routing.KindDevice, h.Name()+"."+d.Name, routing.Params(d.Params))
	if err != nil {
		return err
	}
	if err := h.Delegate().SetDevice(ctx, device); err != nil {
		return errors.Join(err, sub.Release(ctx, device))
	}

	h.mu.Lock()
	previous := h.device
	h.device, h.name = device, d.Name
	h.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Device loaded.", "module_id", h.ID(), "device", d.Name)
	if previous != nil {
		return sub.Release(ctx, previous)
	}
	return nil
}

// UnloadDevice removes the device and returns to pass-through.
func (h *Host) UnloadDevice(ctx context.Context) error {
	h.mu.Lock()
	previous := h.device
	h.mu.Unlock()
	if previous == nil {
		return nil
	}

	if err := h.Delegate().SetDevice(ctx, nil); err != nil {
		return err
	}
	h.mu.Lock()
	h.device, h.name = nil, ""
	h.mu.Unlock()
	return h.Substrate().Release(ctx, previous)
}

// Device returns the name of the loaded device.
func (h *Host) Device() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// Close releases the device and the host's own nodes.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	device := h.device
	h.device, h.name = nil, ""
	h.mu.Unlock()

	var errs []error
	if device != nil {
		errs = append(errs, h.Substrate().Release(ctx, device))
	}
	errs = append(errs, h.Unit.Close(ctx))
	return errors.Join(errs...)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Host for an externally exported device.",
		Params: []registry.ParamSpec{
			registry.Number("gain", 1, 0, 3, "linear output gain"),
		},
		New: New,
	})
}
