package module

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/zclconf/go-cty/cty"
)

// Module is a processing unit in a chain.
type Module interface {
	ID() ID
	// Kind is the registry kind the module was built from.
	Kind() string
	Name() string
	// Ports returns the module's input and output. ok is false while the
	// module is not ready.
	Ports() (in, out routing.Port, ok bool)
	State() State
	Bypassed() bool
	SetBypass(ctx context.Context, on bool) error
	// OnReady registers fn to run once the module becomes ready. It returns
	// true without registering if the module is already ready.
	OnReady(fn func(ctx context.Context)) bool
	// Close releases the module's substrate nodes and marks it Removed.
	Close(ctx context.Context) error
}

// Parameterized is implemented by modules with user-facing parameters.
type Parameterized interface {
	SetParam(ctx context.Context, name string, value cty.Value) error
	Params() map[string]cty.Value
}

// Toggler is implemented by modules that can flip their own bypass state.
type Toggler interface {
	ToggleBypass(ctx context.Context) (bool, error)
}

// DeviceLoader is implemented by modules that host an external device.
type DeviceLoader interface {
	LoadDevice(ctx context.Context, path string) error
	UnloadDevice(ctx context.Context) error
	// Device returns the name of the loaded device, or "".
	Device() string
}
