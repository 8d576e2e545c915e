package bitcrush

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
)

const (
	// Kind is the registry kind of this module.
	Kind = "bitcrush"
	// Processor is the worklet the module runs.
	Processor = "bit-crush-processor"
)

// Module implements the registry.Provider interface for this package.
type Module struct{}

// New returns a pending module that becomes ready once the processor has
// loaded on the substrate.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewAsync(ctx, Kind, Processor, env, func(b *effect.Builder) {
		b.Worklet("crusher", Processor, nil).
			Ports("crusher", "crusher").
			Param("bits", "crusher", "bits", nil).
			Param("reduction", "crusher", "reduction", nil)
	}), nil
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Bit depth and sample rate reduction (loads asynchronously).",
		Params: []registry.ParamSpec{
			registry.Number("bits", 31, 1, 32, "bit depth"),
			registry.Number("reduction", 0, 0, 88, "sample rate reduction"),
		},
		New: New,
	})
}
