package utility

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "utility"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// New builds a gain stage followed by a stereo panner.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("gain", routing.KindGain, routing.Params{"gain": 1}).
		Node("pan", routing.KindPanner, routing.Params{"pan": 0}).
		Connect("gain", "pan").
		Ports("gain", "pan").
		Param("gain", "gain", "gain", nil).
		Param("pan", "pan", "pan", nil).
		Build(ctx)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Gain and stereo pan.",
		Params: []registry.ParamSpec{
			registry.Number("gain", 1, 0, 3, "linear output gain"),
			registry.Number("pan", 0, -1, 1, "stereo position"),
		},
		New: New,
	})
}
