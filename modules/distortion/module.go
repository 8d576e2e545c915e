package distortion

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "distortion"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// New builds a single wave shaper. Input and output are the same node, so
// the module has no bypass.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("shaper", routing.KindWaveShaper, nil).
		Ports("shaper", "shaper").
		Param("amount", "shaper", "amount", nil).
		Build(ctx)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Wave shaping distortion.",
		Params: []registry.ParamSpec{
			registry.Number("amount", 100, 1, 400, "curve steepness"),
		},
		New: New,
	})
}
