package tremolo

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "tremolo"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// New builds a gain node whose gain is modulated by an LFO.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("gain", routing.KindGain, routing.Params{"gain": 1}).
		Node("lfo", routing.KindOscillator, nil).
		Node("depth", routing.KindGain, nil).
		Connect("lfo", "depth").
		Modulate("depth", "gain", "gain").
		Ports("gain", "gain").
		Param("rate", "lfo", "frequency", nil).
		Param("depth", "depth", "gain", nil).
		Build(ctx)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Amplitude modulation.",
		Params: []registry.ParamSpec{
			registry.Number("rate", 5, 0.1, 60, "LFO rate in Hz"),
			registry.Number("depth", 0.5, 0, 1, "modulation depth"),
		},
		New: New,
	})
}
