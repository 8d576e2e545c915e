package autopan

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "autopan"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// New builds an offset panner feeding an LFO-driven panner.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("in", routing.KindGain, routing.Params{"gain": 1}).
		Node("out", routing.KindGain, routing.Params{"gain": 1}).
		Node("offset", routing.KindPanner, nil).
		Node("pan", routing.KindPanner, nil).
		Node("lfo", routing.KindOscillator, nil).
		Node("depth", routing.KindGain, nil).
		Connect("offset", "pan").
		Connect("lfo", "depth").
		Modulate("depth", "pan", "pan").
		Ports("in", "out").
		Bypass([]string{"offset"}, []string{"pan"}).
		Param("offset", "offset", "pan", nil).
		Param("rate", "lfo", "frequency", nil).
		Param("depth", "depth", "gain", nil).
		Build(ctx)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "LFO-driven stereo panning.",
		Params: []registry.ParamSpec{
			registry.Number("offset", 0, -1, 1, "centre position"),
			registry.Number("rate", 5, 0.1, 60, "LFO rate in Hz"),
			registry.Number("depth", 0.5, -1, 1, "pan swing"),
		},
		New: New,
	})
}
