package convolver

import (
	"context"
	"math"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "convolver"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// PreDelay maps the normalised control value to seconds.
func PreDelay(v float64) float64 {
	return math.Pow(v, 2.5) * 2.5
}

// New builds a convolution reverb with a delayed feedback path around the
// convolver and a dry/wet mix.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("in", routing.KindGain, routing.Params{"gain": 1}).
		Node("out", routing.KindGain, routing.Params{"gain": 1}).
		Node("convolver", routing.KindConvolver, nil).
		Node("predelay", routing.KindDelay, nil).
		Node("feedback", routing.KindGain, nil).
		Node("wet", routing.KindGain, nil).
		Node("dry", routing.KindGain, nil).
		Connect("convolver", "predelay").
		Connect("predelay", "feedback").
		Connect("feedback", "convolver").
		Connect("convolver", "wet").
		Ports("in", "out").
		Bypass([]string{"convolver", "dry"}, []string{"wet", "dry"}).
		Param("mix", "wet", "gain", nil).
		Param("mix", "dry", "gain", func(v float64) float64 { return 1 - v }).
		Param("predelay", "predelay", "delayTime", PreDelay).
		Param("feedback", "feedback", "gain", func(v float64) float64 { return -v }).
		Build(ctx)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Convolution reverb with feedback pre-delay.",
		Params: []registry.ParamSpec{
			registry.Number("mix", 0.5, 0, 1, "wet share of the output"),
			registry.Number("predelay", 0.5, 0, 1, "normalised feedback delay time"),
			registry.Number("feedback", 0, 0, 0.8, "feedback amount"),
		},
		New: New,
	})
}
