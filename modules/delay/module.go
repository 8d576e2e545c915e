package delay

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "delay"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// New builds a feedback delay with a dry/wet mix and an LFO on the delay time.
//
//	in -> dry -> out
//	in -> delay <-> feedback
//	      delay -> wet -> out
//	lfo -> lfo_depth -> delay.delayTime
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("in", routing.KindGain, routing.Params{"gain": 1}).
		Node("out", routing.KindGain, routing.Params{"gain": 1}).
		Node("delay", routing.KindDelay, nil).
		Node("feedback", routing.KindGain, nil).
		Node("wet", routing.KindGain, nil).
		Node("dry", routing.KindGain, nil).
		Node("lfo", routing.KindOscillator, nil).
		Node("lfo_depth", routing.KindGain, nil).
		Connect("feedback", "delay").
		Connect("delay", "feedback").
		Connect("delay", "wet").
		Connect("lfo", "lfo_depth").
		Modulate("lfo_depth", "delay", "delayTime").
		Ports("in", "out").
		Bypass([]string{"delay", "dry"}, []string{"wet", "dry"}).
		Param("time", "delay", "delayTime", nil).
		Param("feedback", "feedback", "gain", nil).
		Param("mix", "wet", "gain", nil).
		Param("mix", "dry", "gain", func(v float64) float64 { return 1 - v }).
		Param("lfo_rate", "lfo", "frequency", nil).
		Param("lfo_depth", "lfo_depth", "gain", nil).
		Build(ctx)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Feedback delay with modulated time.",
		Params: []registry.ParamSpec{
			registry.Number("time", 0.5, 0, 2, "delay time in seconds"),
			registry.Number("feedback", 0.3, 0, 1.2, "feedback gain"),
			registry.Number("mix", 0.5, 0, 1, "wet share of the output"),
			registry.Number("lfo_rate", 0.2, 0.1, 10, "modulation rate in Hz"),
			registry.Number("lfo_depth", 0.002, 0, 0.01, "modulation depth in seconds"),
		},
		New: New,
	})
}
