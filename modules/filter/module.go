package filter

import (
	"context"
	"math"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the registry kind of this module.
const Kind = "filter"

// lfoRange is the detune swing in cents at full depth.
const lfoRange = 2400

// Module implements the registry.Provider interface for this package.
type Module struct{}

// Frequency maps the normalised control value to Hz on a log scale from
// 10 Hz to 20 kHz.
func Frequency(v float64) float64 {
	lo, hi := math.Log10(10), math.Log10(20000)
	return math.Pow(10, v*(hi-lo)+lo)
}

// New builds one or two cascaded biquads. The second stage is switched in
// and out by the slope24 parameter.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("filter1", routing.KindBiquad, nil).
		Node("filter2", routing.KindBiquad, nil).
		Node("out", routing.KindGain, routing.Params{"gain": 1}).
		Node("lfo", routing.KindOscillator, nil).
		Node("lfo_range", routing.KindGain, routing.Params{"gain": lfoRange}).
		Node("lfo_depth", routing.KindGain, nil).
		Connect("lfo", "lfo_range").
		Connect("lfo_range", "lfo_depth").
		Modulate("lfo_depth", "filter1", "detune").
		Modulate("lfo_depth", "filter2", "detune").
		Ports("filter1", "out").
		Param("frequency", "filter1", "frequency", Frequency).
		Param("frequency", "filter2", "frequency", Frequency).
		Param("q", "filter1", "Q", nil).
		Param("q", "filter2", "Q", nil).
		Param("gain", "filter1", "gain", nil).
		Param("gain", "filter2", "gain", nil).
		Param("lfo_rate", "lfo", "frequency", nil).
		Param("depth", "lfo_depth", "gain", nil).
		OnParam("slope24", setSlope).
		Build(ctx)
}

// setSlope re-wires the cascade for a 12 or 24 dB/octave slope.
func setSlope(ctx context.Context, u *effect.Unit, v cty.Value) error {
	sub := u.Substrate()
	first, second, out := u.Node("filter1"), u.Node("filter2"), u.Node("out")

	if err := sub.DisconnectAll(ctx, first); err != nil {
		return err
	}
	if err := sub.DisconnectAll(ctx, second); err != nil {
		return err
	}
	if v.True() {
		if err := sub.Connect(ctx, first, second); err != nil {
			return err
		}
		return sub.Connect(ctx, second, out)
	}
	return sub.Connect(ctx, first, out)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Biquad filter with 12/24 dB slope and detune LFO.",
		Params: []registry.ParamSpec{
			registry.Number("frequency", 0.2, 0, 1, "normalised cutoff, log scaled to 10 Hz - 20 kHz"),
			registry.Number("q", 0, 0, 36, "resonance"),
			registry.Number("gain", 0, -40, 40, "shelf and peak gain in dB"),
			registry.Number("lfo_rate", 0.5, 0.1, 60, "LFO rate in Hz"),
			registry.Number("depth", 0, -1, 1, "LFO depth"),
			registry.Bool("slope24", false, "cascade both stages"),
		},
		New: New,
	})
}
