package nested

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// DefaultCrossfade splits the signal evenly.
const DefaultCrossfade = 0.5

// Splitter is a two-branch container with a crossfade between the branches.
type Splitter struct {
	*Container
}

// TapGains returns the tap gains of branch A and branch B for crossfade x,
// after clamping x to [0, 1].
func TapGains(x float64) (a, b float64) {
	x = clamp(x)
	return 1 - x, x
}

func clamp(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// NewSplitter builds a splitter.
func NewSplitter(ctx context.Context, env registry.Env) (*Splitter, error) {
	c, err := newContainer(ctx, KindSplitter, env, 2, func(b *effect.Builder) {
		b.Param("crossfade", tapName(0), "gain", func(x float64) float64 { a, _ := TapGains(x); return a })
		b.Param("crossfade", tapName(1), "gain", func(x float64) float64 { _, bg := TapGains(x); return bg })
	})
	if err != nil {
		return nil, err
	}
	return &Splitter{Container: c}, nil
}

func newSplitterModule(ctx context.Context, env registry.Env) (module.Module, error) {
	return NewSplitter(ctx, env)
}

// SetCrossfade clamps x to [0, 1] and applies it.
func (s *Splitter) SetCrossfade(ctx context.Context, x float64) error {
	return s.SetParam(ctx, "crossfade", cty.NumberFloatVal(clamp(x)))
}

// Crossfade returns the current crossfade value.
func (s *Splitter) Crossfade() float64 {
	return registry.Float(s.Param("crossfade"))
}
