package filter

import (
	"context"
	"testing"

	"github.com/specialistvlad/patchbay/internal/bypass"
	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestFrequency(t *testing.T) {
	assert.InDelta(t, 10, Frequency(0), 1e-9)
	assert.InDelta(t, 20000, Frequency(1), 1e-6)
}

func TestFilter_SlopeRewiring(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	m, err := registry.New(&Module{}).New(ctx, sub, Kind, "lp", nil)
	require.NoError(t, err)
	u := m.(*effect.Unit)
	first, second, out := u.Node("filter1"), u.Node("filter2"), u.Node("out")

	assert.Equal(t, []routing.Port{out}, sub.Outputs(first), "12 dB by default")
	assert.Empty(t, sub.Outputs(second))

	require.NoError(t, u.SetParam(ctx, "slope24", cty.True))
	assert.Equal(t, []routing.Port{second}, sub.Outputs(first))
	assert.Equal(t, []routing.Port{out}, sub.Outputs(second))

	require.NoError(t, u.SetParam(ctx, "slope24", cty.False))
	assert.Equal(t, []routing.Port{out}, sub.Outputs(first))
	assert.Empty(t, sub.Outputs(second))
}

func TestFilter_FrequencyOnBothStages(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	m, err := registry.New(&Module{}).New(ctx, sub, Kind, "lp", map[string]cty.Value{"frequency": cty.NumberIntVal(1)})
	require.NoError(t, err)
	u := m.(*effect.Unit)

	for _, name := range []string{"filter1", "filter2"} {
		info, ok := sub.Node(u.Node(name))
		require.True(t, ok)
		assert.InDelta(t, 20000, info.Params["frequency"], 1e-6, name)
	}
	assert.ErrorIs(t, u.SetBypass(ctx, true), bypass.ErrUnsupported)
}
