package convolver

import (
	"context"
	"testing"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestPreDelay(t *testing.T) {
	assert.Equal(t, 0.0, PreDelay(0))
	assert.Equal(t, 2.5, PreDelay(1))
	assert.InDelta(t, 0.4419, PreDelay(0.5), 1e-4)
}

func TestConvolver(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	m, err := registry.New(&Module{}).New(ctx, sub, Kind, "room", map[string]cty.Value{
		"mix":      cty.NumberFloatVal(0.25),
		"feedback": cty.NumberFloatVal(0.5),
	})
	require.NoError(t, err)
	u := m.(*effect.Unit)

	in, out := u.Node("in"), u.Node("out")
	conv, dry, wet := u.Node("convolver"), u.Node("dry"), u.Node("wet")
	assert.True(t, sub.HasEdge(in, conv))
	assert.True(t, sub.HasEdge(in, dry))
	assert.True(t, sub.HasEdge(wet, out))
	assert.True(t, sub.HasEdge(dry, out))
	assert.True(t, sub.HasEdge(u.Node("feedback"), conv), "feedback loop closes on the convolver")

	wetInfo, _ := sub.Node(wet)
	dryInfo, _ := sub.Node(dry)
	fbInfo, _ := sub.Node(u.Node("feedback"))
	assert.Equal(t, 0.25, wetInfo.Params["gain"])
	assert.Equal(t, 0.75, dryInfo.Params["gain"])
	assert.Equal(t, -0.5, fbInfo.Params["gain"])

	require.NoError(t, u.SetBypass(ctx, true))
	assert.True(t, sub.HasEdge(in, out))
	assert.False(t, sub.HasEdge(wet, out))
	assert.True(t, sub.HasEdge(u.Node("feedback"), conv), "bypass leaves the internal loop alone")
}
