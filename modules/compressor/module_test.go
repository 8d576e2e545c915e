package compressor

import (
	"context"
	"testing"

	"github.com/specialistvlad/patchbay/internal/bypass"
	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestCompressor(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	m, err := registry.New(&Module{}).New(ctx, sub, Kind, "glue", map[string]cty.Value{"ratio": cty.NumberIntVal(4)})
	require.NoError(t, err)
	u := m.(*effect.Unit)

	in, out, ok := u.Ports()
	require.True(t, ok)
	assert.Equal(t, "glue.compressor#1", in.ID())
	assert.Equal(t, "glue.makeup#1", out.ID())
	assert.True(t, sub.HasEdge(in, out))

	info, _ := sub.Node(in)
	assert.Equal(t, 4.0, info.Params["ratio"])
	assert.Equal(t, -24.0, info.Params["threshold"])

	assert.ErrorIs(t, u.SetBypass(ctx, true), bypass.ErrUnsupported)

	err = u.SetParam(ctx, "ratio", cty.NumberIntVal(50))
	assert.ErrorIs(t, err, registry.ErrOutOfRange)
}
