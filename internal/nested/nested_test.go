package nested_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/patchbay/internal/chain"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/nested"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/specialistvlad/patchbay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type harness struct {
	ctx     context.Context
	sub     *memroute.Substrate
	reg     *registry.Registry
	in, out routing.Port
	root    *chain.Chain
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	sub := memroute.New()
	in, err := sub.CreateNode(ctx, routing.KindSource, "in", nil)
	require.NoError(t, err)
	out, err := sub.CreateNode(ctx, routing.KindDestination, "out", nil)
	require.NoError(t, err)
	root := chain.New(sub)
	require.NoError(t, root.SetExternalInput(ctx, in))
	require.NoError(t, root.SetExternalOutput(ctx, out))
	return &harness{ctx: ctx, sub: sub, reg: registry.New(nested.Provider{}), in: in, out: out, root: root}
}

func (h *harness) stub(t *testing.T, name string) *testutil.StubModule {
	t.Helper()
	m, err := testutil.NewStub(h.ctx, h.sub, name)
	require.NoError(t, err)
	return m
}

func (h *harness) splitter(t *testing.T, params map[string]cty.Value) *nested.Splitter {
	t.Helper()
	m, err := h.reg.New(h.ctx, h.sub, nested.KindSplitter, "split", params)
	require.NoError(t, err)
	s, ok := m.(*nested.Splitter)
	require.True(t, ok)
	return s
}

func (h *harness) gain(t *testing.T, p routing.Port) float64 {
	t.Helper()
	info, ok := h.sub.Node(p)
	require.True(t, ok)
	return info.Params["gain"]
}

func TestTapGains(t *testing.T) {
	tests := []struct {
		x, a, b float64
	}{
		{x: 0, a: 1, b: 0},
		{x: 0.25, a: 0.75, b: 0.25},
		{x: 1, a: 0, b: 1},
		{x: -3, a: 1, b: 0},
		{x: 7, a: 0, b: 1},
	}
	for _, tc := range tests {
		a, b := nested.TapGains(tc.x)
		assert.Equal(t, tc.a, a, "x=%g", tc.x)
		assert.Equal(t, tc.b, b, "x=%g", tc.x)
	}
}

// Root chain [X, Splitter(A: [Y], B: [Z])].
func TestSplitter_InRootChain(t *testing.T) {
	h := newHarness(t)
	x, y, z := h.stub(t, "x"), h.stub(t, "y"), h.stub(t, "z")
	s := h.splitter(t, map[string]cty.Value{"crossfade": cty.NumberFloatVal(0.25)})

	require.NoError(t, h.root.AddModule(h.ctx, x, -1))
	require.NoError(t, h.root.AddModule(h.ctx, s, -1))
	a, _ := s.Branch(0)
	b, _ := s.Branch(1)
	require.NoError(t, a.AddModule(h.ctx, y, -1))
	require.NoError(t, b.AddModule(h.ctx, z, -1))

	sIn, sOut, ok := s.Ports()
	require.True(t, ok)
	edges := [][2]routing.Port{
		{h.in, x.In()},
		{x.Out(), sIn},
		{sIn, s.Tap(0)},
		{sIn, s.Tap(1)},
		{s.Tap(0), y.In()},
		{y.Out(), s.Return(0)},
		{s.Tap(1), z.In()},
		{z.Out(), s.Return(1)},
		{s.Return(0), sOut},
		{s.Return(1), sOut},
		{sOut, h.out},
	}
	for _, e := range edges {
		assert.True(t, h.sub.HasEdge(e[0], e[1]), "%s -> %s", e[0].ID(), e[1].ID())
	}
	// Plus the internal edge of each stub.
	assert.Len(t, h.sub.Edges(), len(edges)+3)

	assert.Equal(t, 0.75, h.gain(t, s.Tap(0)))
	assert.Equal(t, 0.25, h.gain(t, s.Tap(1)))
}

func TestSplitter_SetCrossfadeClamps(t *testing.T) {
	h := newHarness(t)
	s := h.splitter(t, nil)
	assert.Equal(t, nested.DefaultCrossfade, s.Crossfade())
	assert.Equal(t, 0.5, h.gain(t, s.Tap(0)))

	require.NoError(t, s.SetCrossfade(h.ctx, 1.7))

	assert.Equal(t, 1.0, s.Crossfade())
	assert.Equal(t, 0.0, h.gain(t, s.Tap(0)))
	assert.Equal(t, 1.0, h.gain(t, s.Tap(1)))
}

func TestContainer_Bypass(t *testing.T) {
	h := newHarness(t)
	s := h.splitter(t, nil)
	y := h.stub(t, "y")
	require.NoError(t, h.root.AddModule(h.ctx, s, -1))
	a, _ := s.Branch(0)
	require.NoError(t, a.AddModule(h.ctx, y, -1))
	sIn, sOut, _ := s.Ports()

	require.NoError(t, s.SetBypass(h.ctx, true))

	assert.Equal(t, []routing.Port{sOut}, h.sub.Outputs(sIn))
	assert.Empty(t, h.sub.Outputs(s.Return(0)))
	assert.Empty(t, h.sub.Outputs(s.Return(1)))
	assert.True(t, h.sub.HasEdge(s.Tap(0), y.In()), "child wiring is kept")
	assert.Equal(t, module.StateBypassed, s.State())

	require.NoError(t, s.SetBypass(h.ctx, false))
	assert.ElementsMatch(t, []routing.Port{s.Tap(0), s.Tap(1)}, h.sub.Outputs(sIn))
	assert.True(t, h.sub.HasEdge(s.Return(0), sOut))
}

// Splitter inside a group inside the root chain, with a module at the bottom.
func TestContainer_DeepNesting(t *testing.T) {
	h := newHarness(t)
	gm, err := h.reg.New(h.ctx, h.sub, nested.KindGroup, "grp", nil)
	require.NoError(t, err)
	g := gm.(*nested.Group)
	s := h.splitter(t, nil)
	leaf := h.stub(t, "leaf")

	require.NoError(t, h.root.AddModule(h.ctx, g, -1))
	inner, ok := g.Branch(0)
	require.True(t, ok)
	require.NoError(t, inner.AddModule(h.ctx, s, -1))
	branchB, _ := s.Branch(1)
	require.NoError(t, branchB.AddModule(h.ctx, leaf, -1))

	gIn, gOut, _ := g.Ports()
	sIn, sOut, _ := s.Ports()
	assert.True(t, h.sub.HasEdge(h.in, gIn))
	assert.True(t, h.sub.HasEdge(g.Tap(0), sIn))
	assert.True(t, h.sub.HasEdge(s.Tap(1), leaf.In()))
	assert.True(t, h.sub.HasEdge(leaf.Out(), s.Return(1)))
	assert.True(t, h.sub.HasEdge(s.Tap(0), s.Return(0)), "empty branch passes through")
	assert.True(t, h.sub.HasEdge(sOut, g.Return(0)))
	assert.True(t, h.sub.HasEdge(gOut, h.out))
	assert.Equal(t, 1.0, h.gain(t, g.Tap(0)))

	var _ nested.Brancher = g
	var _ nested.Brancher = s
	assert.Len(t, g.Branches(), 1)
	assert.Len(t, s.Branches(), 2)

	// Removing the group tears the whole subtree down.
	require.NoError(t, h.root.RemoveModule(h.ctx, g))
	assert.Equal(t, 1, leaf.Closed())
	assert.Equal(t, module.StateRemoved, s.State())
	assert.Equal(t, 2, h.sub.Live(), "only the boundary nodes remain")
	assert.True(t, h.sub.HasEdge(h.in, h.out))
	assert.Len(t, h.sub.Edges(), 1)
}
