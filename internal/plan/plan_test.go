package plan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/plan"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	sub    *memroute.Substrate
	in     routing.Port
	out    routing.Port
	stages []plan.Stage
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	ctx := context.Background()
	sub := memroute.New()
	in, err := sub.CreateNode(ctx, routing.KindSource, "in", nil)
	require.NoError(t, err)
	out, err := sub.CreateNode(ctx, routing.KindDestination, "out", nil)
	require.NoError(t, err)

	f := &fixture{sub: sub, in: in, out: out}
	for i := 0; i < n; i++ {
		a, err := sub.CreateNode(ctx, routing.KindGain, "m.in", nil)
		require.NoError(t, err)
		b, err := sub.CreateNode(ctx, routing.KindGain, "m.out", nil)
		require.NoError(t, err)
		f.stages = append(f.stages, plan.Stage{In: a, Out: b})
	}
	return f
}

// edgeIDs flattens a plan to comparable strings.
func edgeIDs(p plan.Plan) []string {
	ids := make([]string, 0, len(p.Edges))
	for _, e := range p.Edges {
		ids = append(ids, e.String())
	}
	return ids
}

func TestCompute_EmptyChainConnectsBoundary(t *testing.T) {
	f := newFixture(t, 0)

	p, err := plan.Compute(f.in, f.out, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"in#1 -> out#1"}, edgeIDs(p))
	assert.Equal(t, []routing.Port{f.in}, p.Sever)
}

// A linear chain of n ready modules produces exactly n+1 edges.
func TestCompute_EdgeCount(t *testing.T) {
	for n := 0; n <= 6; n++ {
		f := newFixture(t, n)
		p, err := plan.Compute(f.in, f.out, f.stages)
		require.NoError(t, err)
		assert.Len(t, p.Edges, n+1, "n=%d", n)
		assert.Len(t, p.Sever, n+1, "n=%d", n)
	}
}

// Three modules A, B, C produce in->A, A->B, B->C, C->out.
func TestCompute_ThreeModules(t *testing.T) {
	f := newFixture(t, 3)

	p, err := plan.Compute(f.in, f.out, f.stages)
	require.NoError(t, err)

	want := []string{
		"in#1 -> m.in#1",
		"m.out#1 -> m.in#2",
		"m.out#2 -> m.in#3",
		"m.out#3 -> out#1",
	}
	if diff := cmp.Diff(want, edgeIDs(p)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

// Removing the middle module yields in->A, A->C, C->out.
func TestCompute_RemoveMiddle(t *testing.T) {
	f := newFixture(t, 3)

	p, err := plan.Compute(f.in, f.out, []plan.Stage{f.stages[0], f.stages[2]})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"in#1 -> m.in#1",
		"m.out#1 -> m.in#3",
		"m.out#3 -> out#1",
	}, edgeIDs(p))
}

func TestCompute_NotReady(t *testing.T) {
	f := newFixture(t, 3)
	f.stages[1].Out = nil

	p, err := plan.Compute(f.in, f.out, f.stages)
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrNotReady)
	assert.Empty(t, p.Edges, "no partial plan")
}

func TestCompute_NoBoundary(t *testing.T) {
	f := newFixture(t, 1)

	_, err := plan.Compute(nil, f.out, f.stages)
	assert.ErrorIs(t, err, plan.ErrNoBoundary)
	_, err = plan.Compute(f.in, nil, f.stages)
	assert.ErrorIs(t, err, plan.ErrNoBoundary)
}

// Applying a plan twice leaves the same connection set.
func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	p, err := plan.Compute(f.in, f.out, f.stages)
	require.NoError(t, err)

	require.NoError(t, plan.Apply(ctx, f.sub, p))
	first := f.sub.Edges()
	require.NoError(t, plan.Apply(ctx, f.sub, p))
	second := f.sub.Edges()

	assert.Equal(t, first, second)
	assert.Len(t, second, 4)
}

// Re-applying after a reorder replaces the previous wiring entirely.
func TestApply_ReplacesStaleEdges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	p, _ := plan.Compute(f.in, f.out, f.stages)
	require.NoError(t, plan.Apply(ctx, f.sub, p))

	swapped := []plan.Stage{f.stages[1], f.stages[0]}
	p, _ = plan.Compute(f.in, f.out, swapped)
	require.NoError(t, plan.Apply(ctx, f.sub, p))

	assert.True(t, f.sub.HasEdge(f.in, f.stages[1].In))
	assert.True(t, f.sub.HasEdge(f.stages[1].Out, f.stages[0].In))
	assert.True(t, f.sub.HasEdge(f.stages[0].Out, f.out))
	assert.False(t, f.sub.HasEdge(f.in, f.stages[0].In))
	assert.False(t, f.sub.HasEdge(f.stages[0].Out, f.stages[1].In))
	assert.Len(t, f.sub.Edges(), 3)
}

func TestApply_AbortsOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	p, _ := plan.Compute(f.in, f.out, f.stages)
	boom := errors.New("boom")
	f.sub.FailNext(memroute.OpConnect, boom)

	err := plan.Apply(ctx, f.sub, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, routing.IsSubstrateFailure(err))
	assert.Empty(t, f.sub.Edges(), "later edges are not attempted")
}

func TestPlan_EqualAndString(t *testing.T) {
	f := newFixture(t, 1)
	a, _ := plan.Compute(f.in, f.out, f.stages)
	b, _ := plan.Compute(f.in, f.out, f.stages)
	c, _ := plan.Compute(f.in, f.out, nil)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "in#1 -> m.in#1\nm.out#1 -> out#1\n", a.String())
}
