package effect_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/patchbay/internal/bypass"
	"github.com/specialistvlad/patchbay/internal/chain"
	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

var specs = []registry.ParamSpec{
	registry.Number("mix", 0.5, 0, 1, "wet level"),
	registry.Bool("tight", false, "shorter path"),
}

func newEnv(sub routing.Substrate, name string) registry.Env {
	return registry.Env{
		Substrate: sub,
		ID:        module.NewID(),
		Name:      name,
		Specs:     specs,
		Params:    map[string]cty.Value{"mix": cty.NumberFloatVal(0.25), "tight": cty.False},
	}
}

// declareWet declares in -> {dry, fx}, fx -> wet, {dry, wet} -> out.
func declareWet(b *effect.Builder) {
	b.Node("in", routing.KindGain, nil).
		Node("out", routing.KindGain, nil).
		Node("dry", routing.KindGain, nil).
		Node("fx", routing.KindWaveShaper, nil).
		Node("wet", routing.KindGain, nil).
		Node("lfo", routing.KindOscillator, nil).
		Connect("fx", "wet").
		Modulate("lfo", "fx", "amount").
		Ports("in", "out").
		Bypass([]string{"dry", "fx"}, []string{"dry", "wet"}).
		Param("mix", "wet", "gain", nil).
		Param("mix", "dry", "gain", func(v float64) float64 { return 1 - v })
}

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	b := effect.NewBuilder("wet", newEnv(sub, "w"))
	declareWet(b)

	u, err := b.Build(ctx)
	require.NoError(t, err)

	assert.Equal(t, module.StateActive, u.State())
	in, out, ok := u.Ports()
	require.True(t, ok)
	assert.Equal(t, "w.in#1", in.ID())
	assert.Equal(t, "w.out#1", out.ID())

	assert.True(t, sub.HasEdge(u.Node("in"), u.Node("dry")))
	assert.True(t, sub.HasEdge(u.Node("in"), u.Node("fx")))
	assert.True(t, sub.HasEdge(u.Node("wet"), u.Node("out")))

	wet, _ := sub.Node(u.Node("wet"))
	dry, _ := sub.Node(u.Node("dry"))
	assert.Equal(t, 0.25, wet.Params["gain"])
	assert.Equal(t, 0.75, dry.Params["gain"])
	assert.Equal(t, 0.25, registry.Float(u.Param("mix")))
}

func TestUnit_SetParamAndHook(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	b := effect.NewBuilder("wet", newEnv(sub, "w"))
	declareWet(b)
	var seen []bool
	b.OnParam("tight", func(ctx context.Context, u *effect.Unit, v cty.Value) error {
		seen = append(seen, v.True())
		return nil
	})

	u, err := b.Build(ctx)
	require.NoError(t, err)

	require.NoError(t, u.SetParam(ctx, "mix", cty.NumberFloatVal(1)))
	require.NoError(t, u.SetParam(ctx, "tight", cty.True))

	wet, _ := sub.Node(u.Node("wet"))
	assert.Equal(t, 1.0, wet.Params["gain"])
	assert.Equal(t, []bool{false, true}, seen)

	var perr *registry.ParamError
	assert.ErrorAs(t, u.SetParam(ctx, "mix", cty.NumberIntVal(4)), &perr)
	assert.ErrorIs(t, u.SetParam(ctx, "speed", cty.NumberIntVal(1)), registry.ErrUnknownParam)
}

func TestUnit_Bypass(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	b := effect.NewBuilder("wet", newEnv(sub, "w"))
	declareWet(b)
	u, err := b.Build(ctx)
	require.NoError(t, err)

	on, err := u.ToggleBypass(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, module.StateBypassed, u.State())
	assert.Equal(t, []routing.Port{u.Node("out")}, sub.Outputs(u.Node("in")))

	require.NoError(t, u.SetBypass(ctx, false))
	assert.Equal(t, module.StateActive, u.State())
	assert.True(t, sub.HasEdge(u.Node("dry"), u.Node("out")))
}

func TestUnit_SinglePortHasNoBypass(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	env := newEnv(sub, "g")
	env.Specs, env.Params = nil, nil
	u, err := effect.NewBuilder("gain", env).
		Node("gain", routing.KindGain, nil).
		Ports("gain", "gain").
		Build(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, u.SetBypass(ctx, true), bypass.ErrUnsupported)
	assert.False(t, u.Bypassed())
}

func TestUnit_CloseReleasesNodes(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	b := effect.NewBuilder("wet", newEnv(sub, "w"))
	declareWet(b)
	u, err := b.Build(ctx)
	require.NoError(t, err)

	require.NoError(t, u.Close(ctx))
	require.NoError(t, u.Close(ctx))

	assert.Equal(t, 0, sub.Live())
	assert.Empty(t, sub.Edges())
	assert.Equal(t, module.StateRemoved, u.State())
}

func TestBuilder_AccumulatesErrors(t *testing.T) {
	env := newEnv(memroute.New(), "bad")
	_, err := effect.NewBuilder("bad", env).
		Node("in", routing.KindGain, nil).
		Node("in", routing.KindGain, nil).
		Connect("in", "nowhere").
		Param("volume", "in", "gain", nil).
		Build(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "in" declared twice`)
	assert.Contains(t, err.Error(), `undeclared node "nowhere"`)
	assert.Contains(t, err.Error(), `parameter "volume" is not declared`)
	assert.Contains(t, err.Error(), "input and output nodes must be declared")
}

func TestBuilder_ReleasesOnFailure(t *testing.T) {
	sub := memroute.New()
	b := effect.NewBuilder("wet", newEnv(sub, "w"))
	declareWet(b)
	sub.FailNext(memroute.OpConnectParam, errors.New("boom"))

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, routing.IsSubstrateFailure(err))
	assert.Equal(t, 0, sub.Live())
}

func declareCrusher(b *effect.Builder) {
	b.Node("in", routing.KindGain, nil).
		Worklet("crusher", "crusher-processor", nil).
		Node("out", routing.KindGain, nil).
		Connect("crusher", "out").
		Ports("in", "out").
		Bypass([]string{"crusher"}, []string{"crusher"})
}

func waitDone(t *testing.T, a *effect.Async) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("module did not finish loading")
	}
}

// The chain stays wired around the pending module and picks it up once the
// processor has loaded.
func TestAsync_ReadyInChain(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	sub := memroute.New(memroute.WithLoadGate(gate))
	src, _ := sub.CreateNode(ctx, routing.KindSource, "src", nil)
	dst, _ := sub.CreateNode(ctx, routing.KindDestination, "dst", nil)
	c := chain.New(sub)
	require.NoError(t, c.SetExternalInput(ctx, src))
	require.NoError(t, c.SetExternalOutput(ctx, dst))

	env := newEnv(sub, "crush")
	a := effect.NewAsync(ctx, "crush", "crusher-processor", env, declareCrusher)
	require.NoError(t, a.SetBypass(ctx, true))
	require.NoError(t, a.SetParam(ctx, "mix", cty.NumberFloatVal(0.9)))
	assert.Equal(t, module.StatePending, a.State())

	require.NoError(t, c.AddModule(ctx, a, -1))
	assert.True(t, sub.HasEdge(src, dst), "previous wiring stays until ready")

	close(gate)
	waitDone(t, a)
	require.NoError(t, a.Err())

	in, out, ok := a.Ports()
	require.True(t, ok)
	assert.True(t, sub.HasEdge(src, in))
	assert.True(t, sub.HasEdge(out, dst))
	assert.False(t, sub.HasEdge(src, dst))
	assert.True(t, a.Bypassed())
	assert.Equal(t, module.StateBypassed, a.State())
	assert.Equal(t, []routing.Port{out}, sub.Outputs(in))
	assert.Equal(t, 0.9, registry.Float(a.Params()["mix"]))
}

func TestAsync_BypassChangedWhileResolving(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	sub := memroute.New(memroute.WithLoadGate(gate))
	a := effect.NewAsync(ctx, "crush", "crusher-processor", newEnv(sub, "crush"), declareCrusher)
	require.NoError(t, a.SetBypass(ctx, true))

	// Ready callbacks run inside Resolve, after the unit is reachable.
	var bypassErr error
	a.OnReady(func(ctx context.Context) {
		bypassErr = a.SetBypass(ctx, false)
	})

	close(gate)
	waitDone(t, a)
	require.NoError(t, a.Err())
	require.NoError(t, bypassErr)
	assert.False(t, a.Bypassed())
	assert.Equal(t, module.StateActive, a.State())

	require.NoError(t, a.SetBypass(ctx, true))
	assert.Equal(t, module.StateBypassed, a.State())
}

func TestAsync_RemovedWhileLoading(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New(memroute.WithLoadGate(make(chan struct{})))
	a := effect.NewAsync(ctx, "crush", "crusher-processor", newEnv(sub, "crush"), declareCrusher)

	require.NoError(t, a.Close(ctx))
	waitDone(t, a)

	assert.NoError(t, a.Err())
	assert.Equal(t, module.StateRemoved, a.State())
	assert.Equal(t, 0, sub.Live())
}

func TestAsync_LoadFailure(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	sub.FailNext(memroute.OpLoadProcessor, errors.New("fetch failed"))

	a := effect.NewAsync(ctx, "crush", "crusher-processor", newEnv(sub, "crush"), declareCrusher)
	waitDone(t, a)

	require.Error(t, a.Err())
	assert.Equal(t, module.StatePending, a.State())
	assert.Nil(t, a.Unit())
}
