package registry_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type stubProvider struct {
	got *registry.Env
}

func (p *stubProvider) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        "stub",
		Description: "test module",
		Params: []registry.ParamSpec{
			registry.Number("gain", 1, 0, 2, "output gain"),
			registry.Bool("invert", false, "phase invert"),
			registry.String("mode", "soft", "clip mode"),
		},
		New: func(ctx context.Context, env registry.Env) (module.Module, error) {
			p.got = &env
			return testutil.NewStub(ctx, env.Substrate, env.Name)
		},
	})
}

func TestRegistry_NewAppliesDefaults(t *testing.T) {
	p := &stubProvider{}
	r := registry.New(p)
	ctx := context.Background()

	m, err := r.New(ctx, memroute.New(), "stub", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "stub", m.Name())
	require.NotNil(t, p.got)
	assert.Equal(t, 1.0, p.got.Float("gain"))
	assert.False(t, p.got.Bool("invert"))
	assert.Equal(t, "soft", p.got.String("mode"))
	assert.NotEmpty(t, p.got.ID)
}

func TestRegistry_NewConvertsValues(t *testing.T) {
	p := &stubProvider{}
	r := registry.New(p)

	_, err := r.New(context.Background(), memroute.New(), "stub", "s", map[string]cty.Value{
		"gain":   cty.StringVal("0.5"),
		"invert": cty.StringVal("true"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0.5, p.got.Float("gain"))
	assert.True(t, p.got.Bool("invert"))
}

func TestRegistry_NewRejectsBadParams(t *testing.T) {
	r := registry.New(&stubProvider{})
	ctx := context.Background()

	tests := []struct {
		name   string
		params map[string]cty.Value
		param  string
	}{
		{name: "out of range", params: map[string]cty.Value{"gain": cty.NumberIntVal(5)}, param: "gain"},
		{name: "wrong type", params: map[string]cty.Value{"invert": cty.StringVal("maybe")}, param: "invert"},
		{name: "unknown", params: map[string]cty.Value{"colour": cty.StringVal("red")}, param: "colour"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.New(ctx, memroute.New(), "stub", "", tc.params)
			var perr *registry.ParamError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.param, perr.Param)
			assert.Equal(t, "stub", perr.Kind)
		})
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := registry.New()
	_, err := r.New(context.Background(), memroute.New(), "theremin", "", nil)
	assert.ErrorIs(t, err, registry.ErrUnknownKind)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := registry.New(&stubProvider{})
	assert.Panics(t, func() { (&stubProvider{}).Register(r) })
}

func TestRegistry_Kinds(t *testing.T) {
	r := registry.New(&stubProvider{})
	r.Register(registry.Registration{Kind: "a", New: func(context.Context, registry.Env) (module.Module, error) { return nil, nil }})

	assert.Equal(t, []string{"a", "stub"}, r.Kinds())
	reg, ok := r.Lookup("stub")
	require.True(t, ok)
	assert.Len(t, reg.Params, 3)
}

func TestRegistry_Validate(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, registry.New(&stubProvider{}).Validate(ctx))

	r := registry.New()
	noop := func(context.Context, registry.Env) (module.Module, error) { return nil, nil }
	r.Register(registry.Registration{Kind: "bad", New: noop, Params: []registry.ParamSpec{
		registry.Number("depth", 3, 0, 1, ""),
		registry.Number("rate", 1, 2, 0, ""),
		{Name: "mode", Type: cty.String, Default: cty.NumberIntVal(1)},
	}})

	err := r.Validate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'depth': default 3 outside [0, 1]")
	assert.Contains(t, err.Error(), "'rate': min 2 exceeds max 0")
	assert.Contains(t, err.Error(), "'mode': default must be a string")
}

func TestParamSpec_Coerce(t *testing.T) {
	spec := registry.Number("mix", 0.5, 0, 1, "")

	v, err := spec.Coerce(cty.NumberFloatVal(0.25))
	require.NoError(t, err)
	assert.Equal(t, 0.25, registry.Float(v))

	_, err = spec.Coerce(cty.NumberFloatVal(1.5))
	assert.ErrorIs(t, err, registry.ErrOutOfRange)
}
