package bypass_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/patchbay/internal/bypass"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delegateFixture struct {
	sub              *memroute.Substrate
	in, out, post    routing.Port
	device, replaced routing.Port
	c                *bypass.DelegateController
}

func newDelegateFixture(t *testing.T) *delegateFixture {
	t.Helper()
	ctx := context.Background()
	sub := memroute.New()
	f := &delegateFixture{sub: sub}
	f.in, _ = sub.CreateNode(ctx, routing.KindGain, "in", nil)
	f.out, _ = sub.CreateNode(ctx, routing.KindGain, "out", nil)
	f.post, _ = sub.CreateNode(ctx, routing.KindGain, "post", nil)
	f.device, _ = sub.CreateNode(ctx, routing.KindDevice, "device", nil)
	f.replaced, _ = sub.CreateNode(ctx, routing.KindDevice, "device", nil)

	c, err := bypass.NewDelegate(sub, bypass.DelegateBinding{Input: f.in, Output: f.out, Post: f.post})
	require.NoError(t, err)
	f.c = c
	return f
}

func TestDelegate_NoDevicePassesThrough(t *testing.T) {
	f := newDelegateFixture(t)
	ctx := context.Background()

	require.NoError(t, f.c.Apply(ctx))
	assert.Equal(t, []routing.Port{f.out}, f.sub.Outputs(f.in))

	// Toggle has no audible effect without a device.
	_, err := f.c.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []routing.Port{f.out}, f.sub.Outputs(f.in))
}

func TestDelegate_DeviceActive(t *testing.T) {
	f := newDelegateFixture(t)
	ctx := context.Background()

	require.NoError(t, f.c.SetDevice(ctx, f.device))

	assert.Equal(t, []routing.Port{f.device}, f.sub.Outputs(f.in))
	assert.Equal(t, []routing.Port{f.post}, f.sub.Outputs(f.device))
	assert.Equal(t, []routing.Port{f.out}, f.sub.Outputs(f.post))
	assert.Equal(t, f.device, f.c.Device())
}

func TestDelegate_DeviceBypassed(t *testing.T) {
	f := newDelegateFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.SetDevice(ctx, f.device))

	require.NoError(t, f.c.Set(ctx, true))

	assert.Equal(t, []routing.Port{f.out}, f.sub.Outputs(f.in))
	assert.Empty(t, f.sub.Outputs(f.device))
	assert.Empty(t, f.sub.Outputs(f.post))
}

// Swapping the device re-evaluates the wiring and detaches the old one.
func TestDelegate_ReplaceDevice(t *testing.T) {
	f := newDelegateFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.SetDevice(ctx, f.device))

	require.NoError(t, f.c.SetDevice(ctx, f.replaced))

	assert.Empty(t, f.sub.Outputs(f.device))
	assert.Equal(t, []routing.Port{f.replaced}, f.sub.Outputs(f.in))
	assert.Equal(t, []routing.Port{f.post}, f.sub.Outputs(f.replaced))

	require.NoError(t, f.c.SetDevice(ctx, nil))
	assert.Empty(t, f.sub.Outputs(f.replaced))
	assert.Equal(t, []routing.Port{f.out}, f.sub.Outputs(f.in))
}
