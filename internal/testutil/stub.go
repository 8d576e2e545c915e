package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// StubModule is a minimal module with an input node wired straight to an
// output node. It can start pending and be resolved later.
type StubModule struct {
	*module.Lifecycle
	sub routing.Substrate

	mu       sync.Mutex
	in, out  routing.Port
	bypassed bool
	closed   int
}

// NewStub creates a ready stub whose nodes are labelled "<name>.in" and
// "<name>.out".
func NewStub(ctx context.Context, sub routing.Substrate, name string) (*StubModule, error) {
	m := NewPendingStub(sub, name)
	if err := m.Resolve(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// NewPendingStub creates a stub that stays pending until Resolve is called.
func NewPendingStub(sub routing.Substrate, name string) *StubModule {
	return &StubModule{
		Lifecycle: module.NewLifecycle(module.NewID(), "stub", name),
		sub:       sub,
	}
}

// Resolve creates the stub's nodes and makes it ready. If the stub was
// removed first, the nodes are released again.
func (m *StubModule) Resolve(ctx context.Context) error {
	in, err := m.sub.CreateNode(ctx, routing.KindGain, m.Name()+".in", nil)
	if err != nil {
		return err
	}
	out, err := m.sub.CreateNode(ctx, routing.KindGain, m.Name()+".out", nil)
	if err != nil {
		return err
	}
	if err := m.sub.Connect(ctx, in, out); err != nil {
		return err
	}

	m.mu.Lock()
	m.in, m.out = in, out
	m.mu.Unlock()

	if !m.Lifecycle.Resolve(ctx, in, out) {
		return errors.Join(m.sub.Release(ctx, in), m.sub.Release(ctx, out))
	}
	return nil
}

func (m *StubModule) Bypassed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bypassed
}

func (m *StubModule) SetBypass(ctx context.Context, on bool) error {
	m.mu.Lock()
	m.bypassed = on
	m.mu.Unlock()
	m.Mark(on)
	return nil
}

func (m *StubModule) Close(ctx context.Context) error {
	m.Remove()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	if m.closed > 1 || m.in == nil {
		return nil
	}
	return errors.Join(m.sub.Release(ctx, m.in), m.sub.Release(ctx, m.out))
}

// Closed reports how many times Close was called.
func (m *StubModule) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// In returns the stub's input node, or nil while pending.
func (m *StubModule) In() routing.Port {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.in
}

// Out returns the stub's output node, or nil while pending.
func (m *StubModule) Out() routing.Port {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out
}
