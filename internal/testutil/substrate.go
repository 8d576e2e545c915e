package testutil

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/stretchr/testify/mock"
)

// Port is a bare routing.Port for tests that do not need a real substrate.
type Port struct {
	Name string
	K    routing.Kind
}

func (p *Port) ID() string         { return p.Name }
func (p *Port) Kind() routing.Kind { return p.K }
func (p *Port) Label() string      { return p.Name }

// NewPort returns a gain-kind Port with the given ID.
func NewPort(id string) *Port {
	return &Port{Name: id, K: routing.KindGain}
}

// MockSubstrate is a testify mock of routing.Substrate, used to script
// substrate failures.
type MockSubstrate struct {
	mock.Mock
}

func (m *MockSubstrate) CreateNode(ctx context.Context, kind routing.Kind, label string, params routing.Params) (routing.Port, error) {
	args := m.Called(ctx, kind, label, params)
	port, _ := args.Get(0).(routing.Port)
	return port, args.Error(1)
}

func (m *MockSubstrate) Connect(ctx context.Context, src, dst routing.Port) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *MockSubstrate) ConnectParam(ctx context.Context, src, dst routing.Port, param string) error {
	return m.Called(ctx, src, dst, param).Error(0)
}

func (m *MockSubstrate) DisconnectAll(ctx context.Context, port routing.Port) error {
	return m.Called(ctx, port).Error(0)
}

func (m *MockSubstrate) SetParam(ctx context.Context, port routing.Port, name string, value float64) error {
	return m.Called(ctx, port, name, value).Error(0)
}

func (m *MockSubstrate) LoadProcessor(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockSubstrate) Release(ctx context.Context, port routing.Port) error {
	return m.Called(ctx, port).Error(0)
}

func (m *MockSubstrate) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
