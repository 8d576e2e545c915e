package nested

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
)

// Group is a container with a single branch.
type Group struct {
	*Container
}

// NewGroup builds a group.
func NewGroup(ctx context.Context, env registry.Env) (*Group, error) {
	c, err := newContainer(ctx, KindGroup, env, 1, nil)
	if err != nil {
		return nil, err
	}
	return &Group{Container: c}, nil
}

func newGroupModule(ctx context.Context, env registry.Env) (module.Module, error) {
	return NewGroup(ctx, env)
}
