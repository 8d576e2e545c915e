package patch

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/patchbay/internal/chain"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/nested"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Builder instantiates stages into chains.
type Builder struct {
	Registry  *registry.Registry
	Substrate routing.Substrate
	// OnError receives asynchronous failures of the built modules.
	OnError func(ctx context.Context, err error)
	// OnModule is called for every module after it joined its chain.
	OnModule func(m module.Module, parent *chain.Chain)
}

// Build appends the stages to c using reg to create the modules.
func Build(ctx context.Context, reg *registry.Registry, sub routing.Substrate, c *chain.Chain, stages []Stage) error {
	b := &Builder{Registry: reg, Substrate: sub}
	return b.Build(ctx, c, stages)
}

// Build appends the stages to c. Modules added before a failure stay in c.
func (b *Builder) Build(ctx context.Context, c *chain.Chain, stages []Stage) error {
	for i, s := range stages {
		if err := b.stage(ctx, c, s); err != nil {
			return fmt.Errorf("stage %d (%s %q): %w", i, s.Kind, s.Name, err)
		}
	}
	return nil
}

// BuildStage creates one module from s, nested stages included, and inserts
// it into c at position. When the module joined c but the chain failed to
// replan, both the module and the error are returned.
func (b *Builder) BuildStage(ctx context.Context, c *chain.Chain, s Stage, position int) (module.Module, error) {
	m, err := b.Registry.Build(ctx, registry.Env{
		Substrate: b.Substrate,
		Name:      s.Name,
		OnError:   b.OnError,
	}, s.Kind, s.Params)
	if err != nil {
		return nil, err
	}

	if err := b.configure(ctx, m, s); err != nil {
		return nil, errors.Join(err, m.Close(ctx))
	}
	addErr := c.AddModule(ctx, m, position)
	if _, _, member := c.Lookup(m.ID()); !member {
		return nil, errors.Join(addErr, m.Close(ctx))
	}
	ctxlog.FromContext(ctx).Debug("Stage built.", "chain", c.Name(), "module_id", m.ID(), "kind", s.Kind)

	// A module that joined the chain stays there even if replanning failed.
	if b.OnModule != nil {
		b.OnModule(m, c)
		if br, ok := m.(nested.Brancher); ok {
			b.announce(br)
		}
	}
	return m, addErr
}

func (b *Builder) stage(ctx context.Context, c *chain.Chain, s Stage) error {
	_, err := b.BuildStage(ctx, c, s, -1)
	return err
}

func (b *Builder) configure(ctx context.Context, m module.Module, s Stage) error {
	if s.Bypass {
		if err := m.SetBypass(ctx, true); err != nil {
			return err
		}
	}

	if s.Device != "" {
		dl, ok := m.(module.DeviceLoader)
		if !ok {
			return fmt.Errorf("%s modules cannot load a device", s.Kind)
		}
		if err := dl.LoadDevice(ctx, s.Device); err != nil {
			return err
		}
	}

	if len(s.Branches) == 0 {
		return nil
	}
	br, ok := m.(nested.Brancher)
	if !ok {
		return fmt.Errorf("%s modules have no branches", s.Kind)
	}
	children := br.Branches()
	if len(s.Branches) > len(children) {
		return fmt.Errorf("%d branches declared, %s modules have %d", len(s.Branches), s.Kind, len(children))
	}

	// Children are announced by BuildStage once the parent is in place.
	inner := &Builder{Registry: b.Registry, Substrate: b.Substrate, OnError: b.OnError}
	for i, stages := range s.Branches {
		if err := inner.Build(ctx, children[i], stages); err != nil {
			return fmt.Errorf("branch %d: %w", i, err)
		}
	}
	return nil
}

// announce reports every module below br to OnModule.
func (b *Builder) announce(br nested.Brancher) {
	for _, child := range br.Branches() {
		for _, m := range child.Modules() {
			b.OnModule(m, child)
			if inner, ok := m.(nested.Brancher); ok {
				b.announce(inner)
			}
		}
	}
}
