package nested

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/specialistvlad/patchbay/internal/chain"
	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Brancher is implemented by modules that own nested chains.
type Brancher interface {
	Branches() []*chain.Chain
}

// Container is a module holding one child chain per branch.
type Container struct {
	*effect.Unit
	children []*chain.Chain
}

func tapName(i int) string    { return "tap_" + strconv.Itoa(i) }
func returnName(i int) string { return "return_" + strconv.Itoa(i) }

// newContainer builds a container with the given number of branches. declare
// may add parameter bindings to the builder.
func newContainer(ctx context.Context, kind string, env registry.Env, branches int, declare func(b *effect.Builder)) (*Container, error) {
	if branches < 1 {
		return nil, fmt.Errorf("%s needs at least one branch", kind)
	}

	b := effect.NewBuilder(kind, env).
		Node("in", routing.KindGain, routing.Params{"gain": 1}).
		Node("out", routing.KindGain, routing.Params{"gain": 1})
	taps := make([]string, branches)
	returns := make([]string, branches)
	for i := range taps {
		taps[i], returns[i] = tapName(i), returnName(i)
		b.Node(taps[i], routing.KindGain, routing.Params{"gain": 1})
		b.Node(returns[i], routing.KindGain, routing.Params{"gain": 1})
	}
	b.Ports("in", "out").Bypass(taps, returns)
	if declare != nil {
		declare(b)
	}

	u, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}

	c := &Container{Unit: u}
	for i := 0; i < branches; i++ {
		opts := []chain.Option{chain.WithName(fmt.Sprintf("%s/%d", env.ID, i))}
		if env.OnError != nil {
			opts = append(opts, chain.WithErrorHandler(env.OnError))
		}
		child := chain.New(env.Substrate, opts...)
		c.children = append(c.children, child)

		if err := child.SetExternalInput(ctx, u.Node(taps[i])); err != nil {
			return nil, errors.Join(err, c.Close(ctx))
		}
		if err := child.SetExternalOutput(ctx, u.Node(returns[i])); err != nil {
			return nil, errors.Join(err, c.Close(ctx))
		}
	}
	return c, nil
}

// Branches returns the child chains in branch order.
func (c *Container) Branches() []*chain.Chain {
	return append([]*chain.Chain(nil), c.children...)
}

// Branch returns one child chain.
func (c *Container) Branch(i int) (*chain.Chain, bool) {
	if i < 0 || i >= len(c.children) {
		return nil, false
	}
	return c.children[i], true
}

// Tap returns the tap node of branch i.
func (c *Container) Tap(i int) routing.Port {
	return c.Node(tapName(i))
}

// Return returns the return node of branch i.
func (c *Container) Return(i int) routing.Port {
	return c.Node(returnName(i))
}

// Close closes every child chain, then releases the container's own nodes.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for _, child := range c.children {
		if err := child.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, c.Unit.Close(ctx))
	return errors.Join(errs...)
}
