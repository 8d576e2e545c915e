package effect

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/patchbay/internal/bypass"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/zclconf/go-cty/cty"
)

// Scale maps a user-facing parameter value to the node parameter value.
type Scale func(float64) float64

// ParamHook runs when a parameter changes, after any node binding was applied.
type ParamHook func(ctx context.Context, u *Unit, v cty.Value) error

type nodeDecl struct {
	name   string
	kind   routing.Kind
	label  string
	params routing.Params
}

type edgeDecl struct {
	from, to string
	param    string
}

type binding struct {
	node      string
	nodeParam string
	scale     Scale
}

// Builder declares a module's subgraph.
type Builder struct {
	kind string
	env  registry.Env

	nodes    []nodeDecl
	edges    []edgeDecl
	input    string
	output   string
	inputTo  []string
	toOutput []string
	bypassOK bool
	post     string
	bindings map[string][]binding
	hooks    map[string]ParamHook
	errs     []error
}

// NewBuilder starts a declaration for one module instance.
func NewBuilder(kind string, env registry.Env) *Builder {
	return &Builder{
		kind:     kind,
		env:      env,
		bindings: make(map[string][]binding),
		hooks:    make(map[string]ParamHook),
	}
}

func (b *Builder) has(name string) bool {
	for _, n := range b.nodes {
		if n.name == name {
			return true
		}
	}
	return false
}

// Node declares a substrate node. Its label is "<module name>.<name>".
func (b *Builder) Node(name string, kind routing.Kind, params routing.Params) *Builder {
	if b.has(name) {
		b.errs = append(b.errs, fmt.Errorf("node %q declared twice", name))
		return b
	}
	b.nodes = append(b.nodes, nodeDecl{name: name, kind: kind, label: b.env.Name + "." + name, params: params})
	return b
}

// Worklet declares a node running the named processor. The processor must
// already be loaded on the substrate.
func (b *Builder) Worklet(name, processor string, params routing.Params) *Builder {
	if b.has(name) {
		b.errs = append(b.errs, fmt.Errorf("node %q declared twice", name))
		return b
	}
	b.nodes = append(b.nodes, nodeDecl{name: name, kind: routing.KindWorklet, label: processor, params: params})
	return b
}

// Connect declares an internal audio edge.
func (b *Builder) Connect(from, to string) *Builder {
	b.edges = append(b.edges, edgeDecl{from: from, to: to})
	return b
}

// Modulate declares an edge from a node into a parameter of another node.
func (b *Builder) Modulate(from, to, param string) *Builder {
	b.edges = append(b.edges, edgeDecl{from: from, to: to, param: param})
	return b
}

// Ports names the module's input and output nodes.
func (b *Builder) Ports(input, output string) *Builder {
	b.input, b.output = input, output
	return b
}

// Bypass declares the nodes the input feeds and the nodes that feed the
// output while the module is active. Modules that never call it cannot be
// bypassed.
func (b *Builder) Bypass(inputConnectsTo, connectedToOutput []string) *Builder {
	b.inputTo, b.toOutput = inputConnectsTo, connectedToOutput
	b.bypassOK = true
	return b
}

// Delegate makes the module route through an externally supplied device,
// with post as the node that feeds the output.
func (b *Builder) Delegate(post string) *Builder {
	b.post = post
	return b
}

// Param binds a user parameter to a node parameter. A parameter may be bound
// to several nodes.
func (b *Builder) Param(name, node, nodeParam string, scale Scale) *Builder {
	b.bindings[name] = append(b.bindings[name], binding{node: node, nodeParam: nodeParam, scale: scale})
	return b
}

// OnParam registers a hook for a parameter.
func (b *Builder) OnParam(name string, hook ParamHook) *Builder {
	b.hooks[name] = hook
	return b
}

func (b *Builder) validate() error {
	errs := append([]error(nil), b.errs...)
	check := func(what, name string) {
		if !b.has(name) {
			errs = append(errs, fmt.Errorf("%s references undeclared node %q", what, name))
		}
	}

	if b.input == "" || b.output == "" {
		errs = append(errs, errors.New("input and output nodes must be declared"))
	} else {
		check("input", b.input)
		check("output", b.output)
	}
	for _, e := range b.edges {
		check("edge", e.from)
		check("edge", e.to)
	}
	for _, n := range b.inputTo {
		check("bypass", n)
	}
	for _, n := range b.toOutput {
		check("bypass", n)
	}
	if b.post != "" {
		check("delegate", b.post)
	}
	for name, bs := range b.bindings {
		if _, ok := registry.FindSpec(b.env.Specs, name); !ok {
			errs = append(errs, fmt.Errorf("parameter %q is not declared", name))
		}
		for _, bd := range bs {
			check("parameter "+name, bd.node)
		}
	}
	return errors.Join(errs...)
}

// Build creates the subgraph and returns a ready, active Unit.
func (b *Builder) Build(ctx context.Context) (*Unit, error) {
	u, err := b.assemble(ctx, module.NewLifecycle(b.env.ID, b.kind, b.env.Name))
	if err != nil {
		return nil, err
	}
	u.Resolve(ctx, u.nodes[b.input], u.nodes[b.output])
	return u, nil
}

// assemble creates and wires everything without resolving the lifecycle.
func (b *Builder) assemble(ctx context.Context, lc *module.Lifecycle) (*Unit, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s topology: %w", b.kind, err)
	}

	u := &Unit{
		Lifecycle: lc,
		sub:       b.env.Substrate,
		nodes:     make(map[string]routing.Port, len(b.nodes)),
		specs:     b.env.Specs,
		bindings:  b.bindings,
		hooks:     b.hooks,
		values:    make(map[string]cty.Value, len(b.env.Params)),
	}

	fail := func(err error) (*Unit, error) {
		return nil, errors.Join(err, u.release(ctx))
	}

	for _, n := range b.nodes {
		p, err := u.sub.CreateNode(ctx, n.kind, n.label, n.params)
		if err != nil {
			return fail(fmt.Errorf("failed to create node %q: %w", n.name, err))
		}
		u.nodes[n.name] = p
		u.order = append(u.order, n.name)
	}
	for _, e := range b.edges {
		var err error
		if e.param == "" {
			err = u.sub.Connect(ctx, u.nodes[e.from], u.nodes[e.to])
		} else {
			err = u.sub.ConnectParam(ctx, u.nodes[e.from], u.nodes[e.to], e.param)
		}
		if err != nil {
			return fail(err)
		}
	}

	in, out := u.nodes[b.input], u.nodes[b.output]
	switch {
	case b.post != "":
		dc, err := bypass.NewDelegate(u.sub, bypass.DelegateBinding{Input: in, Output: out, Post: u.nodes[b.post]})
		if err != nil {
			return fail(err)
		}
		u.delegate = dc
		u.switcher = dc
	case b.bypassOK:
		c, err := bypass.New(u.sub, bypass.Binding{
			Input:             in,
			Output:            out,
			InputConnectsTo:   u.lookup(b.inputTo),
			ConnectedToOutput: u.lookup(b.toOutput),
		})
		if err != nil {
			return fail(err)
		}
		u.switcher = c
	}
	if u.switcher != nil {
		if err := u.switcher.Apply(ctx); err != nil {
			return fail(err)
		}
	}

	for _, spec := range b.env.Specs {
		v, ok := b.env.Params[spec.Name]
		if !ok {
			v = spec.Default
		}
		if err := u.apply(ctx, spec.Name, v); err != nil {
			return fail(err)
		}
	}
	return u, nil
}
