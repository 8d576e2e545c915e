package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/zclconf/go-cty/cty"
)

// ErrUnknownKind is returned when building a kind nobody registered.
var ErrUnknownKind = errors.New("unknown module kind")

// Provider is implemented by every module package.
type Provider interface {
	Register(r *Registry)
}

// Env is everything a factory needs to build one module instance.
type Env struct {
	Substrate routing.Substrate
	ID        module.ID
	Name      string
	// Params holds one converted value per declared parameter.
	Params map[string]cty.Value
	// Specs are the kind's parameter declarations.
	Specs []ParamSpec
	// OnError receives asynchronous failures of the module, such as a nested
	// chain failing to replan. It may be nil.
	OnError func(ctx context.Context, err error)
}

// Factory builds a module instance.
type Factory func(ctx context.Context, env Env) (module.Module, error)

// Registration declares a module kind.
type Registration struct {
	Kind        string
	Description string
	Params      []ParamSpec
	// Branches is the number of nested chains the kind owns.
	Branches int
	New      Factory
}

// Registry holds all registered kinds for a single application instance.
type Registry struct {
	kinds map[string]*Registration
}

// New creates an empty registry and registers every provider.
func New(providers ...Provider) *Registry {
	r := &Registry{kinds: make(map[string]*Registration)}
	for _, p := range providers {
		p.Register(r)
	}
	return r
}

// Register adds a kind. It panics if the kind is already registered.
func (r *Registry) Register(reg Registration) {
	if reg.Kind == "" || reg.New == nil {
		panic("module registration requires a kind and a factory")
	}
	if _, exists := r.kinds[reg.Kind]; exists {
		panic(fmt.Sprintf("module kind '%s' already registered", reg.Kind))
	}
	slog.Debug("Registering module kind.", "kind", reg.Kind, "params", len(reg.Params))
	r.kinds[reg.Kind] = &reg
}

// Lookup returns the registration for kind.
func (r *Registry) Lookup(kind string) (*Registration, bool) {
	reg, ok := r.kinds[kind]
	return reg, ok
}

// Kinds returns every registered kind in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds a module of the given kind. Missing parameters take their
// defaults; supplied ones are converted and checked.
func (r *Registry) New(ctx context.Context, sub routing.Substrate, kind, name string, params map[string]cty.Value) (module.Module, error) {
	return r.Build(ctx, Env{Substrate: sub, Name: name}, kind, params)
}

// Build is New with a caller-supplied environment. ID is generated when
// empty; Params and Specs are always filled in by the registry.
func (r *Registry) Build(ctx context.Context, env Env, kind string, params map[string]cty.Value) (module.Module, error) {
	reg, ok := r.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	resolved, err := reg.resolve(params)
	if err != nil {
		return nil, err
	}
	if env.Name == "" {
		env.Name = kind
	}
	if env.ID == "" {
		env.ID = module.NewID()
	}
	env.Params = resolved
	env.Specs = reg.Params

	m, err := reg.New(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s module %q: %w", kind, env.Name, err)
	}
	return m, nil
}

func (reg *Registration) resolve(params map[string]cty.Value) (map[string]cty.Value, error) {
	resolved := make(map[string]cty.Value, len(reg.Params))
	for name := range params {
		if _, ok := reg.Spec(name); !ok {
			return nil, &ParamError{Kind: reg.Kind, Param: name, Err: ErrUnknownParam}
		}
	}
	for _, spec := range reg.Params {
		v, ok := params[spec.Name]
		if !ok || v.IsNull() {
			resolved[spec.Name] = spec.Default
			continue
		}
		coerced, err := spec.Coerce(v)
		if err != nil {
			return nil, &ParamError{Kind: reg.Kind, Param: spec.Name, Err: err}
		}
		resolved[spec.Name] = coerced
	}
	return resolved, nil
}

// Spec returns the declaration of a parameter.
func (reg *Registration) Spec(name string) (ParamSpec, bool) {
	return FindSpec(reg.Params, name)
}
