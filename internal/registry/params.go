package registry

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

var (
	// ErrUnknownParam is returned for parameters a kind does not declare.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrOutOfRange is returned for numbers outside a parameter's range.
	ErrOutOfRange = errors.New("value out of range")
)

// ParamError describes a parameter that could not be applied.
type ParamError struct {
	Kind  string
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("module %s, parameter %q: %v", e.Kind, e.Param, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// ParamSpec declares one user-facing parameter.
type ParamSpec struct {
	Name        string
	Type        cty.Type
	Default     cty.Value
	Description string
	// Min and Max bound numeric parameters when HasRange is set.
	Min, Max float64
	HasRange bool
}

// Number declares a numeric parameter bounded by [min, max].
func Number(name string, def, min, max float64, description string) ParamSpec {
	return ParamSpec{
		Name:        name,
		Type:        cty.Number,
		Default:     cty.NumberFloatVal(def),
		Description: description,
		Min:         min,
		Max:         max,
		HasRange:    true,
	}
}

// Bool declares a boolean parameter.
func Bool(name string, def bool, description string) ParamSpec {
	return ParamSpec{Name: name, Type: cty.Bool, Default: cty.BoolVal(def), Description: description}
}

// String declares a string parameter.
func String(name, def, description string) ParamSpec {
	return ParamSpec{Name: name, Type: cty.String, Default: cty.StringVal(def), Description: description}
}

// Coerce converts v to the declared type and checks its range.
func (s ParamSpec) Coerce(v cty.Value) (cty.Value, error) {
	converted, err := convert.Convert(v, s.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("expected %s: %w", s.Type.FriendlyName(), err)
	}
	if !converted.IsKnown() || converted.IsNull() {
		return cty.NilVal, fmt.Errorf("expected a known %s value", s.Type.FriendlyName())
	}
	if s.Type == cty.Number && s.HasRange {
		f, _ := converted.AsBigFloat().Float64()
		if f < s.Min || f > s.Max {
			return cty.NilVal, fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, f, s.Min, s.Max)
		}
	}
	return converted, nil
}

// FindSpec looks a parameter up by name.
func FindSpec(specs []ParamSpec, name string) (ParamSpec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// Float returns a number value as float64, or 0 for anything else.
func Float(v cty.Value) float64 {
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.Number {
		return 0
	}
	f, _ := v.AsBigFloat().Float64()
	return f
}

// Float reads a numeric parameter from the environment.
func (e Env) Float(name string) float64 {
	return Float(e.Params[name])
}

// Bool reads a boolean parameter from the environment.
func (e Env) Bool(name string) bool {
	v, ok := e.Params[name]
	if !ok || v.IsNull() || v.Type() != cty.Bool {
		return false
	}
	return v.True()
}

// String reads a string parameter from the environment.
func (e Env) String(name string) string {
	v, ok := e.Params[name]
	if !ok || v.IsNull() || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}

// numberVal is used by Validate to compare defaults without float rounding.
func numberVal(v cty.Value) *big.Float {
	return v.AsBigFloat()
}
