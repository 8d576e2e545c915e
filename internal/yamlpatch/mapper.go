package yamlpatch

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/patchbay/internal/patch"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// MapPatch converts the DTO into a patch, validating required fields.
func MapPatch(path string, yp YAMLPatch) (*patch.Patch, error) {
	if strings.TrimSpace(yp.Name) == "" {
		return nil, invalidField(path, "patch.name", "patch name is required")
	}
	stages, err := mapModules(path, "patch.modules", yp.Modules)
	if err != nil {
		return nil, err
	}
	return &patch.Patch{Name: yp.Name, Input: yp.Input, Stages: stages}, nil
}

func mapModules(path, prefix string, modules []YAMLModule) ([]patch.Stage, error) {
	stages := make([]patch.Stage, 0, len(modules))
	for i, m := range modules {
		field := fmt.Sprintf("%s[%d]", prefix, i)
		if strings.TrimSpace(m.Kind) == "" {
			return nil, invalidField(path, field+".kind", "module kind is required")
		}

		s := patch.Stage{
			Kind:   m.Kind,
			Name:   m.Name,
			Bypass: m.Bypass,
			Device: m.Device,
		}
		if s.Name == "" {
			s.Name = m.Kind
		}

		if len(m.Params) > 0 {
			s.Params = make(map[string]cty.Value, len(m.Params))
			for name, raw := range m.Params {
				v, err := toCty(raw)
				if err != nil {
					return nil, invalidField(path, field+".params."+name, err.Error())
				}
				s.Params[name] = v
			}
		}

		for b, branch := range m.Branches {
			inner, err := mapModules(path, fmt.Sprintf("%s.branches[%d]", field, b), branch)
			if err != nil {
				return nil, err
			}
			s.Branches = append(s.Branches, inner)
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// toCty converts a decoded YAML scalar to a cty value.
func toCty(raw any) (cty.Value, error) {
	switch raw.(type) {
	case int, int64, uint64, float64:
		return gocty.ToCtyValue(raw, cty.Number)
	case bool:
		return gocty.ToCtyValue(raw, cty.Bool)
	case string:
		return gocty.ToCtyValue(raw, cty.String)
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T", raw)
	}
}

func invalidField(path, field, msg string) error {
	return fmt.Errorf("%s: field %s: %s: %w", path, field, msg, patch.ErrInvalid)
}
