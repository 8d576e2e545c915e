package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Validate checks every registration's parameter declarations: defaults must
// have the declared type and lie inside the declared range.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, kind := range r.Kinds() {
		reg := r.kinds[kind]
		seen := make(map[string]struct{}, len(reg.Params))

		for _, spec := range reg.Params {
			if _, dup := seen[spec.Name]; dup {
				errs = append(errs, fmt.Sprintf("module '%s': parameter '%s' declared twice", kind, spec.Name))
				continue
			}
			seen[spec.Name] = struct{}{}

			if spec.Type == cty.DynamicPseudoType {
				logger.Warn("Module parameter has no type, values will not be checked.", "kind", kind, "param", spec.Name)
				continue
			}
			if spec.Default.IsNull() || !spec.Default.Type().Equals(spec.Type) {
				errs = append(errs, fmt.Sprintf("module '%s', parameter '%s': default must be a %s", kind, spec.Name, spec.Type.FriendlyName()))
				continue
			}
			if spec.Type == cty.Number && spec.HasRange {
				if spec.Min > spec.Max {
					errs = append(errs, fmt.Sprintf("module '%s', parameter '%s': min %g exceeds max %g", kind, spec.Name, spec.Min, spec.Max))
					continue
				}
				def := numberVal(spec.Default)
				if def.Cmp(big.NewFloat(spec.Min)) < 0 || def.Cmp(big.NewFloat(spec.Max)) > 0 {
					errs = append(errs, fmt.Sprintf("module '%s', parameter '%s': default %s outside [%g, %g]", kind, spec.Name, def.Text('g', -1), spec.Min, spec.Max))
				}
			}
		}
		if reg.Branches < 0 {
			errs = append(errs, fmt.Sprintf("module '%s': negative branch count", kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
