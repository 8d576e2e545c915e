package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Modules writes every registered kind with its parameters to w.
func (a *App) Modules(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, kind := range a.registry.Kinds() {
		reg, _ := a.registry.Lookup(kind)
		header := kind
		if reg.Branches > 0 {
			header += fmt.Sprintf(" (%d branches)", reg.Branches)
		}
		fmt.Fprintf(tw, "%s\t%s\n", header, reg.Description)
		for _, spec := range reg.Params {
			fmt.Fprintf(tw, "  %s\t%s\n", describeParam(spec), spec.Description)
		}
	}
	return tw.Flush()
}

func describeParam(spec registry.ParamSpec) string {
	switch spec.Type {
	case cty.Number:
		out := fmt.Sprintf("%s number = %g", spec.Name, registry.Float(spec.Default))
		if spec.HasRange {
			out += fmt.Sprintf(" [%g, %g]", spec.Min, spec.Max)
		}
		return out
	case cty.Bool:
		return fmt.Sprintf("%s bool = %t", spec.Name, spec.Default.True())
	case cty.String:
		return fmt.Sprintf("%s string = %q", spec.Name, spec.Default.AsString())
	default:
		return spec.Name + " any"
	}
}
