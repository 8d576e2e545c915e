package patch

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Patch is an initial chain tree.
type Patch struct {
	Name string
	// Input is the label of the source the root chain listens to.
	Input  string
	Stages []Stage
}

// Stage is a single module in a chain.
type Stage struct {
	// ID and State are only set on stages produced by Describe.
	ID    string
	State string

	Kind     string
	Name     string
	Bypass   bool
	Params   map[string]cty.Value
	Device   string
	Branches [][]Stage
}

type stageJSON struct {
	ID       string                             `json:"id,omitempty"`
	State    string                             `json:"state,omitempty"`
	Kind     string                             `json:"kind"`
	Name     string                             `json:"name"`
	Bypass   bool                               `json:"bypass"`
	Params   map[string]ctyjson.SimpleJSONValue `json:"params,omitempty"`
	Device   string                             `json:"device,omitempty"`
	Branches [][]Stage                          `json:"branches,omitempty"`
}

// MarshalJSON renders parameter values as plain JSON values.
func (s Stage) MarshalJSON() ([]byte, error) {
	out := stageJSON{
		ID:       s.ID,
		State:    s.State,
		Kind:     s.Kind,
		Name:     s.Name,
		Bypass:   s.Bypass,
		Device:   s.Device,
		Branches: s.Branches,
	}
	if len(s.Params) > 0 {
		out.Params = make(map[string]ctyjson.SimpleJSONValue, len(s.Params))
		for k, v := range s.Params {
			out.Params[k] = ctyjson.SimpleJSONValue{Value: v}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON infers parameter types from the JSON values.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var in stageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Stage{
		ID:       in.ID,
		State:    in.State,
		Kind:     in.Kind,
		Name:     in.Name,
		Bypass:   in.Bypass,
		Device:   in.Device,
		Branches: in.Branches,
	}
	if len(in.Params) > 0 {
		s.Params = make(map[string]cty.Value, len(in.Params))
		for k, v := range in.Params {
			s.Params[k] = v.Value
		}
	}
	return nil
}

// Count returns the number of stages in the tree, nested ones included.
func Count(stages []Stage) int {
	n := len(stages)
	for _, s := range stages {
		for _, b := range s.Branches {
			n += Count(b)
		}
	}
	return n
}

// Fprint writes an indented outline of the stages to w.
func Fprint(w io.Writer, stages []Stage) error {
	return fprint(w, stages, 0)
}

func fprint(w io.Writer, stages []Stage, depth int) error {
	indent := strings.Repeat("  ", depth)
	for i, s := range stages {
		line := fmt.Sprintf("%s%d. %s %q", indent, i, s.Kind, s.Name)
		if s.Bypass {
			line += " [bypassed]"
		}
		if s.State == module.StatePending.String() {
			line += " [pending]"
		}
		if s.Device != "" {
			line += " device=" + s.Device
		}
		if len(s.Params) > 0 {
			line += " " + formatParams(s.Params)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for b, branch := range s.Branches {
			if _, err := fmt.Fprintf(w, "%s  branch %d:\n", indent, b); err != nil {
				return err
			}
			if err := fprint(w, branch, depth+2); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatParams(params map[string]cty.Value) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(params[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func formatValue(v cty.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case !v.IsKnown():
		return "?"
	case v.Type() == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case v.Type() == cty.Bool:
		return fmt.Sprint(v.True())
	case v.Type() == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	default:
		return v.GoString()
	}
}
