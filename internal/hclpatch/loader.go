package hclpatch

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/fsutil"
	"github.com/specialistvlad/patchbay/internal/patch"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of patch.Loader.
type Loader struct{}

// NewLoader creates a new HCL patch loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks of a file.
type fileRoot struct {
	Patches []*patchBlock `hcl:"patch,block"`
	Remain  hcl.Body      `hcl:",remain"`
}

type patchBlock struct {
	Name    string         `hcl:"name,label"`
	Input   string         `hcl:"input,optional"`
	Modules []*moduleBlock `hcl:"module,block"`
}

type moduleBlock struct {
	Kind     string         `hcl:"kind,label"`
	Name     string         `hcl:"name,label"`
	Bypass   bool           `hcl:"bypass,optional"`
	Device   string         `hcl:"device,optional"`
	Params   hcl.Expression `hcl:"params,optional"`
	Branches []*branchBlock `hcl:"branch,block"`
}

type branchBlock struct {
	Modules []*moduleBlock `hcl:"module,block"`
}

// Extensions implements patch.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// Load parses every .hcl file under paths. It returns nil if no file
// declares a patch block.
func (l *Loader) Load(ctx context.Context, paths ...string) (*patch.Patch, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFiles(path, l.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		files = append(files, found...)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var found *patch.Patch
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Patches {
			if found != nil {
				return nil, fmt.Errorf("%w: %q and %q", patch.ErrMultiplePatches, found.Name, block.Name)
			}
			p, err := translatePatch(block)
			if err != nil {
				return nil, fmt.Errorf("failed to load patch from %s: %w", file, err)
			}
			found = p
		}
	}
	return found, nil
}

func translatePatch(b *patchBlock) (*patch.Patch, error) {
	stages, err := translateModules(b.Modules)
	if err != nil {
		return nil, err
	}
	return &patch.Patch{Name: b.Name, Input: b.Input, Stages: stages}, nil
}

func translateModules(blocks []*moduleBlock) ([]patch.Stage, error) {
	stages := make([]patch.Stage, 0, len(blocks))
	for _, b := range blocks {
		params, err := translateParams(b.Params)
		if err != nil {
			return nil, err
		}

		s := patch.Stage{
			Kind:   b.Kind,
			Name:   b.Name,
			Bypass: b.Bypass,
			Device: b.Device,
			Params: params,
		}
		for _, branch := range b.Branches {
			inner, err := translateModules(branch.Modules)
			if err != nil {
				return nil, err
			}
			s.Branches = append(s.Branches, inner)
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// translateParams evaluates a params object without variables or functions.
func translateParams(expr hcl.Expression) (map[string]cty.Value, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}

	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("%s: params must be an object: %w", expr.Range(), patch.ErrInvalid)
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("%s: params must be constant: %w", expr.Range(), patch.ErrInvalid)
	}

	params := make(map[string]cty.Value, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, val := it.Element()
		params[k.AsString()] = val
	}
	return params, nil
}
