package patch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/patchbay/internal/chain"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/nested"
	"github.com/specialistvlad/patchbay/internal/patch"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/modules/autopan"
	"github.com/specialistvlad/patchbay/modules/delay"
	"github.com/specialistvlad/patchbay/modules/distortion"
	"github.com/specialistvlad/patchbay/modules/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func newRegistry() *registry.Registry {
	return registry.New(&utility.Module{}, &distortion.Module{}, &delay.Module{}, &autopan.Module{}, nested.Provider{})
}

func newRoot(t *testing.T, sub *memroute.Substrate) *chain.Chain {
	t.Helper()
	ctx := context.Background()
	src, err := sub.CreateNode(ctx, "source", "mic", nil)
	require.NoError(t, err)
	dst, err := sub.CreateNode(ctx, "destination", "speakers", nil)
	require.NoError(t, err)

	c := chain.New(sub)
	require.NoError(t, c.SetExternalInput(ctx, src))
	require.NoError(t, c.SetExternalOutput(ctx, dst))
	return c
}

func demoStages() []patch.Stage {
	return []patch.Stage{
		{Kind: "distortion", Name: "drive", Params: map[string]cty.Value{"amount": cty.NumberIntVal(250)}},
		{
			Kind:   "splitter",
			Name:   "split",
			Params: map[string]cty.Value{"crossfade": cty.NumberFloatVal(0.25)},
			Branches: [][]patch.Stage{
				{{Kind: "delay", Name: "slap", Params: map[string]cty.Value{"time": cty.NumberFloatVal(0.12)}}},
				{{Kind: "autopan", Name: "wobble", Bypass: true}},
			},
		},
	}
}

func TestBuild_NestedTree(t *testing.T) {
	ctx := context.Background()
	sub := memroute.New()
	root := newRoot(t, sub)

	var seen []string
	b := &patch.Builder{
		Registry:  newRegistry(),
		Substrate: sub,
		OnModule: func(m module.Module, parent *chain.Chain) {
			seen = append(seen, m.Name())
		},
	}
	require.NoError(t, b.Build(ctx, root, demoStages()))

	assert.ElementsMatch(t, []string{"drive", "split", "slap", "wobble"}, seen)
	require.Equal(t, 2, root.Len())

	stages := patch.Describe(root)
	require.Len(t, stages, 2)
	assert.Equal(t, "distortion", stages[0].Kind)
	assert.True(t, stages[0].Params["amount"].Equals(cty.NumberIntVal(250)).True())
	require.Len(t, stages[1].Branches, 2)
	assert.Equal(t, "slap", stages[1].Branches[0][0].Name)
	assert.True(t, stages[1].Branches[1][0].Bypass)
	assert.Equal(t, "bypassed", stages[1].Branches[1][0].State)
	assert.Equal(t, 4, patch.Count(stages))
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		stages []patch.Stage
		want   string
	}{
		{
			name:   "unknown kind",
			stages: []patch.Stage{{Kind: "theremin", Name: "x"}},
			want:   `stage 0 (theremin "x"): unknown module kind`,
		},
		{
			name:   "device on a plain module",
			stages: []patch.Stage{{Kind: "utility", Name: "u", Device: "fuzz.json"}},
			want:   "utility modules cannot load a device",
		},
		{
			name:   "branches on a leaf",
			stages: []patch.Stage{{Kind: "utility", Name: "u", Branches: [][]patch.Stage{{}}}},
			want:   "utility modules have no branches",
		},
		{
			name:   "too many branches",
			stages: []patch.Stage{{Kind: "group", Name: "g", Branches: [][]patch.Stage{{}, {}}}},
			want:   "2 branches declared, group modules have 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := memroute.New()
			root := newRoot(t, sub)

			err := patch.Build(ctx, newRegistry(), sub, root, tc.stages)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Equal(t, 0, root.Len())
			assert.Equal(t, 2, sub.Live(), "failed modules release their nodes")
		})
	}
}

func TestStage_JSON(t *testing.T) {
	in := patch.Stage{
		Kind:   "splitter",
		Name:   "split",
		Params: map[string]cty.Value{"crossfade": cty.NumberFloatVal(0.25), "label": cty.StringVal("x")},
		Branches: [][]patch.Stage{
			{{Kind: "autopan", Name: "wobble", Bypass: true}},
		},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "splitter", "name": "split", "bypass": false,
		"params": {"crossfade": 0.25, "label": "x"},
		"branches": [[{"kind": "autopan", "name": "wobble", "bypass": true}]]
	}`, string(data))

	var out patch.Stage
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "split", out.Name)
	assert.True(t, out.Params["crossfade"].Equals(cty.NumberFloatVal(0.25)).True())
	assert.Equal(t, cty.String, out.Params["label"].Type())
	assert.True(t, out.Branches[0][0].Bypass)
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, patch.Fprint(&buf, demoStages()))
	assert.Equal(t, `0. distortion "drive" {amount=250}
1. splitter "split" {crossfade=0.25}
  branch 0:
    0. delay "slap" {time=0.12}
  branch 1:
    0. autopan "wobble" [bypassed]
`, buf.String())
}

type fakeLoader struct {
	exts  []string
	patch *patch.Patch
	calls int
}

func (f *fakeLoader) Extensions() []string { return f.exts }

func (f *fakeLoader) Load(ctx context.Context, paths ...string) (*patch.Patch, error) {
	f.calls++
	return f.patch, nil
}

func TestLoaders(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "demo.hcl")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, nil, 0644))

	t.Run("single patch", func(t *testing.T) {
		hcl := &fakeLoader{exts: []string{".hcl"}, patch: &patch.Patch{Name: "demo"}}
		yml := &fakeLoader{exts: []string{".yaml", ".yml"}}
		p, err := patch.Loaders{hcl, yml}.Load(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, "demo", p.Name)
		assert.Equal(t, 1, yml.calls)
	})

	t.Run("two patches", func(t *testing.T) {
		_, err := patch.Loaders{
			&fakeLoader{exts: []string{".hcl"}, patch: &patch.Patch{Name: "a"}},
			&fakeLoader{exts: []string{".yaml"}, patch: &patch.Patch{Name: "b"}},
		}.Load(ctx, dir)
		assert.ErrorIs(t, err, patch.ErrMultiplePatches)
	})

	t.Run("no patch", func(t *testing.T) {
		_, err := patch.Loaders{&fakeLoader{exts: []string{".hcl"}}}.Load(ctx, dir)
		assert.ErrorIs(t, err, patch.ErrNoPatch)
	})

	t.Run("unsupported file", func(t *testing.T) {
		_, err := patch.Loaders{&fakeLoader{exts: []string{".hcl"}}}.Load(ctx, other)
		assert.ErrorIs(t, err, patch.ErrUnsupportedFile)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := patch.Loaders{&fakeLoader{exts: []string{".hcl"}}}.Load(ctx, filepath.Join(dir, "nope"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
