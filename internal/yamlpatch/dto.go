package yamlpatch

// YAMLFile is the top level of a patch file.
type YAMLFile struct {
	Patch *YAMLPatch `yaml:"patch"`
}

type YAMLPatch struct {
	Name    string       `yaml:"name"`
	Input   string       `yaml:"input"`
	Modules []YAMLModule `yaml:"modules"`
}

type YAMLModule struct {
	Kind     string         `yaml:"kind"`
	Name     string         `yaml:"name"`
	Bypass   bool           `yaml:"bypass"`
	Params   map[string]any `yaml:"params"`
	Device   string         `yaml:"device"`
	Branches [][]YAMLModule `yaml:"branches"`
}
