package patch

import (
	"github.com/specialistvlad/patchbay/internal/chain"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/nested"
)

// Describe renders the modules of c as stages, nested chains included.
func Describe(c *chain.Chain) []Stage {
	modules := c.Modules()
	stages := make([]Stage, 0, len(modules))
	for _, m := range modules {
		stages = append(stages, describe(m))
	}
	return stages
}

func describe(m module.Module) Stage {
	s := Stage{
		ID:     m.ID().String(),
		State:  m.State().String(),
		Kind:   m.Kind(),
		Name:   m.Name(),
		Bypass: m.Bypassed(),
	}
	if p, ok := m.(module.Parameterized); ok {
		if params := p.Params(); len(params) > 0 {
			s.Params = params
		}
	}
	if d, ok := m.(module.DeviceLoader); ok {
		s.Device = d.Device()
	}
	if br, ok := m.(nested.Brancher); ok {
		for _, child := range br.Branches() {
			s.Branches = append(s.Branches, Describe(child))
		}
	}
	return s
}
