package nested

import "github.com/specialistvlad/patchbay/internal/registry"

const (
	KindGroup    = "group"
	KindSplitter = "splitter"
)

// Provider registers the group and splitter kinds.
type Provider struct{}

func (Provider) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        KindGroup,
		Description: "Nested chain in a single branch.",
		Branches:    1,
		New:         newGroupModule,
	})
	r.Register(registry.Registration{
		Kind:        KindSplitter,
		Description: "Two parallel chains mixed by a crossfade.",
		Params: []registry.ParamSpec{
			registry.Number("crossfade", DefaultCrossfade, 0, 1, "0 sends everything to branch A, 1 to branch B"),
		},
		Branches: 2,
		New:      newSplitterModule,
	})
}
