package compressor

import (
	"context"

	"github.com/specialistvlad/patchbay/internal/effect"
	"github.com/specialistvlad/patchbay/internal/module"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
)

// Kind is the registry kind of this module.
const Kind = "compressor"

// Module implements the registry.Provider interface for this package.
type Module struct{}

// New builds a dynamics compressor followed by a makeup gain.
func New(ctx context.Context, env registry.Env) (module.Module, error) {
	return effect.NewBuilder(Kind, env).
		Node("compressor", routing.KindCompressor, nil).
		Node("makeup", routing.KindGain, nil).
		Connect("compressor", "makeup").
		Ports("compressor", "makeup").
		Param("threshold", "compressor", "threshold", nil).
		Param("knee", "compressor", "knee", nil).
		Param("ratio", "compressor", "ratio", nil).
		Param("attack", "compressor", "attack", nil).
		Param("release", "compressor", "release", nil).
		Param("makeup", "makeup", "gain", nil).
		Build(ctx)
}

// Register registers the module kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Registration{
		Kind:        Kind,
		Description: "Dynamics compressor with makeup gain.",
		Params: []registry.ParamSpec{
			registry.Number("threshold", -24, -100, 0, "dB"),
			registry.Number("knee", 30, 0, 40, "dB"),
			registry.Number("ratio", 12, 1, 20, "compression ratio"),
			registry.Number("attack", 0.003, 0, 1, "seconds"),
			registry.Number("release", 0.25, 0, 1, "seconds"),
			registry.Number("makeup", 1, 0, 3, "linear output gain"),
		},
		New: New,
	})
}
