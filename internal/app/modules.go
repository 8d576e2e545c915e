package app

import (
	"github.com/specialistvlad/patchbay/internal/nested"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/modules/autopan"
	"github.com/specialistvlad/patchbay/modules/bitcrush"
	"github.com/specialistvlad/patchbay/modules/compressor"
	"github.com/specialistvlad/patchbay/modules/convolver"
	"github.com/specialistvlad/patchbay/modules/delay"
	"github.com/specialistvlad/patchbay/modules/distortion"
	"github.com/specialistvlad/patchbay/modules/external"
	"github.com/specialistvlad/patchbay/modules/filter"
	"github.com/specialistvlad/patchbay/modules/tremolo"
	"github.com/specialistvlad/patchbay/modules/utility"
)

// coreModules is the definitive list of all module kinds that are compiled
// into the patchbay binary.
var coreModules = []registry.Provider{
	&utility.Module{},
	&distortion.Module{},
	&delay.Module{},
	&filter.Module{},
	&compressor.Module{},
	&tremolo.Module{},
	&autopan.Module{},
	&bitcrush.Module{},
	&convolver.Module{},
	&external.Module{},
	nested.Provider{},
}
