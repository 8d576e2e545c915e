package yamlpatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/fsutil"
	"github.com/specialistvlad/patchbay/internal/patch"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of patch.Loader.
type Loader struct{}

// NewLoader creates a new YAML patch loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements patch.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Load decodes every YAML file under paths. Files without a patch key are
// skipped.
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
	logger.Debug("Discovered YAML files.", "count", len(files))

	var found *patch.Patch
	for _, file := range files {
		dto, err := decodeFile(file)
		if err != nil {
			return nil, err
		}
		if dto.Patch == nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q and %q", patch.ErrMultiplePatches, found.Name, dto.Patch.Name)
		}
		p, err := MapPatch(file, *dto.Patch)
		if err != nil {
			return nil, err
		}
		found = p
	}
	return found, nil
}

func decodeFile(path string) (*YAMLFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}

	var dto YAMLFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return &dto, nil
}
