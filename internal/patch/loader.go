package patch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
)

var (
	// ErrNoPatch is returned when none of the given paths declares a patch.
	ErrNoPatch = errors.New("no patch found")
	// ErrMultiplePatches is returned when more than one patch is declared.
	ErrMultiplePatches = errors.New("more than one patch declared")
	// ErrUnsupportedFile is returned for a file no loader understands.
	ErrUnsupportedFile = errors.New("unsupported patch file")
	// ErrInvalid is wrapped by loaders for structurally invalid patches.
	ErrInvalid = errors.New("invalid patch")
)

// Loader is the interface for a format-specific patch loader.
type Loader interface {
	// Extensions lists the file extensions the loader reads, dot included.
	Extensions() []string
	// Load reads every matching file under paths. It returns nil without an
	// error when no file declares a patch.
	Load(ctx context.Context, paths ...string) (*Patch, error)
}

// Loaders dispatches to the loader responsible for each file extension.
type Loaders []Loader

// Load runs every loader over paths and returns the single patch found.
func (ls Loaders) Load(ctx context.Context, paths ...string) (*Patch, error) {
	logger := ctxlog.FromContext(ctx)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() && ls.loaderFor(path) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
		}
	}

	var found *Patch
	for _, l := range ls {
		p, err := l.Load(ctx, paths...)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q and %q", ErrMultiplePatches, found.Name, p.Name)
		}
		found = p
	}
	if found == nil {
		return nil, ErrNoPatch
	}

	logger.Debug("Patch loaded.", "patch", found.Name, "stages", Count(found.Stages))
	return found, nil
}

// Extensions returns the extensions of all loaders.
func (ls Loaders) Extensions() []string {
	var exts []string
	for _, l := range ls {
		exts = append(exts, l.Extensions()...)
	}
	return exts
}

func (ls Loaders) loaderFor(path string) Loader {
	ext := filepath.Ext(path)
	for _, l := range ls {
		for _, e := range l.Extensions() {
			if e == ext {
				return l
			}
		}
	}
	return nil
}
