package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/modgate/internal/ctxlog"
	"github.com/vk/modgate/internal/extract"
	"github.com/vk/modgate/internal/fsutil"
	"github.com/vk/modgate/internal/invoker"
	"github.com/vk/modgate/internal/sandbox"
)

// moduleExtension is the recognized source kind; everything else in the
// tree is ignored.
const moduleExtension = ".lua"

// Build walks dir recursively and runs the extract → compile → wrap pipeline
// on every module file, one at a time in enumeration order. Modules are
// keyed by file name minus extension; a duplicate name in a later
// subdirectory silently replaces the earlier entry. Only a failed walk
// returns an error — per-module failures are logged and leave an entry with
// an absent invoker.
func Build(ctx context.Context, dir string) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry scanning modules directory...", "path", dir)

	paths, err := fsutil.FindFilesByExtension(dir, moduleExtension)
	if err != nil {
		logger.Error("Failed to walk modules directory.", "path", dir, "error", err)
		return nil, err
	}
	if len(paths) == 0 {
		logger.Warn("No module files found in path.", "path", dir, "extension", moduleExtension)
	}

	reg := &Registry{entries: make(map[string]*Entry, len(paths))}
	for _, path := range paths {
		name := moduleName(path)
		if _, exists := reg.entries[name]; exists {
			logger.Debug("Duplicate module name, later entry replaces earlier.", "name", name, "path", path)
		}

		source, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read module file.", "path", path, "error", err)
			reg.entries[name] = &Entry{}
			continue
		}

		behavior, program := sandbox.Compile(ctx, name, extract.Scan(string(source)))
		reg.entries[name] = &Entry{
			Source:  program,
			Invoker: invoker.New(behavior),
		}
	}

	logger.Info("Registry built.", "modules", reg.Len())
	return reg, nil
}

// moduleName derives the registry key from a module's file name.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, moduleExtension)
}
