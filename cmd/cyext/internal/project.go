package internal

import (
	"fmt"

	"github.com/goplus/cyext/internal/build"
	"github.com/goplus/cyext/internal/env"
	"github.com/goplus/cyext/manifest"
	"github.com/goplus/cyext/pkgs/compiler"
	"github.com/goplus/cyext/pkgs/envcfg"
)

const defaultSetupFile = "setup.py"

// project is a manifest loaded next to a setup script.
type project struct {
	exts    map[string]*manifest.Options
	builder *build.Builder
}

func loadProject(setupFile, compilerName string) (*project, error) {
	family, err := compiler.Parse(compilerName)
	if err != nil {
		return nil, err
	}

	dir, err := env.ProjectDir(setupFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project dir: %w", err)
	}
	path, err := env.ManifestPath(setupFile)
	if err != nil {
		return nil, err
	}
	exts, err := manifest.Read(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("manifest loaded", "path", path, "extensions", len(exts))

	return &project{
		exts: exts,
		builder: build.NewBuilder(build.Options{
			Dir:      dir,
			Compiler: family,
			Logger:   logger,
		}),
	}, nil
}

// parseTranslate maps "auto" to nil and other values through the boolean
// parser used for CYTHONIZE.
func parseTranslate(s string) (*bool, error) {
	if s == "" || s == "auto" {
		return nil, nil
	}
	v, err := envcfg.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("--translate: %w", err)
	}
	return &v, nil
}
