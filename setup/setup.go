// Package setup is the entry point called from a project's build script.
//
// A setup script declares its native modules in pyproject.toml and asks for
// the descriptors:
//
//	exts, err := setup.CreateExtensions(ctx, "setup.py", nil)
//
// A nil translate lets the CYTHONIZE environment variable decide, then falls
// back to translating only when a generated file is stale.
package setup

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/goplus/cyext/extension"
	"github.com/goplus/cyext/internal/build"
	"github.com/goplus/cyext/internal/env"
	"github.com/goplus/cyext/manifest"
	"github.com/goplus/cyext/pkgs/buildsys"
	"github.com/goplus/cyext/pkgs/compiler"
	"github.com/goplus/cyext/pkgs/pkgconfig"
)

type options struct {
	pkgConfig  pkgconfig.Querier
	translator buildsys.Translator
	compiler   compiler.Family
	logger     *log.Logger
}

// Option customizes CreateExtensions.
type Option func(*options)

// WithPkgConfig replaces the pkg-config subprocess.
func WithPkgConfig(q pkgconfig.Querier) Option {
	return func(o *options) { o.pkgConfig = q }
}

// WithTranslator replaces the cython subprocess.
func WithTranslator(t buildsys.Translator) Option {
	return func(o *options) { o.translator = t }
}

// WithCompiler selects the flag spelling. The default follows the host.
func WithCompiler(f compiler.Family) Option {
	return func(o *options) { o.compiler = f }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// CreateExtensions reads the pyproject.toml beside setupFile and returns one
// descriptor per declared extension, ordered by name. Generated files are
// refreshed first when translation is decided.
func CreateExtensions(ctx context.Context, setupFile string, translate *bool, opts ...Option) ([]*extension.Extension, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := env.ProjectDir(setupFile)
	if err != nil {
		return nil, err
	}
	path, err := env.ManifestPath(setupFile)
	if err != nil {
		return nil, err
	}
	exts, err := manifest.Read(path)
	if err != nil {
		return nil, err
	}

	b := build.NewBuilder(build.Options{
		Dir:        dir,
		Compiler:   o.compiler,
		PkgConfig:  o.pkgConfig,
		Translator: o.translator,
		Logger:     o.logger,
	})
	return b.Build(ctx, exts, translate)
}
