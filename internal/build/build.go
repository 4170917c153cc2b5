package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/goplus/cyext/extension"
	"github.com/goplus/cyext/internal/build/lockedfile"
	"github.com/goplus/cyext/manifest"
	"github.com/goplus/cyext/pkgs/buildsys"
	"github.com/goplus/cyext/pkgs/buildsys/cython"
	"github.com/goplus/cyext/pkgs/compiler"
	"github.com/goplus/cyext/pkgs/envcfg"
	"github.com/goplus/cyext/pkgs/pkgconfig"
)

// lockFile serializes translation runs of one project across processes.
var lockFile = filepath.Join("build", ".cyext.lock")

// Options configures a Builder. Zero values select the defaults.
type Options struct {
	// Dir is the project directory; relative sources are resolved against it.
	Dir        string
	Compiler   compiler.Family
	PkgConfig  pkgconfig.Querier
	Translator buildsys.Translator
	Env        *envcfg.Source
	Logger     *log.Logger
}

// Builder turns manifest options into extension descriptors.
type Builder struct {
	dir        string
	compiler   compiler.Family
	pkgConfig  pkgconfig.Querier
	translator buildsys.Translator
	env        *envcfg.Source
	logger     *log.Logger
}

func NewBuilder(opts Options) *Builder {
	b := &Builder{
		dir:        opts.Dir,
		compiler:   opts.Compiler,
		pkgConfig:  opts.PkgConfig,
		translator: opts.Translator,
		env:        opts.Env,
		logger:     opts.Logger,
	}
	if b.dir == "" {
		b.dir = "."
	}
	if b.compiler == "" {
		b.compiler = compiler.Default()
	}
	if b.logger == nil {
		b.logger = log.Default()
	}
	if b.pkgConfig == nil {
		tool := pkgconfig.New("")
		tool.SetLogger(b.logger)
		b.pkgConfig = tool
	}
	if b.translator == nil {
		b.translator = cython.New("")
	}
	if b.env == nil {
		b.env = envcfg.NewSource()
	}
	return b
}

// Decide reports whether translation must run. CYTHONIZE wins over the
// caller's translate flag, which wins over the staleness check. A single
// stale file makes every extension translate again.
func (b *Builder) Decide(exts map[string]*manifest.Options, translate *bool) (bool, error) {
	decision, err := envcfg.Resolve(
		b.env.Layer(envcfg.Translate),
		envcfg.Value(translate),
		envcfg.Computed(func() (bool, error) { return b.stale(exts) }),
	)
	if err != nil {
		return false, err
	}
	b.logger.Debug("translation decision", "translate", decision)
	return decision, nil
}

// Build completes every extension, builds its descriptor and, when
// translation is decided, regenerates and stamps all intermediates.
// exts is modified in place.
func (b *Builder) Build(ctx context.Context, exts map[string]*manifest.Options, translate *bool) ([]*extension.Extension, error) {
	decision, err := b.Decide(exts, translate)
	if err != nil {
		return nil, err
	}
	profile, err := b.env.Bool(envcfg.Profile, false)
	if err != nil {
		return nil, err
	}
	debug, err := b.env.Bool(envcfg.Debug, false)
	if err != nil {
		return nil, err
	}

	names := sortedNames(exts)
	results := make([]*extension.Extension, 0, len(names))
	for _, name := range names {
		opts := exts[name]
		if err := b.complete(ctx, name, opts, debug, decision); err != nil {
			return nil, err
		}
		results = append(results, newExtension(name, opts, profile))
	}

	if !decision {
		return results, nil
	}
	if err := b.translate(ctx, exts, results); err != nil {
		return nil, err
	}
	return results, nil
}

// translate regenerates the intermediates of all extensions, stamps them and
// points the descriptors at them.
func (b *Builder) translate(ctx context.Context, exts map[string]*manifest.Options, results []*extension.Extension) error {
	unlock, err := b.lock()
	if err != nil {
		return err
	}
	defer unlock()

	for _, ext := range results {
		opts := exts[ext.Name]
		for _, src := range opts.Sources {
			if !translatable(src) {
				continue
			}
			unit := buildsys.Unit{
				Source:     b.path(src),
				Output:     b.path(intermediate(src, opts.Language)),
				CPlus:      opts.Language == manifest.LangCXX,
				Directives: ext.Directives,
			}
			b.logger.Info("translating", "translator", b.translator.Name(), "extension", ext.Name, "source", src)
			if err := b.translator.Translate(ctx, unit); err != nil {
				return fmt.Errorf("failed to translate %s: %w", src, err)
			}
		}
	}

	for _, ext := range results {
		opts := exts[ext.Name]
		for _, src := range opts.Sources {
			if !translatable(src) {
				continue
			}
			if err := stamp(b.path(src), b.path(intermediate(src, opts.Language))); err != nil {
				return fmt.Errorf("failed to stamp output of %s: %w", src, err)
			}
		}
		ext.Sources = generatedSources(ext.Sources, ext.Language)
	}
	return nil
}

func (b *Builder) lock() (unlock func(), err error) {
	path := b.path(lockFile)
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return lockedfile.MutexAt(path).Lock()
}

// path resolves p against the project directory.
func (b *Builder) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.dir, p)
}

func newExtension(name string, opts *manifest.Options, profile bool) *extension.Extension {
	directives := map[string]any{}
	if profile {
		directives[extension.ProfileDirective] = true
	}
	return &extension.Extension{
		Name:             name,
		Sources:          slices.Clone(opts.Sources),
		Language:         opts.Language,
		Libraries:        slices.Clone(opts.Libraries),
		IncludeDirs:      slices.Clone(opts.IncludeDirs),
		LibraryDirs:      slices.Clone(opts.LibraryDirs),
		ExtraCompileArgs: slices.Clone(opts.ExtraCompileArgs),
		ExtraLinkArgs:    slices.Clone(opts.ExtraLinkArgs),
		Directives:       directives,
	}
}
