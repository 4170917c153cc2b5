package build

import (
	"context"
	"fmt"

	"github.com/goplus/cyext/manifest"
	"github.com/goplus/cyext/pkgs/compiler"
)

// complete appends the derived compiler and linker flags to opts in place.
// pkg-config directories are resolved against the project directory. When
// translate is false, .pyx sources are replaced by their already generated
// intermediates.
func (b *Builder) complete(ctx context.Context, name string, opts *manifest.Options, debug, translate bool) error {
	if debug {
		opts.ExtraCompileArgs = append(opts.ExtraCompileArgs, compiler.DebugFlags(b.compiler)...)
	}
	if opts.Language == manifest.LangCXX {
		opts.ExtraCompileArgs = append(opts.ExtraCompileArgs, compiler.StdFlag(b.compiler, opts.CppStd))
	}

	dirs := make([]string, len(opts.PkgConfigDirs))
	for i, dir := range opts.PkgConfigDirs {
		dirs[i] = b.path(dir)
	}
	flags, err := b.pkgConfig.Flags(ctx, opts.PkgConfigPackages, dirs)
	if err != nil {
		return fmt.Errorf("extension %s: %w", name, err)
	}
	opts.ExtraCompileArgs = append(opts.ExtraCompileArgs, flags.CompileFlags...)
	opts.ExtraLinkArgs = append(opts.ExtraLinkArgs, flags.LinkFlags...)

	if !translate {
		opts.Sources = generatedSources(opts.Sources, opts.Language)
	}
	return nil
}

// generatedSources returns sources with every translatable file replaced by
// its intermediate, keeping order.
func generatedSources(sources []string, language string) []string {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		if translatable(src) {
			src = intermediate(src, language)
		}
		out = append(out, src)
	}
	return out
}
