// Package extension defines the descriptor of a native module handed to the
// packaging layer.
package extension

// Extension describes the build inputs of one native module. Its JSON form
// maps onto the keyword arguments of setuptools.Extension.
type Extension struct {
	Name             string         `json:"name" yaml:"name"`
	Sources          []string       `json:"sources" yaml:"sources"`
	Language         string         `json:"language,omitempty" yaml:"language,omitempty"`
	Libraries        []string       `json:"libraries" yaml:"libraries"`
	IncludeDirs      []string       `json:"include_dirs" yaml:"include_dirs"`
	LibraryDirs      []string       `json:"library_dirs" yaml:"library_dirs"`
	ExtraCompileArgs []string       `json:"extra_compile_args" yaml:"extra_compile_args"`
	ExtraLinkArgs    []string       `json:"extra_link_args" yaml:"extra_link_args"`
	Directives       map[string]any `json:"cython_directives" yaml:"cython_directives"`
}

// ProfileDirective enables profiling hooks in the translated code.
const ProfileDirective = "profile"
