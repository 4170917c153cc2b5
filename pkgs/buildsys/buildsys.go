// Package buildsys defines the source-to-source translation step that runs
// before the native toolchain.
package buildsys

import "context"

// Unit is one source file to translate into an intermediate C or C++ file.
type Unit struct {
	Source     string
	Output     string
	CPlus      bool
	Directives map[string]any
}

// Translator captures what a translation backend (Cython, etc) must do.
// Implementations regenerate Output unconditionally.
type Translator interface {
	Name() string
	Translate(ctx context.Context, unit Unit) error
}
