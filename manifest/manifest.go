// Package manifest reads native extension declarations from the
// [cython_extensions] section of a pyproject.toml file.
//
// Each sub-table declares one extension:
//
//	[cython_extensions.lol]
//	sources = ["a.pyx"]
//	libraries = ["a", "b"]
//	include_dirs = ["toto/include"]
//	library_dirs = ["toto/lib", "/usr/lib"]
//	extra_compile_args = ["-g"]
//	extra_link_args = ["--strip-debug"]
//	language = "c++"
//	cpp_std = 23
//	pkg_config_packages = ["super_lib"]
//	pkg_config_dirs = ["toto/lib/pkgconfig"]
//
// Only sources is required.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Section is the top-level table holding the extensions.
const Section = "cython_extensions"

// Languages.
const (
	LangC   = "c"
	LangCXX = "c++"
)

// DefaultCppStd is the C++ standard used when cpp_std is not set.
const DefaultCppStd = 17

//go:embed schema.cue
var schema []byte

// Options are the build settings of one extension.
type Options struct {
	// Cython and C/C++ source files compiled into the module.
	Sources []string `json:"sources" validate:"required,min=1,dive,required"`
	// Libraries to link with the module.
	Libraries []string `json:"libraries"`
	// Directories searched for include files.
	IncludeDirs []string `json:"include_dirs"`
	// Directories searched for libraries.
	LibraryDirs []string `json:"library_dirs"`
	// Extra arguments passed to the compiler.
	ExtraCompileArgs []string `json:"extra_compile_args"`
	// Extra arguments passed to the linker.
	ExtraLinkArgs []string `json:"extra_link_args"`
	// "c" or "c++".
	Language string `json:"language" validate:"oneof=c c++"`
	// C++ standard version, e.g. 11, 14, 17, 20.
	CppStd int `json:"cpp_std" validate:"gt=0"`
	// pkg-config packages providing flags for the module.
	PkgConfigPackages []string `json:"pkg_config_packages" validate:"dive,required"`
	// Directories added to the pkg-config search path.
	PkgConfigDirs []string `json:"pkg_config_dirs"`
}

// rawOptions mirrors the schema; pointers mark optional scalars.
type rawOptions struct {
	Sources           []string `json:"sources"`
	Libraries         []string `json:"libraries"`
	IncludeDirs       []string `json:"include_dirs"`
	LibraryDirs       []string `json:"library_dirs"`
	ExtraCompileArgs  []string `json:"extra_compile_args"`
	ExtraLinkArgs     []string `json:"extra_link_args"`
	Language          *string  `json:"language"`
	Langage           *string  `json:"langage"`
	CppStd            *int     `json:"cpp_std"`
	PkgConfigPackages []string `json:"pkg_config_packages"`
	PkgConfigDirs     []string `json:"pkg_config_dirs"`
}

func (r *rawOptions) options() *Options {
	opts := &Options{
		Sources:           list(r.Sources),
		Libraries:         list(r.Libraries),
		IncludeDirs:       list(r.IncludeDirs),
		LibraryDirs:       list(r.LibraryDirs),
		ExtraCompileArgs:  list(r.ExtraCompileArgs),
		ExtraLinkArgs:     list(r.ExtraLinkArgs),
		Language:          LangC,
		CppStd:            DefaultCppStd,
		PkgConfigPackages: list(r.PkgConfigPackages),
		PkgConfigDirs:     list(r.PkgConfigDirs),
	}
	switch {
	case r.Language != nil:
		opts.Language = *r.Language
	case r.Langage != nil:
		opts.Language = *r.Langage
	}
	if r.CppStd != nil {
		opts.CppStd = *r.CppStd
	}
	return opts
}

func list(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Read parses the manifest at path.
func Read(path string) (map[string]*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, path)
}

// Parse parses manifest content. file is only used in error messages.
// The result maps extension names to their options.
func Parse(data []byte, file string) (map[string]*Options, error) {
	if err := checkDuplicates(data, file); err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		perr := &ParseError{File: file, Msg: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			perr.Msg = fmt.Sprintf("%d:%d: %s", row, col, derr.Error())
		}
		return nil, perr
	}
	section, ok := doc[Section]
	if !ok {
		return nil, &ParseError{File: file, Msg: fmt.Sprintf("missing [%s] section", Section)}
	}
	if _, ok := section.(map[string]any); !ok {
		return nil, &ParseError{File: file, Path: Section, Msg: "must be a table of extensions"}
	}

	raws, err := decode(doc, file)
	if err != nil {
		return nil, err
	}

	exts := make(map[string]*Options, len(raws))
	for name, raw := range raws {
		if raw.Language != nil && raw.Langage != nil {
			return nil, &ParseError{
				File: file,
				Path: Section + "." + name,
				Msg:  "language and langage are mutually exclusive",
			}
		}
		opts := raw.options()
		if err := validate.Struct(opts); err != nil {
			return nil, validationError(file, name, err)
		}
		exts[name] = opts
	}
	return exts, nil
}

// decode checks doc against the schema and extracts the extension section.
func decode(doc map[string]any, file string) (map[string]rawOptions, error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema, cue.Filename("schema.cue"))
	if err := schemaValue.Err(); err != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", err)
	}
	root := schemaValue.LookupPath(cue.ParsePath("#Pyproject"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("internal error: schema definition #Pyproject not found: %w", err)
	}

	data := ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return nil, &ParseError{File: file, Msg: err.Error(), Err: err}
	}

	unified := root.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(file, err)
	}

	var raws map[string]rawOptions
	if err := unified.LookupPath(cue.ParsePath(Section)).Decode(&raws); err != nil {
		return nil, cueError(file, err)
	}
	return raws, nil
}

// -----------------------------------------------------------------------------

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(file, name string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ParseError{File: file, Path: Section + "." + name, Msg: err.Error(), Err: err}
	}
	fe := verrs[0]
	path := Section + "." + name + "." + fe.Field()
	var msg string
	switch fe.Tag() {
	case "required", "min":
		msg = "missing required field"
	case "oneof":
		msg = fmt.Sprintf("must be one of %q, got %v", strings.Fields(fe.Param()), fe.Value())
	default:
		msg = fmt.Sprintf("failed %q check, got %v", fe.Tag(), fe.Value())
	}
	return &ParseError{File: file, Path: path, Msg: msg, Err: err}
}
