package manifest

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestBasic(t *testing.T) {
	exts, err := Read(filepath.Join("testdata", "basic_pyproject.toml"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	lol, ok := exts["lol"]
	if !ok {
		t.Fatalf("extension lol missing: %v", exts)
	}
	if want := []string{"a.pyx"}; !reflect.DeepEqual(lol.Sources, want) {
		t.Errorf("Sources = %q, want %q", lol.Sources, want)
	}
	if lol.Language != "c" {
		t.Errorf("Language = %q, want c", lol.Language)
	}
	if lol.CppStd != 17 {
		t.Errorf("CppStd = %d, want 17", lol.CppStd)
	}
	if lol.Libraries == nil || len(lol.Libraries) != 0 {
		t.Errorf("Libraries = %#v, want empty list", lol.Libraries)
	}
}

func TestAllFields(t *testing.T) {
	exts, err := Read(filepath.Join("testdata", "all_fields_pyproject.toml"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := &Options{
		Sources:           []string{"a.pyx"},
		Libraries:         []string{"a", "b"},
		IncludeDirs:       []string{"toto/include"},
		LibraryDirs:       []string{"toto/lib", "/usr/lib"},
		ExtraCompileArgs:  []string{"-g"},
		ExtraLinkArgs:     []string{"--strip-debug"},
		Language:          "c++",
		CppStd:            23,
		PkgConfigPackages: []string{"super_lib"},
		PkgConfigDirs:     []string{"toto/lib/pkgconfig"},
	}
	if got := exts["lol"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("lol = %+v, want %+v", got, want)
	}
}

func TestMultiples(t *testing.T) {
	exts, err := Read(filepath.Join("testdata", "multiple_extension_pyproject.toml"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(exts) != 2 {
		t.Fatalf("got %d extensions, want 2", len(exts))
	}
	if got := exts["reblochon"].Sources; !reflect.DeepEqual(got, []string{"reblochon.pyx"}) {
		t.Errorf("reblochon sources = %q", got)
	}
	if got := exts["croissant"].Sources; !reflect.DeepEqual(got, []string{"croissant.pyx"}) {
		t.Errorf("croissant sources = %q", got)
	}
	if got := exts["croissant"].Language; got != "c++" {
		t.Errorf("croissant language from langage = %q, want c++", got)
	}
}

func TestParseIdempotent(t *testing.T) {
	for _, name := range []string{"basic_pyproject.toml", "all_fields_pyproject.toml", "multiple_extension_pyproject.toml"} {
		path := filepath.Join("testdata", name)
		first, err := Read(path)
		if err != nil {
			t.Fatalf("Read(%s): %v", name, err)
		}
		second, err := Read(path)
		if err != nil {
			t.Fatalf("Read(%s) again: %v", name, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: reads differ:\n%+v\n%+v", name, first, second)
		}
	}
}

func TestDottedKeys(t *testing.T) {
	src := `
[cython_extensions]
lol.sources = ["a.pyx", "b.c"]
lol.libraries = ["m"]
`
	exts, err := Parse([]byte(src), "pyproject.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := exts["lol"].Libraries; !reflect.DeepEqual(got, []string{"m"}) {
		t.Fatalf("Libraries = %q, want [m]", got)
	}
}

func TestDuplicateKey(t *testing.T) {
	tests := map[string]string{
		"headers": `
[cython_extensions.lol]
sources = ["a.pyx"]

[cython_extensions.lol]
sources = ["b.pyx"]
`,
		"inline then header": `
[cython_extensions]
lol = { sources = ["a.pyx"] }

[cython_extensions.lol]
sources = ["b.pyx"]
`,
		"inline twice": `
[cython_extensions]
lol = { sources = ["a.pyx"] }
lol = { sources = ["b.pyx"] }
`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "pyproject.toml")
			var dup *DuplicateKeyError
			if !errors.As(err, &dup) {
				t.Fatalf("Parse error = %v, want DuplicateKeyError", err)
			}
			if dup.Name != "lol" {
				t.Fatalf("DuplicateKeyError.Name = %q, want lol", dup.Name)
			}
		})
	}

	_, err := Read(filepath.Join("testdata", "duplicate_pyproject.toml"))
	var dup *DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("Read duplicate file error = %v, want DuplicateKeyError", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"missing section", "[project]\nname = \"x\"\n", "missing [cython_extensions] section"},
		{"section not a table", "cython_extensions = 3\n", "table"},
		{"malformed", "[cython_extensions.lol\nsources = [\"a.pyx\"]\n", ""},
		{"missing sources", "[cython_extensions.lol]\nlibraries = [\"m\"]\n", "sources"},
		{"empty sources", "[cython_extensions.lol]\nsources = []\n", "sources"},
		{"unknown key", "[cython_extensions.lol]\nsources = [\"a.pyx\"]\nsource_dirs = [\"x\"]\n", "source_dirs"},
		{"wrong type", "[cython_extensions.lol]\nsources = [\"a.pyx\"]\ncpp_std = \"17\"\n", "cpp_std"},
		{"bad language", "[cython_extensions.lol]\nsources = [\"a.pyx\"]\nlanguage = \"rust\"\n", "language"},
		{"both language keys", "[cython_extensions.lol]\nsources = [\"a.pyx\"]\nlanguage = \"c\"\nlangage = \"c\"\n", "mutually exclusive"},
		{"empty source entry", "[cython_extensions.lol]\nsources = [\"\"]\n", "sources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "pyproject.toml")
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse error = %v, want ParseError", err)
			}
			if perr.File != "pyproject.toml" {
				t.Errorf("ParseError.File = %q", perr.File)
			}
			if !strings.Contains(perr.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", perr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "pyproject.toml"))
	if err == nil {
		t.Fatal("Read of missing file succeeded")
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		t.Fatalf("Read of missing file returned ParseError %v, want IO error", err)
	}
}

func TestParseErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		src  string
		path string
		want string
	}{
		{"unknown key", "[cython_extensions.lol]\nsources = [\"a.pyx\"]\nfoo = 1\n", "cython_extensions.lol.foo", "pyproject.toml: cython_extensions.lol.foo: "},
		{"empty sources", "[cython_extensions.lol]\nsources = []\n", "cython_extensions.lol.sources", "pyproject.toml: cython_extensions.lol.sources: missing required field"},
		{"wrong type", "[cython_extensions.lol]\nsources = [\"a.pyx\"]\ncpp_std = \"17\"\n", "cython_extensions.lol.cpp_std", "pyproject.toml: cython_extensions.lol.cpp_std: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "pyproject.toml")
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse error = %v, want ParseError", err)
			}
			if perr.Path != tt.path {
				t.Errorf("ParseError.Path = %q, want %q", perr.Path, tt.path)
			}
			msg := perr.Error()
			if !strings.HasPrefix(msg, tt.want) {
				t.Errorf("error = %q, want prefix %q", msg, tt.want)
			}
			if strings.Contains(msg, "#") {
				t.Errorf("error %q leaks a schema definition", msg)
			}
		})
	}
}
