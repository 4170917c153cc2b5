package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/goplus/cyext/manifest"
	"github.com/goplus/cyext/pkgs/buildsys/cython"
	"github.com/goplus/cyext/pkgs/envcfg"
	"github.com/goplus/cyext/pkgs/pkgconfig"
)

// ---------------------------------------------------------------------------
// E2E tests: pyproject.toml → manifest.Read → Build with real external tools
// ---------------------------------------------------------------------------

const e2eManifest = `[project]
name = "demo"

[cython_extensions.demo]
sources = ["demo.pyx", "helper.c"]
language = "c++"
cpp_std = 17
pkg_config_packages = ["my_fake_lib"]
pkg_config_dirs = ["pc"]
`

// fakeCython installs a shell script standing in for the cython compiler.
func fakeCython(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
	script := filepath.Join(t.TempDir(), "cython")
	body := `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
echo "/* cython $* */" > "$out"
`
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}

func setupE2EProject(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("pkg-config"); err != nil {
		t.Skip("pkg-config not found in PATH")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pyproject.toml"), e2eManifest)
	writeFile(t, filepath.Join(dir, "demo.pyx"), "def hello(): return 1\n")
	writeFile(t, filepath.Join(dir, "helper.c"), "int helper;\n")
	pc, err := os.ReadFile(filepath.Join("..", "..", "pkgs", "pkgconfig", "testdata", "my_fake_lib.pc"))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "pc", "my_fake_lib.pc"), string(pc))
	return dir
}

func newE2EBuilder(t *testing.T, dir, cythonBin string) *Builder {
	for _, name := range []string{"CYTHONIZE", "DEBUG", "PROFILE_CYTHON"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	logger := log.New(os.Stderr)
	logger.SetLevel(log.WarnLevel)
	tr := cython.New(cythonBin)
	tr.SetStdout(os.Stderr)
	return NewBuilder(Options{
		Dir:        dir,
		Compiler:   "unix",
		PkgConfig:  pkgconfig.New(""),
		Translator: tr,
		Env:        envcfg.NewSource(),
		Logger:     logger,
	})
}

// TestE2E_TranslateThenReuse runs a full build, then a second one that
// reuses the stamped output.
func TestE2E_TranslateThenReuse(t *testing.T) {
	dir := setupE2EProject(t)
	b := newE2EBuilder(t, dir, fakeCython(t))

	exts, err := manifest.Read(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.Build(context.Background(), exts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d extensions, want 1", len(got))
	}
	demo := got[0]
	if want := []string{"demo.cpp", "helper.c"}; !slices.Equal(demo.Sources, want) {
		t.Errorf("sources = %q, want %q", demo.Sources, want)
	}
	if want := []string{"-std=c++17", "-I/tmp/include"}; !slices.Equal(demo.ExtraCompileArgs, want) {
		t.Errorf("compile args = %q, want %q", demo.ExtraCompileArgs, want)
	}
	if want := []string{"-L/tmp/lib", "-lmy_fake_lib"}; !slices.Equal(demo.ExtraLinkArgs, want) {
		t.Errorf("link args = %q, want %q", demo.ExtraLinkArgs, want)
	}

	data, err := os.ReadFile(filepath.Join(dir, "demo.cpp"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "--cplus") || !strings.Contains(string(data), "// input_hash: ") {
		t.Errorf("generated file = %q", data)
	}

	// a second build must not run the translator: point it at a missing binary
	b = newE2EBuilder(t, dir, filepath.Join(t.TempDir(), "no-cython"))
	exts, err = manifest.Read(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(context.Background(), exts, nil); err != nil {
		t.Fatalf("rebuild with fresh outputs: %v", err)
	}
}

// TestE2E_ForcedTranslationNeedsTool verifies the missing-tool error when
// CYTHONIZE forces translation.
func TestE2E_ForcedTranslationNeedsTool(t *testing.T) {
	dir := setupE2EProject(t)
	b := newE2EBuilder(t, dir, filepath.Join(t.TempDir(), "no-cython"))
	t.Setenv("CYTHONIZE", "1")

	exts, err := manifest.Read(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Build(context.Background(), exts, boolPtr(false))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("error = %v, want missing translator", err)
	}
}
