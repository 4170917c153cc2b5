package build

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/goplus/cyext/pkgs/buildsys"
	"github.com/goplus/cyext/pkgs/envcfg"
	"github.com/goplus/cyext/pkgs/pkgconfig"
)

// mockPkgConfig implements pkgconfig.Querier for testing.
type mockPkgConfig struct {
	flags map[string]pkgconfig.BuildFlags
	calls [][]string
	dirs  [][]string
}

func (m *mockPkgConfig) Flags(ctx context.Context, packages, dirs []string) (pkgconfig.BuildFlags, error) {
	m.calls = append(m.calls, packages)
	m.dirs = append(m.dirs, dirs)
	ret := pkgconfig.BuildFlags{CompileFlags: []string{}, LinkFlags: []string{}}
	for _, pkg := range packages {
		f, ok := m.flags[pkg]
		if !ok {
			return pkgconfig.BuildFlags{}, &pkgconfig.ExternalToolError{
				Tool:   "pkg-config",
				Args:   append([]string{"--cflags"}, packages...),
				Stderr: fmt.Sprintf("Package %s was not found in the pkg-config search path.", pkg),
				Err:    fmt.Errorf("exit status 1"),
			}
		}
		ret.CompileFlags = append(ret.CompileFlags, f.CompileFlags...)
		ret.LinkFlags = append(ret.LinkFlags, f.LinkFlags...)
	}
	return ret, nil
}

// mockTranslator implements buildsys.Translator by writing a fixed body to
// the unit output.
type mockTranslator struct {
	mu    sync.Mutex
	units []buildsys.Unit
	err   error
}

func (m *mockTranslator) Name() string { return "mock" }

func (m *mockTranslator) Translate(ctx context.Context, unit buildsys.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = append(m.units, unit)
	if m.err != nil {
		return m.err
	}
	body := fmt.Sprintf("/* generated from %s */\nint x;\n", unit.Source)
	return os.WriteFile(unit.Output, []byte(body), 0o644)
}

// newTestBuilder returns a Builder over dir with fakes for every external
// tool. Switch variables are cleared so the host environment does not leak.
func newTestBuilder(t *testing.T, dir string, pc *mockPkgConfig, tr *mockTranslator) *Builder {
	for _, name := range []string{"CYTHONIZE", "DEBUG", "PROFILE_CYTHON"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	if pc == nil {
		pc = &mockPkgConfig{}
	}
	if tr == nil {
		tr = &mockTranslator{}
	}
	logger := log.New(os.Stderr)
	logger.SetLevel(log.WarnLevel)
	return NewBuilder(Options{
		Dir:        dir,
		Compiler:   "unix",
		PkgConfig:  pc,
		Translator: tr,
		Env:        envcfg.NewSource(),
		Logger:     logger,
	})
}
