// Package cython runs the Cython compiler to turn .pyx files into C or C++.
package cython

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/goplus/cyext/pkgs/buildsys"
)

// BinEnv overrides the default compiler binary.
const BinEnv = "CYTHON"

// Cython drives the cython command line compiler.
type Cython struct {
	bin    string
	env    map[string]string
	stdout io.Writer
	stderr io.Writer
}

var _ buildsys.Translator = (*Cython)(nil)

// New creates a Cython runner. An empty bin selects $CYTHON, then "cython".
func New(bin string) *Cython {
	if bin == "" {
		bin = os.Getenv(BinEnv)
	}
	if bin == "" {
		bin = "cython"
	}
	return &Cython{
		bin:    bin,
		env:    map[string]string{},
		stdout: os.Stderr,
		stderr: os.Stderr,
	}
}

func (c *Cython) Name() string {
	return "Cython"
}

// Env sets a variable for the compiler process only.
func (c *Cython) Env(key, val string) {
	c.env[key] = val
}

// SetStdout redirects compiler output. Both streams default to os.Stderr so
// that stdout stays free for descriptors.
func (c *Cython) SetStdout(w io.Writer) { c.stdout = w }

func (c *Cython) SetStderr(w io.Writer) { c.stderr = w }

// Translate regenerates unit.Output from unit.Source.
func (c *Cython) Translate(ctx context.Context, unit buildsys.Unit) error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return fmt.Errorf("%s not found in PATH (required for: Cython translation): %w", c.bin, err)
	}
	cmd := exec.CommandContext(ctx, c.bin, Args(unit)...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	if len(c.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.env)
	}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("cython %s failed with exit code %d", unit.Source, exitErr.ExitCode())
		}
		return fmt.Errorf("cython %s: %w", unit.Source, err)
	}
	return nil
}

// Args returns the command line arguments for unit.
func Args(unit buildsys.Unit) []string {
	var args []string
	if unit.CPlus {
		args = append(args, "--cplus")
	}
	args = append(args, directiveArgs(unit.Directives)...)
	return append(args, "-o", unit.Output, unit.Source)
}

func directiveArgs(directives map[string]any) []string {
	if len(directives) == 0 {
		return nil
	}
	keys := make([]string, 0, len(directives))
	for k := range directives {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, "-X", k+"="+directiveValue(directives[k]))
	}
	return args
}

func directiveValue(v any) string {
	switch v := v.(type) {
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return v
	}
	return fmt.Sprint(v)
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
