// Package pkgconfig queries compile and link flags of installed libraries
// through the pkg-config tool.
package pkgconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

// SearchPathVar is the variable extended with extra search directories.
const SearchPathVar = "PKG_CONFIG_PATH"

// BuildFlags holds the flags reported for a set of packages.
type BuildFlags struct {
	CompileFlags []string `json:"compile_flags"` // e.g. -I, -D
	LinkFlags    []string `json:"link_flags"`    // e.g. -L, -l
}

// Querier resolves packages to build flags. dirs are extra search
// directories for the package metadata files.
type Querier interface {
	Flags(ctx context.Context, packages, dirs []string) (BuildFlags, error)
}

// ExternalToolError reports a pkg-config invocation that could not start or
// exited non-zero.
type ExternalToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// Tool runs the pkg-config binary.
type Tool struct {
	bin    string
	logger *log.Logger
}

var _ Querier = (*Tool)(nil)

// New returns a Tool running bin, or "pkg-config" when bin is empty.
func New(bin string) *Tool {
	if bin == "" {
		bin = "pkg-config"
	}
	return &Tool{bin: bin, logger: log.Default()}
}

// SetLogger replaces the logger used to trace invocations.
func (t *Tool) SetLogger(logger *log.Logger) {
	t.logger = logger
}

// Flags runs "pkg-config --cflags" then "pkg-config --libs" for packages.
// No process is started when packages is empty.
func (t *Tool) Flags(ctx context.Context, packages, dirs []string) (BuildFlags, error) {
	if len(packages) == 0 {
		return BuildFlags{}, nil
	}
	cflags, err := t.run(ctx, "--cflags", packages, dirs)
	if err != nil {
		return BuildFlags{}, err
	}
	libs, err := t.run(ctx, "--libs", packages, dirs)
	if err != nil {
		return BuildFlags{}, err
	}
	return BuildFlags{CompileFlags: cflags, LinkFlags: libs}, nil
}

func (t *Tool) run(ctx context.Context, option string, packages, dirs []string) ([]string, error) {
	args := append([]string{option}, packages...)
	cmd := exec.CommandContext(ctx, t.bin, args...)
	if len(dirs) > 0 {
		env := newEnviron(os.Environ())
		ExtendSearchPath(env, dirs)
		cmd.Env = env.list()
	}
	t.logger.Debug("pkg-config", "args", args, "dirs", dirs)

	out, err := cmd.Output()
	if err != nil {
		toolErr := &ExternalToolError{Tool: t.bin, Args: args, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.Stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, toolErr
	}
	return Split(string(out))
}

// Split breaks pkg-config output into flags following shell quoting rules.
// Quotes and backslashes are removed; nothing is expanded, so $ORIGIN,
// {a,b} and $(cmd) are returned as written.
func Split(out string) ([]string, error) {
	fields := []string{}
	var sb strings.Builder
	err := syntax.NewParser().Words(strings.NewReader(out), func(w *syntax.Word) bool {
		sb.Reset()
		for _, part := range w.Parts {
			writePart(&sb, out, part)
		}
		fields = append(fields, sb.String())
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("split pkg-config output %q: %w", out, err)
	}
	return fields, nil
}

// writePart writes the literal text of an unquoted word part. Expansions are
// copied from src unchanged.
func writePart(sb *strings.Builder, src string, part syntax.WordPart) {
	switch part := part.(type) {
	case *syntax.Lit:
		unescape(sb, source(src, part), "")
	case *syntax.SglQuoted:
		if part.Dollar {
			sb.WriteByte('$')
		}
		sb.WriteString(part.Value)
	case *syntax.DblQuoted:
		if part.Dollar {
			sb.WriteByte('$')
		}
		for _, inner := range part.Parts {
			if lit, ok := inner.(*syntax.Lit); ok {
				unescape(sb, source(src, lit), "$`\\\"")
				continue
			}
			sb.WriteString(source(src, inner))
		}
	default:
		sb.WriteString(source(src, part))
	}
}

func source(src string, n syntax.Node) string {
	return src[n.Pos().Offset():n.End().Offset()]
}

// unescape drops the backslash before the characters in special, or before
// any character when special is empty. An escaped newline is removed.
func unescape(sb *strings.Builder, s, special string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch {
		case next == '\n':
			i++
		case special == "" || strings.IndexByte(special, next) >= 0:
			sb.WriteByte(next)
			i++
		default:
			sb.WriteByte(c)
		}
	}
}

// ExtendSearchPath appends dirs, colon-joined, to PKG_CONFIG_PATH in env.
// A separator is inserted only if the existing value is non-empty and does
// not already end with one. A missing key is treated as empty.
func ExtendSearchPath(env map[string]string, dirs []string) {
	original := env[SearchPathVar]
	if original != "" && !strings.HasSuffix(original, ":") {
		original += ":"
	}
	env[SearchPathVar] = original + strings.Join(dirs, ":")
}

// -----------------------------------------------------------------------------

type environ map[string]string

func newEnviron(kvs []string) environ {
	env := make(environ, len(kvs))
	for _, kv := range kvs {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func (env environ) list() []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
