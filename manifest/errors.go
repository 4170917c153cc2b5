package manifest

import (
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ParseError reports a manifest that is malformed, lacks the extension
// section, or declares an extension that does not match the schema.
type ParseError struct {
	File string
	Path string // dotted path of the offending value, if known
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.File)
	if e.Path != "" && !strings.HasPrefix(e.Msg, e.Path) {
		sb.WriteString(": ")
		sb.WriteString(e.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// DuplicateKeyError reports an extension name declared more than once.
type DuplicateKeyError struct {
	File string
	Name string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: extension %q is declared more than once", e.File, e.Name)
}

// cueError converts a CUE evaluation error, keeping the path of every
// reported problem relative to the document.
func cueError(file string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ParseError{File: file, Msg: err.Error(), Err: err}
	}
	first := ""
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := documentPath(cueerrors.Path(e)); path != "" {
			msg = path + ": " + msg
			if first == "" {
				first = path
			}
		}
		lines = append(lines, msg)
	}
	return &ParseError{
		File: file,
		Path: first,
		Msg:  strings.Join(lines, "; "),
		Err:  err,
	}
}

// documentPath joins a CUE path without the schema definitions it was
// evaluated under, e.g. #Pyproject.
func documentPath(path []string) string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	return strings.Join(path, ".")
}
