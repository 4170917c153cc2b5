package build

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/goplus/cyext/manifest"
)

// Project layout for a translatable source:
//
//	pkg/foo.pyx    # source
//	pkg/foo.c      # intermediate (foo.cpp for c++ extensions), ending with
//	               # "// input_hash: <hash of foo.pyx>" once stamped
const (
	pyxExt = ".pyx"
	cExt   = ".c"
	cppExt = ".cpp"

	markerPrefix = "// input_hash: "
)

var markerRE = regexp.MustCompile(`(?m)^// input_hash: ([a-fA-F0-9]+)\r?$`)

// Mapping pairs a translatable source with its intermediate file.
type Mapping struct {
	Extension string
	Source    string
	Output    string
	UpToDate  bool
}

func translatable(source string) bool {
	return filepath.Ext(source) == pyxExt
}

func intermediateExt(language string) string {
	if language == manifest.LangCXX {
		return cppExt
	}
	return cExt
}

// intermediate returns the path of the file generated from source.
func intermediate(source, language string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + intermediateExt(language)
}

// hashFile returns the hex xxhash64 digest of the file content.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// readMarker returns the hash recorded in a generated file, or "" when the
// file or the marker is missing.
func readMarker(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	matches := markerRE.FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return "", nil
	}
	return string(matches[len(matches)-1][1]), nil
}

// upToDate reports whether generated exists and records the current hash of
// source.
func upToDate(source, generated string) (bool, error) {
	sum, err := hashFile(source)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", source, err)
	}
	recorded, err := readMarker(generated)
	if err != nil {
		return false, fmt.Errorf("read marker of %s: %w", generated, err)
	}
	return recorded == sum, nil
}

// stamp appends the marker line for source to generated.
func stamp(source, generated string) error {
	sum, err := hashFile(source)
	if err != nil {
		return fmt.Errorf("hash %s: %w", source, err)
	}
	f, err := os.OpenFile(generated, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "\n%s%s\n", markerPrefix, sum); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Check computes the staleness of every translatable source, ordered by
// extension name then declaration order.
func (b *Builder) Check(exts map[string]*manifest.Options) ([]Mapping, error) {
	var mappings []Mapping
	for _, name := range sortedNames(exts) {
		opts := exts[name]
		for _, src := range opts.Sources {
			if !translatable(src) {
				continue
			}
			out := intermediate(src, opts.Language)
			ok, err := upToDate(b.path(src), b.path(out))
			if err != nil {
				return nil, err
			}
			mappings = append(mappings, Mapping{Extension: name, Source: src, Output: out, UpToDate: ok})
		}
	}
	return mappings, nil
}

// stale reports whether any source needs translating. It stops at the first
// stale mapping.
func (b *Builder) stale(exts map[string]*manifest.Options) (bool, error) {
	for _, name := range sortedNames(exts) {
		opts := exts[name]
		for _, src := range opts.Sources {
			if !translatable(src) {
				continue
			}
			out := intermediate(src, opts.Language)
			ok, err := upToDate(b.path(src), b.path(out))
			if err != nil {
				return false, err
			}
			if !ok {
				b.logger.Info("generated file is stale", "extension", name, "source", src, "output", out)
				return true, nil
			}
		}
	}
	return false, nil
}

func sortedNames(exts map[string]*manifest.Options) []string {
	names := make([]string, 0, len(exts))
	for name := range exts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
