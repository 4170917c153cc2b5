package manifest

import (
	"slices"

	"github.com/pelletier/go-toml/v2/unstable"
)

type declKind int

const (
	declHeader declKind = iota // [cython_extensions.name]
	declInline                 // name = { ... }
	declDotted                 // name.key = ...
)

// checkDuplicates walks the raw TOML expressions and reports the first
// extension name declared twice. Syntax errors are left to the decoder.
func checkDuplicates(data []byte, file string) error {
	seen := make(map[string]declKind)
	declare := func(name string, kind declKind) error {
		prev, ok := seen[name]
		if ok && !(prev == declDotted && kind == declDotted) {
			return &DuplicateKeyError{File: file, Name: name}
		}
		seen[name] = kind
		return nil
	}

	var table []string
	p := unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(expr)
			if expr.Kind == unstable.Table && len(table) == 2 && table[0] == Section {
				if err := declare(table[1], declHeader); err != nil {
					return err
				}
			}
		case unstable.KeyValue:
			key := append(slices.Clone(table), keyParts(expr)...)
			if len(key) < 2 || key[0] != Section || len(table) > 1 {
				continue
			}
			kind := declInline
			if len(key) > 2 {
				kind = declDotted
			}
			if err := declare(key[1], kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func keyParts(expr *unstable.Node) []string {
	var parts []string
	it := expr.Key()
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}
