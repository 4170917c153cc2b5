package internal

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/goplus/cyext/extension"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeExtensions encodes exts to w in the requested format.
func writeExtensions(w io.Writer, format string, exts []*extension.Extension) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exts)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(exts); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q (want %s or %s)", format, formatJSON, formatYAML)
}
