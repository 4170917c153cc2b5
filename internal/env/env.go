package env

import (
	"path/filepath"
)

// ManifestFile is the name of the manifest next to the setup script.
const ManifestFile = "pyproject.toml"

// ProjectDir returns the directory holding setupFile. Relative sources in
// the manifest are resolved against it.
func ProjectDir(setupFile string) (string, error) {
	abs, err := filepath.Abs(setupFile)
	if err != nil {
		return "", err
	}
	return filepath.Dir(abs), nil
}

// ManifestPath returns the manifest that sits beside setupFile.
func ManifestPath(setupFile string) (string, error) {
	dir, err := ProjectDir(setupFile)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ManifestFile), nil
}
