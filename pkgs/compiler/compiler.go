// Package compiler knows the flag spellings of the native compiler families.
package compiler

import (
	"fmt"
	"runtime"
)

// Family identifies a native compiler family.
type Family string

const (
	Unix Family = "unix"
	MSVC Family = "msvc"
)

// Default returns the family that would be used on this platform: MSVC on
// Windows, a Unix-style compiler elsewhere.
func Default() Family {
	if runtime.GOOS == "windows" {
		return MSVC
	}
	return Unix
}

// Parse converts a family name. The empty string selects Default.
func Parse(name string) (Family, error) {
	switch Family(name) {
	case "":
		return Default(), nil
	case Unix, MSVC:
		return Family(name), nil
	}
	return "", fmt.Errorf("unknown compiler family %q", name)
}

// StdFlag returns the flag selecting the C++ standard version, e.g. 17 gives
// "-std=c++17" or "/std:c++17".
func StdFlag(f Family, version int) string {
	if f == MSVC {
		return fmt.Sprintf("/std:c++%d", version)
	}
	return fmt.Sprintf("-std=c++%d", version)
}

// DebugFlags returns the flags that add debug symbols. MSVC gets none.
func DebugFlags(f Family) []string {
	if f == MSVC {
		return nil
	}
	return []string{"-g"}
}
