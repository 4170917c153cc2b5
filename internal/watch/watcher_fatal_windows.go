//go:build windows

package watch

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isFatal reports handle exhaustion or an invalidated directory handle.
func isFatal(err error) bool {
	return errors.Is(err, windows.ERROR_TOO_MANY_OPEN_FILES) ||
		errors.Is(err, windows.ERROR_INVALID_HANDLE) ||
		errors.Is(err, windows.ERROR_NOT_ENOUGH_MEMORY)
}
