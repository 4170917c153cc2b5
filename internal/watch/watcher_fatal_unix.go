//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isFatal reports inotify resource exhaustion, after which no further
// events are delivered.
func isFatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
