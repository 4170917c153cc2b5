//go:build !unix && !windows

package lockedfile

import "os"

// No file locking on this platform.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
