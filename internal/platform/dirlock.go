package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const dirLockFilename = "service.lock"

// ErrDirLocked means another settings service owns the data directory.
var ErrDirLocked = errors.New("data directory is used by another settings service")

// ErrDirLockUnsupported means the platform has no lock backend.
var ErrDirLockUnsupported = errors.New("data directory lock unsupported")

// DirLock is an exclusive hold on a data directory.
type DirLock interface {
	Release() error
}

// LockDir takes an exclusive, non-blocking lock on dir.
func LockDir(dir string) (DirLock, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return lockFile(filepath.Join(dir, dirLockFilename))
}
