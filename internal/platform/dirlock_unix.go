//go:build unix

package platform

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

type unixDirLock struct {
	file *os.File
}

func lockFile(path string) (DirLock, error) {
	// #nosec G304 -- path is inside the application data directory.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			return nil, ErrDirLocked
		}

		return nil, fmt.Errorf("lock data dir: %w", err)
	}

	return &unixDirLock{file: file}, nil
}

func (l *unixDirLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	return errors.Join(unlockErr, closeErr)
}
