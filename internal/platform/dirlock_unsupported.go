//go:build !unix && !windows

package platform

func lockFile(string) (DirLock, error) {
	return nil, ErrDirLockUnsupported
}
