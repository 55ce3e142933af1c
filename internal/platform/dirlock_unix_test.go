//go:build unix

package platform

import (
	"errors"
	"testing"
)

func TestLockDirIsExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := LockDir(dir)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := LockDir(dir); !errors.Is(err, ErrDirLocked) {
		t.Fatalf("expected ErrDirLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	second, err := LockDir(dir)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = second.Release()
	if err := second.Release(); err != nil {
		t.Fatalf("double release: %v", err)
	}
}
