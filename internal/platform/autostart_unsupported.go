//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// noLoginItems reports autostart as off and refuses to turn it on.
type noLoginItems struct{}

func osLoginItems() loginItems {
	return noLoginItems{}
}

func (noLoginItems) command(argv []string) string { return strings.Join(argv, " ") }

func (noLoginItems) read() (string, bool, error) { return "", false, nil }

func (noLoginItems) write(string) error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}

func (noLoginItems) remove() error { return nil }
