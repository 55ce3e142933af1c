//go:build windows

package platform

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/sys/windows/registry"
)

const runKey = `Software\Microsoft\Windows\CurrentVersion\Run`

// runKeyLoginItems keeps a value under the current user's Run key.
type runKeyLoginItems struct{}

func osLoginItems() loginItems {
	return runKeyLoginItems{}
}

func (runKeyLoginItems) command(argv []string) string {
	fields := make([]string, len(argv))
	for i, arg := range argv {
		fields[i] = syscall.EscapeArg(arg)
	}

	return strings.Join(fields, " ")
}

func (runKeyLoginItems) read() (string, bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.QUERY_VALUE)
	if notFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("open run key: %w", err)
	}
	defer key.Close()

	value, _, err := key.GetStringValue(autostartEntryName)
	if notFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read run value: %w", err)
	}

	return value, true, nil
}

func (runKeyLoginItems) write(command string) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open run key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(autostartEntryName, command); err != nil {
		return fmt.Errorf("set run value: %w", err)
	}

	return nil
}

func (runKeyLoginItems) remove() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if notFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open run key: %w", err)
	}
	defer key.Close()

	if err := key.DeleteValue(autostartEntryName); err != nil && !notFound(err) {
		return fmt.Errorf("delete run value: %w", err)
	}

	return nil
}

func notFound(err error) bool {
	return err != nil && (errors.Is(err, registry.ErrNotExist) || errors.Is(err, syscall.ERROR_FILE_NOT_FOUND))
}
