//go:build linux

package platform

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// xdgLoginItems keeps a desktop entry in the XDG autostart directory.
type xdgLoginItems struct {
	path func() string
}

func osLoginItems() loginItems {
	return xdgLoginItems{path: xdgAutostartEntry}
}

func xdgAutostartEntry() string {
	xdg.Reload()

	return filepath.Join(xdg.ConfigHome, "autostart", strings.ToLower(autostartEntryName)+".desktop")
}

var desktopExecEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", "$", `\$`)

// command quotes every field as freedesktop Exec keys require.
func (xdgLoginItems) command(argv []string) string {
	fields := make([]string, len(argv))
	for i, arg := range argv {
		fields[i] = `"` + desktopExecEscaper.Replace(arg) + `"`
	}

	return strings.Join(fields, " ")
}

func (l xdgLoginItems) read() (string, bool, error) {
	raw, err := os.ReadFile(l.path())
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read autostart entry: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		if exec, ok := strings.CutPrefix(scanner.Text(), "Exec="); ok {
			return exec, true, nil
		}
	}

	return "", true, nil
}

func (l xdgLoginItems) write(command string) error {
	entry := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Comment=Local voice dictation
Exec=%s
Icon=%s
Terminal=false
Categories=Utility;Accessibility;
X-GNOME-Autostart-enabled=true
`, autostartEntryName, command, strings.ToLower(autostartEntryName))

	if err := replaceFile(l.path(), []byte(entry)); err != nil {
		return fmt.Errorf("write autostart entry: %w", err)
	}

	return nil
}

func (l xdgLoginItems) remove() error {
	if err := os.Remove(l.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove autostart entry: %w", err)
	}

	return nil
}

// replaceFile swaps path for data through a rename in the same directory.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".autostart-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0o644)
	}
	if err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
