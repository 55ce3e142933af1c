//go:build linux

package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestXDGLoginItemsRoundTrip(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	mgr := NewAutostartManager()

	if on, err := mgr.Enabled(); err != nil || on {
		t.Fatalf("expected disabled before sync, got %v, %v", on, err)
	}
	if err := mgr.Sync(AutostartConfig{Enabled: true, Executable: "/opt/murmur tone/murmurtone", Args: []string{"--background"}}); err != nil {
		t.Fatalf("enable autostart: %v", err)
	}

	entryPath := filepath.Join(root, "autostart", "murmurtone.desktop")
	raw, err := os.ReadFile(entryPath) // #nosec G304 -- path is under the test's temp dir.
	if err != nil {
		t.Fatalf("read desktop entry: %v", err)
	}
	entry := string(raw)
	for _, line := range []string{
		"Name=MurmurTone",
		`Exec="/opt/murmur tone/murmurtone" "--background"`,
		"X-GNOME-Autostart-enabled=true",
	} {
		if !strings.Contains(entry, line+"\n") {
			t.Fatalf("expected %q in entry %q", line, entry)
		}
	}
	if on, _ := mgr.Enabled(); !on {
		t.Fatalf("expected enabled after sync")
	}

	if err := mgr.Sync(AutostartConfig{}); err != nil {
		t.Fatalf("disable autostart: %v", err)
	}
	if _, err := os.Stat(entryPath); !os.IsNotExist(err) {
		t.Fatalf("expected desktop entry to be removed, stat err: %v", err)
	}
	if err := mgr.Sync(AutostartConfig{}); err != nil {
		t.Fatalf("disabling twice must succeed: %v", err)
	}
}

func TestXDGLoginItemsReadsExecLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "murmurtone.desktop")
	items := xdgLoginItems{path: func() string { return path }}
	if err := os.WriteFile(path, []byte("[Desktop Entry]\nName=MurmurTone\nExec=\"/usr/bin/murmurtone\"\n"), 0o600); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	command, found, err := items.read()
	if err != nil || !found {
		t.Fatalf("expected entry, got found=%v err=%v", found, err)
	}
	if command != `"/usr/bin/murmurtone"` {
		t.Fatalf("unexpected exec %q", command)
	}
}

func TestXDGLoginItemsCommandEscapes(t *testing.T) {
	got := xdgLoginItems{}.command([]string{`/opt/a"b/$bin`, "--x"})
	if got != `"/opt/a\"b/\$bin" "--x"` {
		t.Fatalf("unexpected exec line %q", got)
	}
}
