package platform

import (
	"errors"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

type memoryLoginItems struct {
	value   string
	present bool
	writes  int
	readErr error
}

func (m *memoryLoginItems) command(argv []string) string { return strings.Join(argv, " ") }

func (m *memoryLoginItems) read() (string, bool, error) {
	return m.value, m.present, m.readErr
}

func (m *memoryLoginItems) write(command string) error {
	m.writes++
	m.value, m.present = command, true

	return nil
}

func (m *memoryLoginItems) remove() error {
	m.value, m.present = "", false

	return nil
}

func TestAutostartSync(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	items := &memoryLoginItems{}
	mgr := autostart{items: items}
	enable := AutostartConfig{Enabled: true, Executable: "/opt/murmurtone/murmurtone", Args: []string{"--background"}}

	if err := mgr.Sync(enable); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := mgr.Sync(enable); err != nil {
		t.Fatalf("enable again: %v", err)
	}
	if items.writes != 1 {
		t.Fatalf("expected an unchanged command to be written once, got %d", items.writes)
	}
	if items.value != "/opt/murmurtone/murmurtone --background" {
		t.Fatalf("unexpected command %q", items.value)
	}

	enable.Args = nil
	if err := mgr.Sync(enable); err != nil {
		t.Fatalf("change command: %v", err)
	}
	if items.writes != 2 || items.value != "/opt/murmurtone/murmurtone" {
		t.Fatalf("expected rewrite for a new command, got writes=%d value=%q", items.writes, items.value)
	}

	if err := mgr.Sync(AutostartConfig{}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if on, err := mgr.Enabled(); err != nil || on {
		t.Fatalf("expected disabled, got %v, %v", on, err)
	}
}

func TestAutostartSyncRewritesUnreadableItem(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	items := &memoryLoginItems{readErr: errors.New("corrupt")}
	mgr := autostart{items: items}

	if err := mgr.Sync(AutostartConfig{Enabled: true, Executable: "/usr/bin/murmurtone"}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if items.writes != 1 {
		t.Fatalf("expected write after read error, got %d", items.writes)
	}
}

func TestLaunchArgv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	tests := []struct {
		name    string
		cfg     AutostartConfig
		want    []string
		wantErr bool
	}{
		{
			name: "cleans explicit executable",
			cfg:  AutostartConfig{Executable: " /opt/murmurtone/bin/../bin/murmurtone ", Args: []string{"--tray"}},
			want: []string{"/opt/murmurtone/bin/murmurtone", "--tray"},
		},
		{
			name:    "rejects relative executable",
			cfg:     AutostartConfig{Executable: "bin/murmurtone"},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := launchArgv(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}

				return
			}
			if err != nil {
				t.Fatalf("launch argv: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestLaunchArgvDefaultsToCurrentBinary(t *testing.T) {
	argv, err := launchArgv(AutostartConfig{Args: []string{"--background"}})
	if err != nil {
		t.Fatalf("launch argv: %v", err)
	}
	if len(argv) != 2 || argv[0] == "" || argv[1] != "--background" {
		t.Fatalf("unexpected argv %v", argv)
	}
}
