package platform

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	fileManagerDest   = "org.freedesktop.FileManager1"
	fileManagerPath   = "/org/freedesktop/FileManager1"
	fileManagerMethod = fileManagerDest + ".ShowFolders"

	dbusServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"
)

func usesFreedesktop(goos string) bool {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "linux", "freebsd", "openbsd", "netbsd":
		return true
	default:
		return false
	}
}

// showFolderOverDBus opens path in the session's file manager through the
// FileManager1 interface.
func showFolderOverDBus(path string) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(fileManagerDest, dbus.ObjectPath(fileManagerPath))
	call := obj.Call(fileManagerMethod, 0, []string{folderURI(path)}, "")

	return call.Err
}

func folderURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func isServiceUnknown(err error) bool {
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) && dbusErrPtr != nil && dbusErrPtr.Name == dbusServiceUnknown {
		return true
	}
	var dbusErr dbus.Error

	return errors.As(err, &dbusErr) && dbusErr.Name == dbusServiceUnknown
}
