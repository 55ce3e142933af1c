package app

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

var (
	// Version is filled by ldflags in release builds.
	Version = "dev"
	// BuildDate is filled by ldflags in release builds.
	BuildDate = ""
)

// moduleBuild is what the Go toolchain stamped into the binary.
type moduleBuild struct {
	Version  string
	Revision string
	Modified bool
}

// readModuleBuild is swapped in tests.
var readModuleBuild = func() moduleBuild {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return moduleBuild{}
	}
	build := moduleBuild{Version: info.Main.Version}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			build.Revision = setting.Value
		case "vcs.modified":
			build.Modified = setting.Value == "true"
		}
	}

	return build
}

// BuildVersion prefers the ldflags version, then the module version of an
// installed binary. Development builds report "dev", tagged with the VCS
// revision when one was stamped.
func BuildVersion() string {
	if version, ok := releaseVersion(Version); ok {
		return version
	}
	build := readModuleBuild()
	if version, ok := releaseVersion(build.Version); ok {
		return version
	}

	revision := build.Revision
	if len(revision) > 7 {
		revision = revision[:7]
	}
	switch {
	case revision == "":
		return "dev"
	case build.Modified:
		return "dev+" + revision + ".dirty"
	default:
		return "dev+" + revision
	}
}

// releaseVersion accepts "1.2.3" and "v1.2.3" and returns the form without
// the prefix. Placeholders like "dev" and "(devel)" are rejected.
func releaseVersion(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "dev" || raw == "(devel)" {
		return "", false
	}
	if canonical := "v" + strings.TrimPrefix(raw, "v"); semver.IsValid(canonical) {
		return strings.TrimPrefix(canonical, "v"), true
	}

	return raw, true
}

// BuildDateYMD reduces BuildDate to a calendar date when it parses as one.
func BuildDateYMD() string {
	raw := strings.TrimSpace(BuildDate)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format(time.DateOnly)
	}
	if len(raw) >= len(time.DateOnly) {
		if _, err := time.Parse(time.DateOnly, raw[:len(time.DateOnly)]); err == nil {
			return raw[:len(time.DateOnly)]
		}
	}

	return raw
}

func BuildVersionWithDate() string {
	if date := BuildDateYMD(); date != "" {
		return fmt.Sprintf("%s (%s)", BuildVersion(), date)
	}

	return BuildVersion()
}

// UserAgent identifies the settings service on outgoing HTTP requests.
func UserAgent() string {
	return DisplayName + "/" + BuildVersion()
}
