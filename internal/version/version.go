package version

import (
	"runtime/debug"
	"strings"
)

// Set through -ldflags at release time.
var (
	Version = "dev"
	Commit  = "unknown"
)

// Resolve returns the release version when one was stamped in, otherwise
// the module version and VCS revision recorded by the Go toolchain.
func Resolve() string {
	return resolveVersion(Version, Commit, debug.ReadBuildInfo)
}

func resolveVersion(base, commit string, readBuildInfo func() (*debug.BuildInfo, bool)) string {
	base = strings.TrimPrefix(strings.TrimSpace(base), "v")
	if base != "" && base != "dev" {
		return base
	}

	info, ok := readBuildInfo()
	if !ok || info == nil {
		return withRevision("0.0.0", commit, false)
	}

	moduleVersion := strings.TrimPrefix(info.Main.Version, "v")
	if moduleVersion != "" && moduleVersion != "(devel)" {
		return moduleVersion
	}

	revision, dirty := commit, false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	return withRevision("0.0.0", revision, dirty)
}

func withRevision(base, revision string, dirty bool) string {
	revision = strings.TrimSpace(revision)
	if revision == "" || revision == "unknown" {
		return base
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}

	suffix := "g" + revision
	if dirty {
		suffix += "-dirty"
	}
	return base + "-" + suffix
}
