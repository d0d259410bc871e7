// Package buildinfo reports the version stamped into the replayctl binary.
package buildinfo

import "runtime/debug"

var version = "dev"

// SetVersion lets main override the version from -ldflags.
func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

// Version returns the release tag, the module version recorded by the Go
// toolchain, or "dev".
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// Revision returns the short VCS revision embedded at build time, with a
// "+dirty" suffix for modified trees. It is empty when unavailable.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision != "" && modified {
		revision += "+dirty"
	}
	return revision
}
