package config

import "runtime/debug"

// Build metadata, set at link time with -ldflags -X
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo returns the build metadata. Binaries built without ldflags fall
// back to the module version and VCS stamp recorded by the go command.
func BuildInfo() (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	if version != "dev" {
		return version, commit, date
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit, date
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value[:min(len(s.Value), 12)]
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return version, commit, date
}
