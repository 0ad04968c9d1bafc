package version

import "runtime/debug"

var version = "dev"

// Version reports the module version embedded by the build, falling back to
// the value set via -ldflags (or "dev") for local builds.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}

// Set overrides the fallback version string when non-empty.
func Set(v string) {
	if v != "" {
		version = v
	}
}
