package version

import "runtime/debug"

// Set via -ldflags at release time.
var (
	Version   = ""
	GitCommit = ""
)

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

func init() {
	if Version == "" {
		Version = buildVersion()
	}
	if GitCommit == "" {
		GitCommit = buildCommit()
	}
}

// buildVersion returns the module version, or "dev" if unavailable.
func buildVersion() string {
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

func buildCommit() string {
	info, ok := readBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return "unknown"
}
