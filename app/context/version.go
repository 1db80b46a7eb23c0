package context

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// VersionInfo describes the application version extracted from the build
// metadata embedded in the binary.
type VersionInfo struct {
	Semantic string
	Commit   string
	Dirty    bool
}

// GetVersion reads the version information from the build metadata.
func GetVersion() (*VersionInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("failed reading build info")
	}

	v := &VersionInfo{Semantic: bi.Main.Version}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Commit = setting.Value
		case "vcs.modified":
			v.Dirty = setting.Value == "true"
		}
	}

	return v, nil
}

// String returns a human-readable version string.
func (v *VersionInfo) String() string {
	s := v.Semantic
	if s == "" || s == "(devel)" {
		s = "devel"
	}
	if v.Commit != "" {
		commit := v.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		s = fmt.Sprintf("%s (%s)", s, commit)
	}
	if v.Dirty {
		s += " dirty"
	}

	return s
}
