// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time. Any left at its
// default is filled from the VCS stamps the Go toolchain embeds.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

const (
	unknown        = "unknown"
	defaultVersion = "0.1.0-dev"
	shortCommitLen = 12
)

// Build identifies the running binary.
type Build struct {
	Version string
	Commit  string
	Dirty   bool
	Time    string
}

func (b Build) String() string {
	dirty := ""
	if b.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.Time)
}

// Current returns the build information for this binary.
func Current() Build {
	return resolve(debug.ReadBuildInfo)
}

// resolve merges the ldflags values with what readBuildInfo reports.
// Values set via ldflags always win.
func resolve(readBuildInfo func() (*debug.BuildInfo, bool)) Build {
	build := Build{
		Version: Version,
		Commit:  GitCommit,
		Dirty:   GitDirty == "true",
		Time:    BuildTime,
	}
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return build
	}

	if build.Version == defaultVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		build.Version = info.Main.Version
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	if build.Commit == unknown {
		if revision := settings["vcs.revision"]; revision != "" {
			build.Commit = revision[:min(len(revision), shortCommitLen)]
			build.Dirty = settings["vcs.modified"] == "true"
		}
	}
	if build.Time == unknown && settings["vcs.time"] != "" {
		build.Time = settings["vcs.time"]
	}
	return build
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return Current().String()
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes "<binary> <Full()>" to w for --version.
func Print(w io.Writer, binary string) {
	fmt.Fprintf(w, "%s %s\n", binary, Full())
}
