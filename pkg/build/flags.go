// SPDX-License-Identifier: MIT
//
// Package build provides the application name, version and commit embedded
// at link time:
//
//	go build -ldflags "-X wavefield/pkg/build.buildName=wavefield \
//	  -X wavefield/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds carry no ldflags; their version and commit come from
// the Go toolchain's embedded VCS stamp instead.
package build

import (
	"fmt"
	"runtime/debug"
)

// Description is the one-line summary shown by the CLI.
const Description = "Audio-reactive wave field visualiser"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the flags for --version.
func (f ldFlags) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "wavefield",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the ldflags into the build information. A release build
// sets all four flags; setting some but not all is an error. Without any
// ldflags the VCS stamp is used where present.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		fromBuildInfo()
		return nil
	}

	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

func fromBuildInfo() {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		buildFlags.Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			buildFlags.Commit = s.Value
		case "vcs.time":
			buildFlags.Time = s.Value
		}
	}
}

// GetBuildFlags returns the current build information. Call Initialize
// first.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
