// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"runtime/debug"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	if buildFlags != nil {
		origFlags = *buildFlags
	}

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	if buildFlags != nil {
		*buildFlags = origFlags
	}

	os.Exit(exitCode)
}

func resetFlags() {
	buildFlags = &ldFlags{
		Name:    "wavefield",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "BuildName is required"},
		{"Missing BuildTime", "wavefield", "", "abcdef123", "v1.0.0", "BuildTime is required"},
		{"Missing BuildCommit", "wavefield", "2025-04-13", "", "v1.0.0", "BuildCommit is required"},
		{"Missing BuildVersion", "wavefield", "2025-04-13", "abcdef123", "", "BuildVersion is required"},
		{"Success Case", "wavefield", "2025-04-13", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			want := ldFlags{Name: tt.buildName, Time: tt.buildTime, Commit: tt.buildCommit, Version: tt.buildVer}
			if *buildFlags != want {
				t.Errorf("buildFlags = %+v, want %+v", *buildFlags, want)
			}
		})
	}
}

func TestInitialize_DevelopmentBuild(t *testing.T) {
	orig := readBuildInfo
	defer func() { readBuildInfo = orig }()

	buildName, buildTime, buildCommit, buildVersion = "", "", "", ""

	tests := []struct {
		name string
		info *debug.BuildInfo
		ok   bool
		want ldFlags
	}{
		{
			name: "vcs stamp",
			info: &debug.BuildInfo{
				Main: debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123abcd"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				},
			},
			ok:   true,
			want: ldFlags{Name: "wavefield", Time: "2026-01-02T03:04:05Z", Commit: "0123abcd", Version: "dev"},
		},
		{
			name: "module version",
			info: &debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}},
			ok:   true,
			want: ldFlags{Name: "wavefield", Time: "unknown", Commit: "unknown", Version: "v0.3.0"},
		},
		{
			name: "no build info",
			ok:   false,
			want: ldFlags{Name: "wavefield", Time: "unknown", Commit: "unknown", Version: "dev"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			readBuildInfo = func() (*debug.BuildInfo, bool) { return tt.info, tt.ok }

			if err := Initialize(); err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			if *GetBuildFlags() != tt.want {
				t.Errorf("flags = %+v, want %+v", *GetBuildFlags(), tt.want)
			}
		})
	}
}

func TestGetBuildFlags(t *testing.T) {
	expected := ldFlags{
		Name:    "wavefield",
		Time:    "2025-04-13",
		Commit:  "abcdef123",
		Version: "v1.0.0",
	}
	buildFlags = &expected

	flags := GetBuildFlags()
	if *flags != expected {
		t.Errorf("GetBuildFlags() = %+v, want %+v", flags, expected)
	}
	if got, want := flags.String(), "v1.0.0 (commit abcdef123, built 2025-04-13)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
