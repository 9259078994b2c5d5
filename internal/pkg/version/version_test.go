package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectedVersion(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })

	Version, Commit, Date = "v1.2.3", "abc1234", "2026-04-01 10:00:00"
	info := GetBuildInfo()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "abc1234", info.Commit)
	assert.Equal(t, "v1.2.3, commit abc1234, built at 2026-04-01 10:00:00", GetVersionString())
}

func TestBuildInfoFallback(t *testing.T) {
	oldV, oldC, oldD, oldRead := Version, Commit, Date, readBuildInfo
	t.Cleanup(func() { Version, Commit, Date, readBuildInfo = oldV, oldC, oldD, oldRead })

	Version, Commit, Date = "dev", unknown, unknown
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Path: ModulePath, Version: "v0.4.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
				{Key: "vcs.time", Value: "2026-04-01T10:00:00Z"},
			},
		}, true
	}

	assert.Equal(t, "v0.4.0", GetVersion())
	assert.Equal(t, "0123456-dirty", GetCommit())
	assert.Equal(t, "2026-04-01 10:00:00", GetBuildDate())
}

func TestNoBuildInfo(t *testing.T) {
	oldV, oldC, oldRead := Version, Commit, readBuildInfo
	t.Cleanup(func() { Version, Commit, readBuildInfo = oldV, oldC, oldRead })

	Version, Commit = "dev", unknown
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }

	assert.Equal(t, "unknown (no build info)", GetVersion())
	assert.Equal(t, unknown, GetCommit())
}
