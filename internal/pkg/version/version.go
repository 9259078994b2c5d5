package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// 这些变量将在构建时通过 ldflags 注入
var (
	Version   = "dev"             // 版本号，如 v1.0.0
	Commit    = "unknown"         // Git commit hash
	Date      = "unknown"         // 构建时间
	GoVersion = runtime.Version() // Go 版本
)

// ModulePath 本服务的模块路径
const ModulePath = "github.com/anzhiyu-c/anheyu-appdist"

const unknown = "unknown"

// readBuildInfo 便于测试替换
var readBuildInfo = debug.ReadBuildInfo

// vcsSetting 从构建信息中读取 vcs.* 字段
func vcsSetting(key string) (string, bool) {
	info, ok := readBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		if s.Key == key && s.Value != "" {
			return s.Value, true
		}
	}
	return "", false
}

// GetVersion 返回应用版本号，ldflags 注入优先，其次是 go install 记录的模块版本
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "unknown (no build info)"
	}
	if info.Main.Path == ModulePath && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// GetCommit 返回短 commit hash
func GetCommit() string {
	if Commit != unknown && Commit != "" {
		return Commit
	}
	rev, ok := vcsSetting("vcs.revision")
	if !ok {
		return unknown
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if modified, _ := vcsSetting("vcs.modified"); modified == "true" {
		rev += "-dirty"
	}
	return rev
}

// GetBuildDate 返回构建时间
func GetBuildDate() string {
	if Date != unknown && Date != "" {
		return Date
	}
	ts, ok := vcsSetting("vcs.time")
	if !ok {
		return unknown
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format(time.DateTime)
	}
	return ts
}

// BuildInfo 包含构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo 返回详细的构建信息
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		Commit:    GetCommit(),
		Date:      GetBuildDate(),
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String 形如 "v1.0.0, commit abc1234, built at 2026-01-01 00:00:00"
func (b BuildInfo) String() string {
	parts := []string{b.Version}
	if b.Commit != unknown {
		parts = append(parts, fmt.Sprintf("commit %s", b.Commit))
	}
	if b.Date != unknown {
		parts = append(parts, fmt.Sprintf("built at %s", b.Date))
	}
	return strings.Join(parts, ", ")
}

// GetVersionString 返回完整的版本字符串
func GetVersionString() string {
	return GetBuildInfo().String()
}
