package inspect

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"howett.net/plist"
)

// maxPlistSize Info.plist 解压后的上限
const maxPlistSize = 4 << 20

// infoPlist 只声明需要的字段
type infoPlist struct {
	BundleIdentifier   string `plist:"CFBundleIdentifier"`
	BundleDisplayName  string `plist:"CFBundleDisplayName"`
	BundleName         string `plist:"CFBundleName"`
	ShortVersionString string `plist:"CFBundleShortVersionString"`
	BundleVersion      string `plist:"CFBundleVersion"`
}

// isAppInfoPlist 只接受 Payload/<name>.app/Info.plist，忽略嵌套的扩展与框架
func isAppInfoPlist(name string) bool {
	parts := strings.Split(name, "/")
	return len(parts) == 3 &&
		parts[0] == "Payload" &&
		strings.HasSuffix(parts[1], ".app") && len(parts[1]) > len(".app") &&
		parts[2] == "Info.plist"
}

func inspectIPA(raw []byte) (*metadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, invalid("无法打开 IPA 压缩包: %v", err)
	}

	var entry *zip.File
	for _, f := range zr.File {
		if isAppInfoPlist(f.Name) {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, invalid("IPA 中未找到 Payload/*.app/Info.plist")
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, invalid("无法读取 Info.plist: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPlistSize+1))
	if err != nil {
		return nil, invalid("无法读取 Info.plist: %v", err)
	}
	if len(data) > maxPlistSize {
		return nil, invalid("Info.plist 过大")
	}

	var info infoPlist
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, invalid("无法解析 Info.plist: %v", err)
	}

	title := info.BundleDisplayName
	if title == "" {
		title = info.BundleName
	}
	meta := &metadata{
		bundleID:      strings.TrimSpace(info.BundleIdentifier),
		title:         strings.TrimSpace(title),
		bundleVersion: strings.TrimSpace(info.ShortVersionString),
	}
	if build := strings.TrimSpace(info.BundleVersion); build != "" {
		meta.buildNumber = &build
	}
	return meta, nil
}
