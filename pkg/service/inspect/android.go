package inspect

import (
	"bytes"
	"strings"

	"github.com/shogo82148/androidbinary/apk"
)

func inspectAPK(raw []byte) (meta *metadata, err error) {
	// androidbinary 在遇到损坏的资源表时可能 panic
	defer func() {
		if r := recover(); r != nil {
			meta, err = nil, invalid("解析 APK 失败: %v", r)
		}
	}()

	pkg, err := apk.OpenZipReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, invalid("无法解析 AndroidManifest.xml: %v", err)
	}
	defer pkg.Close()

	manifest := pkg.Manifest()
	meta = &metadata{bundleID: strings.TrimSpace(pkg.PackageName())}

	if versionName, err := manifest.VersionName.String(); err == nil {
		meta.bundleVersion = strings.TrimSpace(versionName)
	}
	if code, err := manifest.VersionCode.Int32(); err == nil {
		v := int64(code)
		meta.versionCode = &v
	} else {
		return nil, invalid("缺少 versionCode: %v", err)
	}
	// 标签无法解析（例如资源表缺失）时回退为 bundle 标识
	if label, err := pkg.Label(nil); err == nil {
		meta.title = strings.TrimSpace(label)
	}
	return meta, nil
}
