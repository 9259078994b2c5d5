package build

import (
	"fmt"
	"net/url"
	"strings"

	"howett.net/plist"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

// itms-services 安装清单的结构
type otaManifest struct {
	Items []otaItem `plist:"items"`
}

type otaItem struct {
	Assets   []otaAsset  `plist:"assets"`
	Metadata otaMetadata `plist:"metadata"`
}

type otaAsset struct {
	Kind string `plist:"kind"`
	URL  string `plist:"url"`
}

type otaMetadata struct {
	BundleIdentifier string `plist:"bundle-identifier"`
	BundleVersion    string `plist:"bundle-version"`
	Kind             string `plist:"kind"`
	Title            string `plist:"title"`
}

// InstallManifest 生成 iOS 无线安装使用的 manifest.plist，baseURL 为服务的外部访问地址
func InstallManifest(record *model.BuildRecord, baseURL string) ([]byte, error) {
	if record.Platform != constant.PlatformIOS {
		return nil, fmt.Errorf("%w: 只有 iOS 安装包提供安装清单", constant.ErrNotFound)
	}
	m := otaManifest{Items: []otaItem{{
		Assets: []otaAsset{{
			Kind: "software-package",
			URL:  strings.TrimRight(baseURL, "/") + record.FileURL(),
		}},
		Metadata: otaMetadata{
			BundleIdentifier: record.BundleID,
			BundleVersion:    record.BundleVersion,
			Kind:             "software",
			Title:            record.AppTitle,
		},
	}}}
	return plist.MarshalIndent(m, plist.XMLFormat, "\t")
}

// InstallURL 返回设备上直接安装使用的链接：iOS 为 itms-services 协议，Android 为安装包下载地址
func InstallURL(record *model.BuildRecord, baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if record.Platform == constant.PlatformIOS {
		manifest := fmt.Sprintf("%s/get/%s/app.plist", base, record.UploadID)
		return "itms-services://?action=download-manifest&url=" + url.QueryEscape(manifest)
	}
	return base + record.FileURL()
}
