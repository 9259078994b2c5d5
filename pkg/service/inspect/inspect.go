/*
 * @Description: 安装包解析，提取 bundle 标识、标题与版本信息
 * @Author: 安知鱼
 * @Date: 2026-03-03 10:44:19
 * @LastEditTime: 2026-04-06 21:13:50
 * @LastEditors: 安知鱼
 */
package inspect

import (
	"fmt"
	"time"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/blob"
)

// Inspector 从安装包原始字节中提取构建记录。
// 实现必须无副作用，失败时返回包装了 constant.ErrInvalidPackage 的错误，且不返回部分记录。
type Inspector interface {
	Inspect(platform constant.Platform, raw []byte) (*model.BuildRecord, error)
}

// PackageInspector 是默认的 Inspector 实现
type PackageInspector struct {
	now func() time.Time
}

// NewPackageInspector 创建解析器
func NewPackageInspector() *PackageInspector {
	return &PackageInspector{now: time.Now}
}

// metadata 各平台解析出的身份信息
type metadata struct {
	bundleID      string
	title         string
	bundleVersion string
	versionCode   *int64
	buildNumber   *string
}

// Inspect 按声明的平台解析安装包
func (i *PackageInspector) Inspect(platform constant.Platform, raw []byte) (*model.BuildRecord, error) {
	if len(raw) == 0 {
		return nil, invalid("文件为空")
	}

	var (
		meta *metadata
		err  error
	)
	switch platform {
	case constant.PlatformIOS:
		meta, err = inspectIPA(raw)
	case constant.PlatformAndroid:
		meta, err = inspectAPK(raw)
	default:
		return nil, invalid("不支持的平台 %q", platform)
	}
	if err != nil {
		return nil, err
	}

	if meta.bundleID == "" {
		return nil, invalid("缺少 bundle 标识")
	}
	// bundle_id 会作为索引文件名，必须在写入任何文件之前拒绝
	if err := blob.ValidateBundleID(meta.bundleID); err != nil {
		return nil, invalid("bundle 标识 %q 含有非法字符", meta.bundleID)
	}
	if meta.bundleVersion == "" {
		return nil, invalid("缺少版本号")
	}
	if meta.title == "" {
		meta.title = meta.bundleID
	}

	// 元数据库的时间列只保留到微秒
	createdAt := i.now().UTC().Truncate(time.Microsecond)
	return &model.BuildRecord{
		UploadID:      UploadID(raw),
		Platform:      platform,
		BundleID:      meta.bundleID,
		AppTitle:      meta.title,
		BundleVersion: meta.bundleVersion,
		VersionCode:   meta.versionCode,
		BuildNumber:   meta.buildNumber,
		FileSize:      int64(len(raw)),
		CreatedAt:     &createdAt,
	}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", constant.ErrInvalidPackage, fmt.Sprintf(format, args...))
}
