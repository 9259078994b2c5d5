/*
 * @Description: 文件存储相关常量
 * @Author: 安知鱼
 * @Date: 2026-03-02 10:20:13
 * @LastEditTime: 2026-04-08 09:41:52
 * @LastEditors: 安知鱼
 */
package constant

// StorageBackendType 定义了文件存储后端的类型
type StorageBackendType string

// 支持的存储后端
const (
	StorageBackendLocal StorageBackendType = "local"
	StorageBackendS3    StorageBackendType = "aws_s3"
)

// 存储地址前缀。Storage.URL 形如 "osfs://./uploads" 或 "s3://bucket/prefix"
const (
	StorageSchemeLocal = "osfs://"
	StorageSchemeS3    = "s3://"

	// DefaultStorageURL 未配置时使用的本地目录
	DefaultStorageURL = "osfs://./data/uploads"
)

// 文件存储中的固定文件名与目录
const (
	// BuildInfoFileName 当前格式的元数据描述文件
	BuildInfoFileName = "build_info.json"
	// LegacyBuildInfoFileName 旧格式的元数据描述文件，只读，首次访问时迁移
	LegacyBuildInfoFileName = "app_info.json"
	// IndexesDirectory 二级索引根目录，以 "_" 开头的顶层目录不会被当作上传记录
	IndexesDirectory = "_indexes"
	// LatestUploadIndexName bundle_id -> 最新 upload_id 的索引目录
	LatestUploadIndexName = "latest_upload_by_bundle_id"
	// ReservedPrefix 顶层保留目录前缀
	ReservedPrefix = "_"
	// PlaceholderUploadPrefix 创建应用占位记录时使用的 upload_id 前缀
	PlaceholderUploadPrefix = "dummy-"
	// PlaceholderBundleVersion 占位记录的版本号
	PlaceholderBundleVersion = "-"
)
