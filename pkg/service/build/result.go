package build

import "github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"

// Source 标记读结果来自哪个存储
type Source string

const (
	// SourcePrimary 结果来自元数据库
	SourcePrimary Source = "primary"
	// SourceFallback 结果来自文件存储
	SourceFallback Source = "fallback"
	// SourceUnavailable 两个存储都无法给出结果
	SourceUnavailable Source = "unavailable"
)

// Result 读路径的统一返回值。Degraded 表示元数据库不可用，结果可能不完整。
type Result[T any] struct {
	Value    T      `json:"value"`
	Source   Source `json:"source"`
	Degraded bool   `json:"degraded"`
}

// IngestResult 一次上传的结果
type IngestResult struct {
	Record *model.BuildRecord
	// Replaced 被本次上传替换掉的旧记录
	Replaced *model.BuildRecord
	// Degraded 为 true 时安装包已写入文件存储，但未能同步到元数据库
	Degraded  bool
	MirrorErr error
}

// DeleteResult 删除操作的结果，两个存储独立删除，"已不存在"不视为错误
type DeleteResult struct {
	UploadID        string
	MetadataDeleted bool
	BlobDeleted     bool
	MetadataErr     error
	BlobErr         error
}

// Degraded 任一存储删除失败
func (r DeleteResult) Degraded() bool {
	return r.MetadataErr != nil || r.BlobErr != nil
}

// Found 任一存储中存在过该上传
func (r DeleteResult) Found() bool {
	return r.MetadataDeleted || r.BlobDeleted
}

// ReconcileReport 一次对账的统计
type ReconcileReport struct {
	// Mirrored 补写到元数据库的描述文件数
	Mirrored int `json:"mirrored"`
	// Dropped 文件已不存在而被删除的元数据行数
	Dropped int `json:"dropped"`
	// Skipped 无法读取描述文件而跳过的上传数
	Skipped int `json:"skipped"`
}
