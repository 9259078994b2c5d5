/*
 * @Description: 构建记录元数据操作的契约
 * @Author: 安知鱼
 * @Date: 2026-03-02 14:40:18
 * @LastEditTime: 2026-04-10 19:03:26
 * @LastEditors: 安知鱼
 */
package repository

import (
	"context"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

// BuildRepository 定义了 apps 表的操作契约。
// 元数据库未配置或连接失败时，所有方法返回包装了 constant.ErrStoreUnavailable 的错误。
type BuildRepository interface {
	// Upsert 按 upload_id 插入或整体覆盖一条记录
	Upsert(ctx context.Context, record *model.BuildRecord) error

	// FindByUploadID 未找到时返回 (nil, nil)
	FindByUploadID(ctx context.Context, uploadID string) (*model.BuildRecord, error)

	// FindAll 返回全部记录，不保证顺序
	FindAll(ctx context.Context) ([]*model.BuildRecord, error)

	// FindByBundleID 返回某个 bundle 的全部记录，不保证顺序
	FindByBundleID(ctx context.Context, bundleID string) ([]*model.BuildRecord, error)

	// FindByDuplicateKey 按重复检测键查找，未找到时返回 (nil, nil)
	FindByDuplicateKey(ctx context.Context, key model.DuplicateKey) (*model.BuildRecord, error)

	// UpdateAppInfo 将展示字段写入某个 bundle 的全部记录，返回受影响行数
	UpdateAppInfo(ctx context.Context, bundleID string, update model.AppInfoUpdate) (int64, error)

	// Delete 返回记录删除前是否存在
	Delete(ctx context.Context, uploadID string) (bool, error)
}
