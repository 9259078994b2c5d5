package repository

import (
	"context"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

// ReviewRepository 定义了评价数据操作的契约
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	// FindByBundleID 按创建时间倒序返回
	FindByBundleID(ctx context.Context, bundleID string) ([]*model.Review, error)
	// Reply 返回评价是否存在
	Reply(ctx context.Context, id int64, reply string) (bool, error)
}
