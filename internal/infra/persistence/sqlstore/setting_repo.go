package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
)

const tableSettings = "settings"

// settingRepository 是 SettingRepository 接口基于 SQL 的实现
type settingRepository struct {
	store
}

// NewSettingRepository 是 settingRepository 的构造函数
func NewSettingRepository(drv dialect.Driver) repository.SettingRepository {
	return &settingRepository{store: newStore(drv)}
}

// FindByKey 实现按键查找配置的接口
func (r *settingRepository) FindByKey(ctx context.Context, key string) (*model.Setting, error) {
	if err := r.ready("find setting"); err != nil {
		return nil, err
	}
	b := r.builder()
	query, args := b.Select("key", "value", "updated_at").
		From(b.Table(tableSettings)).
		Where(entsql.EQ("key", key)).
		Limit(1).
		Query()

	var found *model.Setting
	err := r.query(ctx, "find setting", query, args, func(rows *entsql.Rows) error {
		var (
			s         model.Setting
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&s.Key, &s.Value, &updatedAt); err != nil {
			return err
		}
		if updatedAt.Valid {
			s.UpdatedAt = updatedAt.Time.UTC()
		}
		found = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Save 按 key 插入或覆盖
func (r *settingRepository) Save(ctx context.Context, setting *model.Setting) error {
	if err := r.ready("save setting"); err != nil {
		return err
	}
	value, err := setting.Value.Value()
	if err != nil {
		return fmt.Errorf("序列化配置 %s 失败: %w", setting.Key, err)
	}
	if setting.UpdatedAt.IsZero() {
		setting.UpdatedAt = time.Now().UTC()
	}
	query, args := r.builder().Insert(tableSettings).
		Columns("key", "value", "updated_at").
		Values(setting.Key, value, setting.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	_, err = r.exec(ctx, "save setting", query, args)
	return err
}
