/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-13 23:40:12
 * @LastEditTime: 2026-03-06 15:20:44
 * @LastEditors: 安知鱼
 */
package sqlstore

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
)

// transactionManager 是基于 Ent 方言驱动的事务管理器实现。
type transactionManager struct {
	drv dialect.Driver
}

// NewTransactionManager 是 transactionManager 的构造函数，drv 为 nil 时 Do 返回 ErrStoreUnavailable。
func NewTransactionManager(drv dialect.Driver) repository.TransactionManager {
	return &transactionManager{drv: drv}
}

// Do 开启一个事务，并将 Repositories 中的所有仓库包裹在这个事务中。
func (tm *transactionManager) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if tm.drv == nil {
		return unavailable("begin tx", nil)
	}
	tx, err := tm.drv.Tx(ctx)
	if err != nil {
		return unavailable("begin tx", err)
	}

	// 使用 defer 来确保发生 panic 时回滚
	defer func() {
		if v := recover(); v != nil {
			tx.Rollback()
			panic(v)
		}
	}()

	s := store{eq: tx, dialect: tm.drv.Dialect()}
	repos := repository.Repositories{
		Build:   &buildRepository{store: s},
		Setting: &settingRepository{store: s},
		User:    &userRepository{store: s},
		Review:  &reviewRepository{store: s},
	}

	if err := fn(repos); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("事务执行失败: %w, 回滚事务也失败: %v", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit tx", err)
	}
	return nil
}
