/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-02 00:43:46
 * @LastEditTime: 2026-03-06 15:12:40
 * @LastEditors: 安知鱼
 */
package repository

import "context"

// Repositories 结构体聚合了所有在单个事务中可能用到的仓储接口。
type Repositories struct {
	Build   BuildRepository
	Setting SettingRepository
	User    UserRepository
	Review  ReviewRepository
}

// TransactionManager 定义了事务管理器的接口。
// 如果函数返回错误，事务将回滚；否则，事务将提交。
type TransactionManager interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}
