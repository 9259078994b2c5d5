/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-20 13:07:24
 * @LastEditTime: 2026-04-14 10:05:31
 * @LastEditors: 安知鱼
 */
package repository

import (
	"context"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

// UserRepository 定义了所有用户数据操作的契约。
type UserRepository interface {
	// FindByUsername 根据用户名查找用户，未找到时返回 (nil, nil)
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create 创建用户，用户名重复时返回 constant.ErrConflict
	Create(ctx context.Context, user *model.User) error

	// UpdatePassword 替换密码哈希，返回用户是否存在
	UpdatePassword(ctx context.Context, username, passwordHash string) (bool, error)

	// Count 统计用户总数
	Count(ctx context.Context) (int64, error)

	// List 按 id 升序返回全部用户
	List(ctx context.Context) ([]*model.User, error)

	// Delete 删除用户，返回用户是否存在
	Delete(ctx context.Context, username string) (bool, error)

	// UpdateRole 修改角色，返回用户是否存在
	UpdateRole(ctx context.Context, username string, role constant.UserRole) (bool, error)

	// Rename 修改用户名，新用户名已被占用时返回 constant.ErrConflict
	Rename(ctx context.Context, oldUsername, newUsername string) (bool, error)
}
