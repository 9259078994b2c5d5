/*
 * @Description: 管理员用户领域模型
 * @Author: 安知鱼
 * @Date: 2026-03-04 09:22:10
 * @LastEditTime: 2026-04-02 17:45:33
 * @LastEditors: 安知鱼
 */
package model

import (
	"time"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// ========= 领域模型定义 =========

type User struct {
	ID           uint              `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	Username     string            `json:"username"`
	PasswordHash string            `json:"-"`
	Role         constant.UserRole `json:"role"`
}

// IsAdmin owner 与 admin 都可以执行管理操作
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == constant.RoleOwner || u.Role == constant.RoleAdmin)
}

// UserUpdate 修改用户名或密码，零值字段保持不变
type UserUpdate struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
