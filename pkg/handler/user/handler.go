/*
 * @Description: 用户管理控制器
 * @Author: 安知鱼
 * @Date: 2025-06-15 13:03:21
 * @LastEditTime: 2026-10-19 10:42:16
 * @LastEditors: 安知鱼
 */
package user_handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-appdist/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/user"
)

// UserHandler 封装用户相关的控制器方法
type UserHandler struct {
	userSvc user.UserService
}

// NewUserHandler 是 UserHandler 的构造函数
func NewUserHandler(userSvc user.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// CreateUserRequest 新建用户的请求体
type CreateUserRequest struct {
	Username string            `json:"username" binding:"required"`
	Password string            `json:"password" binding:"required"`
	Role     constant.UserRole `json:"role"`
}

// ChangeRoleRequest 修改角色的请求体
type ChangeRoleRequest struct {
	Role constant.UserRole `json:"role" binding:"required"`
}

// ListUsers 列出全部用户
// @Summary      用户列表
// @Tags         用户管理
// @Produce      json
// @Security     BasicAuth
// @Success      200  {object}  response.Response{data=[]model.User}  "获取成功"
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userSvc.ListUsers(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "获取用户列表失败")
		return
	}
	response.Success(c, users, "获取成功")
}

// CreateUser 管理员新建用户，只有 owner 可以创建 admin / owner
// @Summary      新建用户
// @Tags         用户管理
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        body  body  CreateUserRequest  true  "用户信息"
// @Success      201  {object}  response.Response{data=model.User}  "创建成功"
// @Failure      400  {object}  response.Response  "参数无效"
// @Failure      403  {object}  response.Response  "权限不足"
// @Failure      409  {object}  response.Response  "用户名已存在"
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数无效: "+err.Error())
		return
	}

	created, err := h.userSvc.CreateUser(c.Request.Context(), middleware.CurrentUser(c), req.Username, req.Password, req.Role)
	if err != nil {
		response.FromError(c, err, "创建用户失败")
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, created, "创建成功")
}

// DeleteUser 删除用户，owner 不可删除
// @Summary      删除用户
// @Tags         用户管理
// @Produce      json
// @Security     BasicAuth
// @Param        username  path  string  true  "用户名"
// @Success      200  {object}  response.Response  "删除成功"
// @Failure      403  {object}  response.Response  "权限不足"
// @Failure      404  {object}  response.Response  "用户不存在"
// @Router       /api/users/{username} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userSvc.DeleteUser(c.Request.Context(), middleware.CurrentUser(c), c.Param("username")); err != nil {
		response.FromError(c, err, "删除用户失败")
		return
	}
	response.Success(c, nil, "删除成功")
}

// ChangeRole 修改用户角色，授予 owner 时原 owner 降级为 admin
// @Summary      修改角色
// @Tags         用户管理
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        username  path  string             true  "用户名"
// @Param        body      body  ChangeRoleRequest  true  "新角色"
// @Success      200  {object}  response.Response{data=model.User}  "修改成功"
// @Failure      400  {object}  response.Response  "参数无效"
// @Failure      403  {object}  response.Response  "权限不足"
// @Failure      404  {object}  response.Response  "用户不存在"
// @Router       /api/users/{username}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数无效: "+err.Error())
		return
	}
	u, err := h.userSvc.ChangeRole(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"), req.Role)
	if err != nil {
		response.FromError(c, err, "修改角色失败")
		return
	}
	response.Success(c, u, "修改成功")
}

// UpdateUser 修改用户名或密码
// @Summary      修改用户
// @Tags         用户管理
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Param        username  path  string           true  "用户名"
// @Param        body      body  model.UserUpdate  true  "新用户名 / 新密码，留空表示不修改"
// @Success      200  {object}  response.Response{data=model.User}  "修改成功"
// @Failure      403  {object}  response.Response  "权限不足"
// @Failure      409  {object}  response.Response  "用户名已存在"
// @Router       /api/users/{username} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req model.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数无效: "+err.Error())
		return
	}
	u, err := h.userSvc.UpdateUser(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"), req)
	if err != nil {
		response.FromError(c, err, "修改用户失败")
		return
	}
	response.Success(c, u, "修改成功")
}

// Me 返回当前通过 Basic 认证登录的用户
// @Summary      当前用户
// @Tags         用户管理
// @Produce      json
// @Security     BasicAuth
// @Success      200  {object}  response.Response{data=model.User}  "获取成功"
// @Router       /api/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	current := middleware.CurrentUser(c)
	if current == nil {
		response.Fail(c, http.StatusNotFound, "当前请求使用令牌认证，没有关联用户")
		return
	}
	response.Success(c, current, "获取成功")
}
