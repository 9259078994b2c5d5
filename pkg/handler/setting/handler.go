/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 12:26:45
 * @LastEditTime: 2026-04-10 21:05:33
 * @LastEditors: 安知鱼
 */
package setting_handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/setting"
)

// SettingHandler 封装了配置相关的控制器方法
type SettingHandler struct {
	settingSvc setting.SettingService
}

// NewSettingHandler 是 SettingHandler 的构造函数
func NewSettingHandler(settingSvc setting.SettingService) *SettingHandler {
	return &SettingHandler{settingSvc: settingSvc}
}

// DuplicatePolicyRequest 修改重复上传策略的请求体
type DuplicatePolicyRequest struct {
	Policy constant.DuplicatePolicy `json:"duplicate_upload_policy" binding:"required"`
}

// DuplicatePolicyResponse 重复上传策略
type DuplicatePolicyResponse struct {
	Policy constant.DuplicatePolicy `json:"duplicate_upload_policy"`
	// Persisted 为 false 表示元数据库不可用，策略只在当前进程内生效
	Persisted *bool `json:"persisted,omitempty"`
}

// GetDuplicatePolicy 获取重复上传策略
// @Summary      获取重复上传策略
// @Tags         设置管理
// @Produce      json
// @Security     AuthToken
// @Success      200  {object}  response.Response{data=DuplicatePolicyResponse}  "获取成功"
// @Router       /api/settings/duplicate-policy [get]
func (h *SettingHandler) GetDuplicatePolicy(c *gin.Context) {
	policy := h.settingSvc.DuplicatePolicy(c.Request.Context())
	response.Success(c, DuplicatePolicyResponse{Policy: policy}, "获取成功")
}

// UpdateDuplicatePolicy 修改重复上传策略
// @Summary      修改重复上传策略
// @Description  error: 已存在相同版本时拒绝上传；replace: 替换旧版本
// @Tags         设置管理
// @Accept       json
// @Produce      json
// @Security     AuthToken
// @Param        body  body  DuplicatePolicyRequest  true  "策略"
// @Success      200  {object}  response.Response{data=DuplicatePolicyResponse}  "更新成功"
// @Failure      400  {object}  response.Response  "策略无效"
// @Router       /api/settings/duplicate-policy [put]
func (h *SettingHandler) UpdateDuplicatePolicy(c *gin.Context) {
	var req DuplicatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}
	if !req.Policy.Valid() {
		response.Fail(c, http.StatusBadRequest, "策略只能是 error 或 replace")
		return
	}

	persisted, err := h.settingSvc.SetDuplicatePolicy(c.Request.Context(), req.Policy)
	if err != nil {
		response.FromError(c, err, "更新策略失败")
		return
	}
	message := "更新成功"
	if !persisted {
		message = "元数据库不可用，策略仅在当前进程内生效"
	}
	response.Success(c, DuplicatePolicyResponse{Policy: req.Policy, Persisted: &persisted}, message)
}
