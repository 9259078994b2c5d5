/*
 * @Description: 应用（bundle）维度的管理接口
 * @Author: 安知鱼
 * @Date: 2026-03-09 10:21:06
 * @LastEditTime: 2026-04-11 17:42:19
 * @LastEditors: 安知鱼
 */
package app_handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/build"
)

// Handler 负责应用列表、创建与编辑
type Handler struct {
	buildSvc build.Service
}

// NewHandler 是 Handler 的构造函数。
func NewHandler(buildSvc build.Service) *Handler {
	return &Handler{buildSvc: buildSvc}
}

// ListApps 列出所有应用，每个 bundle 一条最新的记录
// @Summary      应用列表
// @Tags         应用管理
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.BuildRecord}  "获取成功"
// @Router       /api/apps [get]
func (h *Handler) ListApps(c *gin.Context) {
	res, err := h.buildSvc.ListApps(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "获取应用列表失败")
		return
	}
	c.Header("X-Data-Source", string(res.Source))
	response.Success(c, res.Value, "获取成功")
}

// CreateApp 为尚未上传过的应用创建占位记录
// @Summary      创建应用
// @Tags         应用管理
// @Accept       json
// @Produce      json
// @Security     AuthToken
// @Param        body  body  model.CreateAppRequest  true  "应用信息"
// @Success      201  {object}  response.Response{data=model.BuildRecord}  "创建成功"
// @Failure      400  {object}  response.Response  "参数无效"
// @Failure      409  {object}  response.Response  "应用已存在"
// @Router       /api/apps [post]
func (h *Handler) CreateApp(c *gin.Context) {
	var req model.CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数无效: "+err.Error())
		return
	}

	res, err := h.buildSvc.CreateApp(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err, "创建应用失败")
		return
	}
	if res.Degraded {
		c.Header("X-Metadata-Degraded", "true")
	}
	response.SuccessWithStatus(c, http.StatusCreated, res.Record, "创建成功")
}

// UpdateApp 修改应用的展示信息，作用于该 bundle 的所有构建
// @Summary      编辑应用信息
// @Tags         应用管理
// @Accept       json
// @Produce      json
// @Security     AuthToken
// @Param        bundle_id  path  string               true  "Bundle ID"
// @Param        body       body  model.AppInfoUpdate  true  "展示信息"
// @Success      200  {object}  response.Response{data=[]model.BuildRecord}  "更新成功"
// @Failure      404  {object}  response.Response  "应用不存在"
// @Router       /api/apps/{bundle_id} [put]
func (h *Handler) UpdateApp(c *gin.Context) {
	var req model.AppInfoUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数无效: "+err.Error())
		return
	}

	res, err := h.buildSvc.UpdateAppInfo(c.Request.Context(), c.Param("bundle_id"), req)
	if err != nil {
		response.FromError(c, err, "更新应用信息失败")
		return
	}
	if res.Degraded {
		c.Header("X-Metadata-Degraded", "true")
	}
	response.Success(c, res.Value, "更新成功")
}
