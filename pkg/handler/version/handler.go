/*
 * @Description: 服务版本信息接口
 * @Author: 安知鱼
 * @Date: 2025-09-26 09:52:32
 * @LastEditTime: 2026-04-09 15:02:17
 * @LastEditors: 安知鱼
 */
package version

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-appdist/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
)

// Handler 版本信息处理器
type Handler struct {
	info func() version.BuildInfo
}

// NewHandler 创建版本信息处理器实例
func NewHandler() *Handler {
	return &Handler{info: version.GetBuildInfo}
}

// noStore 版本信息在滚动发布期间会变化，不允许任何一层缓存
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

// GetVersion 获取版本信息
// @Summary      获取版本信息
// @Description  获取服务的版本号、commit、构建时间与运行平台
// @Tags         辅助工具
// @Produce      json
// @Success      200  {object}  response.Response{data=version.BuildInfo}  "版本信息"
// @Router       /api/version [get]
func (h *Handler) GetVersion(c *gin.Context) {
	noStore(c)
	response.Success(c, h.info(), "获取版本信息成功")
}

// GetVersionString 获取版本字符串
// @Summary      获取版本字符串
// @Description  以纯文本返回版本号，便于部署脚本比对
// @Tags         辅助工具
// @Produce      plain
// @Success      200  {string}  string  "版本字符串"
// @Router       /api/version/string [get]
func (h *Handler) GetVersionString(c *gin.Context) {
	noStore(c)
	c.String(http.StatusOK, h.info().String())
}
