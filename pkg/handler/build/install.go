package build_handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/build"
)

const manifestFile = "app.plist"

// Install 设备访问的安装入口，重定向到 itms-services 链接或 apk 下载地址
// @Summary      安装入口
// @Tags         安装包
// @Param        upload_id  path  string  true  "上传 ID"
// @Success      302  "重定向到安装链接"
// @Failure      404  {object}  response.Response  "上传不存在"
// @Router       /get/{upload_id} [get]
func (h *Handler) Install(c *gin.Context) {
	res, err := h.buildSvc.Resolve(c.Request.Context(), c.Param("upload_id"))
	if err != nil {
		response.FromError(c, err, "获取上传失败")
		return
	}
	c.Redirect(http.StatusFound, build.InstallURL(res.Value, h.externalBaseURL(c)))
}

// InstallFile 返回 iOS 安装清单，或以旧版路径下载安装包
// @Summary      安装清单与安装包
// @Tags         安装包
// @Param        upload_id  path  string  true  "上传 ID"
// @Param        file       path  string  true  "app.plist / app.ipa / app.apk"
// @Success      200  {file}  binary  "清单或安装包"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Router       /get/{upload_id}/{file} [get]
func (h *Handler) InstallFile(c *gin.Context) {
	res, err := h.buildSvc.Resolve(c.Request.Context(), c.Param("upload_id"))
	if err != nil {
		response.FromError(c, err, "获取上传失败")
		return
	}
	record := res.Value

	switch c.Param("file") {
	case manifestFile:
		data, err := build.InstallManifest(record, h.externalBaseURL(c))
		if err != nil {
			response.FromError(c, err, "生成安装清单失败")
			return
		}
		c.Data(http.StatusOK, "application/xml", data)
	case record.Platform.AppFileName():
		h.stream(c, record)
	default:
		response.Fail(c, http.StatusNotFound, "文件不存在")
	}
}
