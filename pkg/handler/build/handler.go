/*
 * @Description: 安装包上传、查询、下载与删除接口
 * @Author: 安知鱼
 * @Date: 2026-03-08 15:02:44
 * @LastEditTime: 2026-04-12 11:20:37
 * @LastEditors: 安知鱼
 */
package build_handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/blob"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/build"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/setting"
)

// UploadFormField 上传表单中安装包字段的名称
const UploadFormField = "app_file"

const apkContentType = "application/vnd.android.package-archive"

// Handler 封装了所有与安装包相关的 HTTP 接口
type Handler struct {
	buildSvc   build.Service
	settingSvc setting.SettingService
	baseURL    string
	maxBytes   int64
}

// NewHandler 创建 Handler。baseURL 为空时按请求的 Host 推导，maxSizeMB <= 0 表示不限制大小
func NewHandler(buildSvc build.Service, settingSvc setting.SettingService, baseURL string, maxSizeMB int) *Handler {
	return &Handler{
		buildSvc:   buildSvc,
		settingSvc: settingSvc,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxBytes:   int64(maxSizeMB) << 20,
	}
}

// externalBaseURL 返回对外访问地址
func (h *Handler) externalBaseURL(c *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// readUpload 读取 multipart 中的安装包，按文件扩展名判断平台
func (h *Handler) readUpload(c *gin.Context) (constant.Platform, []byte, error) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	fh, err := c.FormFile(UploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return "", nil, errTooLarge
		}
		return "", nil, fmt.Errorf("%w: 缺少 %s 文件: %v", constant.ErrBadRequest, UploadFormField, err)
	}
	platform, err := constant.PlatformFromFilename(fh.Filename)
	if err != nil {
		return "", nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	return platform, raw, nil
}

var errTooLarge = errors.New("上传文件超过大小限制")

// ingest 检查重复版本策略后写入安装包。策略为 error 且已存在不同内容的同版本构建时返回 ErrConflict。
func (h *Handler) ingest(c *gin.Context) (*build.IngestResult, error) {
	platform, raw, err := h.readUpload(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()

	if h.settingSvc != nil && h.settingSvc.DuplicatePolicy(ctx) == constant.DuplicatePolicyError {
		candidate, err := h.buildSvc.Inspect(platform, raw)
		if err != nil {
			return nil, err
		}
		existing, err := h.buildSvc.ListByBundle(ctx, candidate.BundleID)
		if err != nil {
			return nil, err
		}
		if dup := build.DuplicateOf(existing.Value, candidate); dup != nil && dup.UploadID != candidate.UploadID {
			return nil, fmt.Errorf("%w: %s 已存在相同版本的上传 %s", constant.ErrConflict, candidate.BundleID, dup.UploadID)
		}
	}

	res, err := h.buildSvc.Ingest(ctx, platform, raw)
	if err != nil {
		return nil, err
	}
	if res.Degraded {
		c.Header("X-Metadata-Degraded", "true")
	}
	return res, nil
}

func uploadStatus(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return response.StatusFromError(err)
}

// UploadPlain 兼容旧客户端的上传接口，返回纯文本的安装页地址
// @Summary      上传安装包（纯文本）
// @Description  上传 .ipa 或 .apk 文件，成功后返回安装页的绝对地址
// @Tags         安装包
// @Accept       multipart/form-data
// @Produce      plain
// @Security     AuthToken
// @Param        app_file  formData  file  true  "安装包文件"
// @Success      200  {string}  string  "安装页地址"
// @Failure      400  {string}  string  "安装包无效"
// @Failure      401  {string}  string  "令牌无效"
// @Failure      409  {string}  string  "版本已存在"
// @Router       /upload [post]
func (h *Handler) UploadPlain(c *gin.Context) {
	res, err := h.ingest(c)
	if err != nil {
		status := uploadStatus(err)
		if status >= http.StatusInternalServerError {
			logrus.WithField("module", "build_handler").Errorf("上传失败: %v", err)
			c.String(status, "上传失败")
			return
		}
		c.String(status, err.Error())
		return
	}
	c.String(http.StatusOK, "%s/get/%s", h.externalBaseURL(c), res.Record.UploadID)
}

// UploadJSON 上传安装包并返回构建记录
// @Summary      上传安装包
// @Description  上传 .ipa 或 .apk 文件，解析后写入文件存储和元数据库
// @Tags         安装包
// @Accept       multipart/form-data
// @Produce      json
// @Security     AuthToken
// @Param        app_file  formData  file  true  "安装包文件"
// @Success      200  {object}  response.Response{data=model.BuildRecord}  "上传成功"
// @Failure      400  {object}  response.Response  "安装包无效"
// @Failure      401  {object}  response.Response  "令牌无效"
// @Failure      409  {object}  response.Response  "版本已存在"
// @Failure      413  {object}  response.Response  "文件过大"
// @Router       /api/upload [post]
func (h *Handler) UploadJSON(c *gin.Context) {
	res, err := h.ingest(c)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		response.FromError(c, err, "上传失败")
		return
	}
	message := "上传成功"
	if res.Replaced != nil {
		message = "上传成功，已替换旧版本 " + res.Replaced.UploadID
	}
	response.Success(c, res.Record, message)
}

// Delete 删除一次上传
// @Summary      删除上传
// @Description  同时删除元数据与文件存储中的上传目录，/delete/{upload_id} 为旧版路径
// @Tags         安装包
// @Produce      json
// @Security     AuthToken
// @Param        upload_id  path  string  true  "上传 ID"
// @Success      200  {object}  response.Response  "删除成功"
// @Failure      404  {object}  response.Response  "上传不存在"
// @Router       /api/delete/{upload_id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	uploadID := c.Param("upload_id")
	res := h.buildSvc.Delete(c.Request.Context(), uploadID)

	if res.BlobErr != nil {
		response.FromError(c, res.BlobErr, "删除上传失败")
		return
	}
	if !res.Found() {
		response.Fail(c, http.StatusNotFound, "上传不存在")
		return
	}
	if res.MetadataErr != nil {
		c.Header("X-Metadata-Degraded", "true")
	}
	response.Success(c, gin.H{"upload_id": uploadID}, "删除成功")
}

// LatestUpload 获取 bundle 最新的一次上传
// @Summary      获取最新上传
// @Tags         安装包
// @Produce      json
// @Param        bundle_id  path  string  true  "Bundle ID"
// @Success      200  {object}  response.Response{data=model.BuildRecord}  "获取成功"
// @Failure      400  {object}  response.Response  "Bundle ID 无效"
// @Failure      404  {object}  response.Response  "没有上传"
// @Router       /api/bundle/{bundle_id}/latest_upload [get]
func (h *Handler) LatestUpload(c *gin.Context) {
	res, err := h.buildSvc.LatestBuild(c.Request.Context(), c.Param("bundle_id"))
	if err != nil {
		response.FromError(c, err, "获取最新上传失败")
		return
	}
	markSource(c, res.Source, res.Degraded)
	response.Success(c, res.Value, "获取成功")
}

// ListBuilds 列出 bundle 的全部构建，按上传时间倒序
// @Summary      列出构建
// @Tags         安装包
// @Produce      json
// @Param        bundle_id  path  string  true  "Bundle ID"
// @Success      200  {object}  response.Response{data=[]model.BuildRecord}  "获取成功"
// @Failure      400  {object}  response.Response  "Bundle ID 无效"
// @Router       /api/bundle/{bundle_id}/builds [get]
func (h *Handler) ListBuilds(c *gin.Context) {
	res, err := h.buildSvc.ListByBundle(c.Request.Context(), c.Param("bundle_id"))
	if err != nil {
		response.FromError(c, err, "获取构建列表失败")
		return
	}
	markSource(c, res.Source, res.Degraded)
	response.Success(c, res.Value, "获取成功")
}

// GetUpload 获取一次上传的构建记录
// @Summary      获取上传详情
// @Tags         安装包
// @Produce      json
// @Param        upload_id  path  string  true  "上传 ID"
// @Success      200  {object}  response.Response{data=model.BuildRecord}  "获取成功"
// @Failure      404  {object}  response.Response  "上传不存在"
// @Router       /api/uploads/{upload_id} [get]
func (h *Handler) GetUpload(c *gin.Context) {
	res, err := h.buildSvc.Resolve(c.Request.Context(), c.Param("upload_id"))
	if err != nil {
		response.FromError(c, err, "获取上传失败")
		return
	}
	markSource(c, res.Source, res.Degraded)
	response.Success(c, res.Value, "获取成功")
}

// Download 以流的方式返回安装包
// @Summary      下载安装包
// @Tags         安装包
// @Produce      octet-stream
// @Param        upload_id  path  string  true  "上传 ID"
// @Param        file       path  string  true  "app.ipa 或 app.apk"
// @Success      200  {file}  binary  "安装包"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Router       /api/uploads/{upload_id}/{file} [get]
func (h *Handler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.buildSvc.Resolve(ctx, c.Param("upload_id"))
	if err != nil {
		response.FromError(c, err, "获取上传失败")
		return
	}
	record := res.Value
	file := c.Param("file")
	if file != record.Platform.AppFileName() {
		response.Fail(c, http.StatusNotFound, "文件不存在")
		return
	}
	h.stream(c, record)
}

func (h *Handler) stream(c *gin.Context, record *model.BuildRecord) {
	rc, err := h.buildSvc.OpenAppFile(c.Request.Context(), record)
	if err != nil {
		if blob.IsNotFound(err) {
			response.Fail(c, http.StatusNotFound, "文件不存在")
			return
		}
		response.FromError(c, err, "读取安装包失败")
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if record.Platform == constant.PlatformAndroid {
		contentType = apkContentType
	}
	size := record.FileSize
	if size <= 0 {
		size = -1
	}
	name := record.Platform.AppFileName()
	c.DataFromReader(http.StatusOK, size, contentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, name),
	})
}

// markSource 通过响应头告知调用方数据来源
func markSource(c *gin.Context, source build.Source, degraded bool) {
	c.Header("X-Data-Source", string(source))
	if degraded {
		c.Header("X-Metadata-Degraded", "true")
	}
}
