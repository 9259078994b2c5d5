/*
 * @Description: 安装包构建记录的领域模型
 * @Author: 安知鱼
 * @Date: 2026-03-02 11:05:27
 * @LastEditTime: 2026-04-12 10:31:48
 * @LastEditors: 安知鱼
 */
package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// BuildRecord 代表一次上传的安装包。
// 同时作为文件存储中 build_info.json 的序列化格式以及元数据库 apps 表的一行。
type BuildRecord struct {
	UploadID      string            `json:"upload_id"`
	Platform      constant.Platform `json:"platform"`
	BundleID      string            `json:"bundle_id"`
	AppTitle      string            `json:"app_title"`
	BundleVersion string            `json:"bundle_version"`
	// VersionCode 仅 Android 使用
	VersionCode *int64 `json:"version_code"`
	// BuildNumber 仅 iOS 使用 (CFBundleVersion)
	BuildNumber *string    `json:"build_number"`
	FileSize    int64      `json:"file_size"`
	CreatedAt   *time.Time `json:"created_at"`

	// 以下为展示字段，只能由管理员编辑，不来自安装包
	AppDescription *string `json:"app_description,omitempty"`
	AppPictureURL  *string `json:"app_picture_url,omitempty"`
}

// LegacyAppInfo 旧版 app_info.json 的结构，只存在 iOS 上传
type LegacyAppInfo struct {
	AppTitle      string `json:"app_title"`
	BundleID      string `json:"bundle_id"`
	BundleVersion string `json:"bundle_version"`
}

// DuplicateKey 用于在同一 bundle 内识别重复版本
type DuplicateKey struct {
	BundleID    string
	VersionCode *int64
	BuildNumber *string
}

// Empty 当平台对应的版本字段为空时，不做重复检测
func (k DuplicateKey) Empty() bool {
	return k.VersionCode == nil && k.BuildNumber == nil
}

// Matches 判断记录是否命中该重复键
func (k DuplicateKey) Matches(r *BuildRecord) bool {
	if r == nil || k.Empty() || r.BundleID != k.BundleID {
		return false
	}
	if k.VersionCode != nil {
		return r.VersionCode != nil && *r.VersionCode == *k.VersionCode
	}
	return r.BuildNumber != nil && *r.BuildNumber == *k.BuildNumber
}

// String 便于日志输出
func (k DuplicateKey) String() string {
	switch {
	case k.VersionCode != nil:
		return fmt.Sprintf("%s@code:%d", k.BundleID, *k.VersionCode)
	case k.BuildNumber != nil:
		return fmt.Sprintf("%s@build:%s", k.BundleID, *k.BuildNumber)
	}
	return k.BundleID + "@-"
}

// DuplicateKey 按平台取出重复检测键：android 使用 version_code，ios 使用 build_number
func (r *BuildRecord) DuplicateKey() DuplicateKey {
	key := DuplicateKey{BundleID: r.BundleID}
	switch r.Platform {
	case constant.PlatformAndroid:
		key.VersionCode = r.VersionCode
	case constant.PlatformIOS:
		key.BuildNumber = r.BuildNumber
	}
	return key
}

// AppFilePath 安装包在文件存储中的相对路径
func (r *BuildRecord) AppFilePath() string {
	return r.UploadID + "/" + r.Platform.AppFileName()
}

// FileURL 安装包的下载路径，写入元数据库 file_url 列
func (r *BuildRecord) FileURL() string {
	return fmt.Sprintf("/api/uploads/%s/%s", r.UploadID, r.Platform.AppFileName())
}

// IsPlaceholder 判断是否为"创建应用"时生成的占位记录
func (r *BuildRecord) IsPlaceholder() bool {
	return r.BundleVersion == constant.PlaceholderBundleVersion && r.FileSize == 0
}

// CreatedUnix 排序使用的时间戳，空值视为 0
func (r *BuildRecord) CreatedUnix() int64 {
	if r.CreatedAt == nil {
		return 0
	}
	return r.CreatedAt.UnixNano()
}

// Clone 返回一个深拷贝
func (r *BuildRecord) Clone() *BuildRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.VersionCode != nil {
		v := *r.VersionCode
		c.VersionCode = &v
	}
	if r.BuildNumber != nil {
		v := *r.BuildNumber
		c.BuildNumber = &v
	}
	if r.CreatedAt != nil {
		v := *r.CreatedAt
		c.CreatedAt = &v
	}
	if r.AppDescription != nil {
		v := *r.AppDescription
		c.AppDescription = &v
	}
	if r.AppPictureURL != nil {
		v := *r.AppPictureURL
		c.AppPictureURL = &v
	}
	return &c
}

// SortByCreatedDesc 按 created_at 倒序排列，空值排在最后；时间相同时按 upload_id 保证稳定
func SortByCreatedDesc(records []*BuildRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].CreatedUnix(), records[j].CreatedUnix()
		if ti != tj {
			return ti > tj
		}
		return records[i].UploadID < records[j].UploadID
	})
}

// AppInfoUpdate 管理员编辑应用展示信息
type AppInfoUpdate struct {
	AppTitle       string  `json:"app_title" binding:"required"`
	AppDescription *string `json:"app_description"`
	AppPictureURL  *string `json:"app_picture_url"`
}

// Apply 将展示字段写入记录，不改动 upload_id / created_at
func (u AppInfoUpdate) Apply(r *BuildRecord) {
	r.AppTitle = u.AppTitle
	r.AppDescription = u.AppDescription
	r.AppPictureURL = u.AppPictureURL
}

// CreateAppRequest 创建应用占位记录的请求体
type CreateAppRequest struct {
	AppTitle       string            `json:"app_title" binding:"required"`
	BundleID       string            `json:"bundle_id" binding:"required"`
	Platform       constant.Platform `json:"platform"`
	AppDescription *string           `json:"app_description"`
	AppPictureURL  *string           `json:"app_picture_url"`
}

// Int64Ptr / StringPtr 构造可空字段的小工具
func Int64Ptr(v int64) *int64 { return &v }

func StringPtr(v string) *string { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
