/*
 * @Description: 文件存储中的上传目录布局：安装包、描述文件与二级索引
 * @Author: 安知鱼
 * @Date: 2026-03-04 14:02:36
 * @LastEditTime: 2026-04-10 18:25:07
 * @LastEditors: 安知鱼
 */
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/anzhiyu-c/anheyu-appdist/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// identifierPattern upload_id 与 bundle_id 共用的字符集，保证可以安全地作为路径片段
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{1,256}$`)

// Store 在 IStorageProvider 之上实现上传目录的读写。
// 布局:
//
//	<upload_id>/app.ipa | app.apk
//	<upload_id>/build_info.json
//	<upload_id>/app_info.json  (旧格式，只读)
//	_indexes/latest_upload_by_bundle_id/<bundle_id>.txt
type Store struct {
	provider storage.IStorageProvider
	// migrations 合并同一 upload_id 的并发迁移
	migrations singleflight.Group
	log        *logrus.Entry
}

// NewStore 创建文件存储
func NewStore(provider storage.IStorageProvider) *Store {
	return &Store{
		provider: provider,
		log:      logrus.WithField("module", "blob"),
	}
}

// Provider 返回底层存储驱动
func (s *Store) Provider() storage.IStorageProvider {
	return s.provider
}

// ValidateUploadID 校验 upload_id 可以作为顶层目录名使用
func ValidateUploadID(uploadID string) error {
	if !identifierPattern.MatchString(uploadID) || strings.HasPrefix(uploadID, constant.ReservedPrefix) ||
		strings.Trim(uploadID, ".") == "" {
		return fmt.Errorf("%w: 非法的 upload_id %q", constant.ErrBadRequest, uploadID)
	}
	return nil
}

// ValidateBundleID 校验 bundle_id 格式
func ValidateBundleID(bundleID string) error {
	if !identifierPattern.MatchString(bundleID) || strings.Trim(bundleID, ".") == "" {
		return fmt.Errorf("%w: 非法的 bundle_id %q", constant.ErrBadRequest, bundleID)
	}
	return nil
}

func filePath(uploadID, filename string) (string, error) {
	if err := ValidateUploadID(uploadID); err != nil {
		return "", err
	}
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Trim(filename, ".") == "" {
		return "", fmt.Errorf("%w: 非法的文件名 %q", constant.ErrBadRequest, filename)
	}
	return path.Join(uploadID, filename), nil
}

// Put 写入 upload_id/filename，目录不存在时创建
func (s *Store) Put(ctx context.Context, uploadID, filename string, data []byte) error {
	name, err := filePath(uploadID, filename)
	if err != nil {
		return err
	}
	if err := s.provider.MakeDirs(ctx, uploadID); err != nil {
		return fmt.Errorf("创建上传目录 %s 失败: %w", uploadID, err)
	}
	if err := s.provider.Put(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("写入文件 %s 失败: %w", name, err)
	}
	return nil
}

// Get 读取 upload_id/filename 的全部内容，不存在时返回 constant.ErrNotFound
func (s *Store) Get(ctx context.Context, uploadID, filename string) ([]byte, error) {
	rc, err := s.Open(ctx, uploadID, filename)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("读取文件 %s/%s 失败: %w", uploadID, filename, err)
	}
	return data, nil
}

// Open 返回 upload_id/filename 的读取流，调用方负责关闭
func (s *Store) Open(ctx context.Context, uploadID, filename string) (io.ReadCloser, error) {
	name, err := filePath(uploadID, filename)
	if err != nil {
		return nil, err
	}
	return s.provider.Get(ctx, name)
}

// Stat 返回 upload_id/filename 的文件信息
func (s *Store) Stat(ctx context.Context, uploadID, filename string) (*storage.FileInfo, error) {
	name, err := filePath(uploadID, filename)
	if err != nil {
		return nil, err
	}
	return s.provider.Stat(ctx, name)
}

// DeleteTree 递归删除整个上传目录，不存在时返回 constant.ErrNotFound
func (s *Store) DeleteTree(ctx context.Context, uploadID string) error {
	if err := ValidateUploadID(uploadID); err != nil {
		return err
	}
	return s.provider.RemoveTree(ctx, uploadID)
}

// Exists 检查相对路径是否存在
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	return s.provider.Exists(ctx, p)
}

// ListUploads 列出所有上传目录，跳过以 "_" 开头的保留目录，按名称排序
func (s *Store) ListUploads(ctx context.Context) ([]string, error) {
	entries, err := s.provider.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("列出上传目录失败: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir || strings.HasPrefix(e.Name, constant.ReservedPrefix) {
			continue
		}
		ids = append(ids, e.Name)
	}
	sort.Strings(ids)
	return ids, nil
}

// UploadPlatform 根据目录中存在的安装包文件判断平台，没有安装包时返回 constant.ErrNotFound
func (s *Store) UploadPlatform(ctx context.Context, uploadID string) (constant.Platform, error) {
	for _, p := range constant.AllPlatforms {
		name, err := filePath(uploadID, p.AppFileName())
		if err != nil {
			return "", err
		}
		ok, err := s.provider.Exists(ctx, name)
		if err != nil {
			return "", err
		}
		if ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: 上传 %s 中没有安装包", constant.ErrNotFound, uploadID)
}

// IsNotFound 判断错误是否表示文件不存在
func IsNotFound(err error) bool {
	return errors.Is(err, constant.ErrNotFound)
}
