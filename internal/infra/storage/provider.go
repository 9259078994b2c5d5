/*
 * @Description: 定义了所有存储驱动需要遵守的接口和公共结构
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2026-03-08 16:02:44
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// FileInfo 封装了 List / Stat 操作返回的单个文件或目录的信息。
// 统一本地和云端存储的返回结构，让上层的文件存储服务可以透明处理。
type FileInfo struct {
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// IStorageProvider 定义了所有存储提供者必须实现的接口。
// 所有路径均为以 "/" 分隔的相对路径（相对于存储根目录），不允许包含 ".."。
type IStorageProvider interface {
	// Type 返回存储后端类型
	Type() constant.StorageBackendType
	// MakeDirs 创建目录及其所有父目录，目录已存在时不报错。
	MakeDirs(ctx context.Context, dir string) error
	// Put 写入文件，父目录不存在时自动创建。写入成功后文件内容完整可见。
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// Get 返回文件读取流，文件不存在时返回包装了 constant.ErrNotFound 的错误。
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// Stat 返回文件或目录信息，不存在时返回包装了 constant.ErrNotFound 的错误。
	Stat(ctx context.Context, name string) (*FileInfo, error)
	// Exists 检查文件或目录是否存在。
	Exists(ctx context.Context, name string) (bool, error)
	// List 列出目录下的直接子项，目录不存在时返回空列表。
	List(ctx context.Context, dir string) ([]FileInfo, error)
	// RemoveTree 递归删除目录或文件，不存在时返回包装了 constant.ErrNotFound 的错误。
	RemoveTree(ctx context.Context, name string) error
}

// CleanPath 规范化相对路径，拒绝越出根目录的路径
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	cleaned := path.Clean("/" + p)
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: 非法路径 %q", constant.ErrBadRequest, p)
		}
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
