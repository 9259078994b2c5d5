// internal/infra/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// LocalProvider 实现了 IStorageProvider 接口，用于处理与本机磁盘文件系统的所有交互。
type LocalProvider struct {
	root string
	log  *logrus.Entry
}

// NewLocalProvider 是 LocalProvider 的构造函数，root 不存在时会被创建。
func NewLocalProvider(root string) (IStorageProvider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("解析本地存储目录失败: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录 '%s' 失败: %w", abs, err)
	}
	return &LocalProvider{
		root: abs,
		log:  logrus.WithFields(logrus.Fields{"module": "storage", "backend": "local"}),
	}, nil
}

// Root 返回存储根目录的绝对路径
func (p *LocalProvider) Root() string {
	return p.root
}

func (p *LocalProvider) Type() constant.StorageBackendType {
	return constant.StorageBackendLocal
}

// physical 将相对路径转换为磁盘上的绝对路径
func (p *LocalProvider) physical(name string) (string, error) {
	cleaned, err := CleanPath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.root, filepath.FromSlash(cleaned)), nil
}

func notFound(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", constant.ErrNotFound, name, err)
}

func (p *LocalProvider) MakeDirs(ctx context.Context, dir string) error {
	physicalPath, err := p.physical(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(physicalPath, 0o755); err != nil {
		return fmt.Errorf("无法创建目录 '%s': %w", physicalPath, err)
	}
	return nil
}

// Put 先写入同目录下的临时文件再重命名，保证读者看不到写了一半的文件
func (p *LocalProvider) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	physicalPath, err := p.physical(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(physicalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("无法创建目录 '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(physicalPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("无法创建临时文件: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return fmt.Errorf("写入文件内容失败: %w", err)
	}
	if size >= 0 && written != size {
		cleanup()
		return fmt.Errorf("写入长度不一致: 期望 %d, 实际 %d", size, written)
	}
	// 确保数据写入磁盘
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("同步文件到磁盘失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmpName, physicalPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("重命名临时文件失败: %w", err)
	}
	p.log.WithField("path", name).Debugf("写入完成, %d bytes", written)
	return nil
}

func (p *LocalProvider) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	physicalPath, err := p.physical(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(physicalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(name, err)
		}
		return nil, fmt.Errorf("无法打开物理文件 '%s': %w", physicalPath, err)
	}
	return file, nil
}

func (p *LocalProvider) Stat(ctx context.Context, name string) (*FileInfo, error) {
	physicalPath, err := p.physical(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(physicalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(name, err)
		}
		return nil, fmt.Errorf("无法获取文件信息 '%s': %w", physicalPath, err)
	}
	return &FileInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}, nil
}

func (p *LocalProvider) Exists(ctx context.Context, name string) (bool, error) {
	_, err := p.Stat(ctx, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, constant.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// List 实现了为本地文件系统列出目录内容的功能。
func (p *LocalProvider) List(ctx context.Context, dir string) ([]FileInfo, error) {
	physicalPath, err := p.physical(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(physicalPath)
	if err != nil {
		// 如果目录不存在，返回一个空列表和 nil 错误，这符合 List 的语义
		if errors.Is(err, fs.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("无法读取本地目录 '%s': %w", physicalPath, err)
	}

	result := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			p.log.Warnf("无法获取文件 '%s' 的信息: %v", entry.Name(), err)
			continue
		}
		result = append(result, FileInfo{
			Name:    info.Name(),
			Size:    info.Size(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	return result, nil
}

func (p *LocalProvider) RemoveTree(ctx context.Context, name string) error {
	physicalPath, err := p.physical(name)
	if err != nil {
		return err
	}
	if physicalPath == p.root {
		return fmt.Errorf("%w: 不允许删除存储根目录", constant.ErrBadRequest)
	}
	if _, err := os.Lstat(physicalPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(name, err)
		}
		return fmt.Errorf("无法获取文件信息 '%s': %w", physicalPath, err)
	}
	if err := os.RemoveAll(physicalPath); err != nil {
		return fmt.Errorf("删除 '%s' 失败: %w", physicalPath, err)
	}
	return nil
}
