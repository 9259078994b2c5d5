package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// Options 描述了如何根据 Storage.URL 选择存储后端
type Options struct {
	URL             string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	Region          string
}

// Location 是 Storage.URL 解析后的结果
type Location struct {
	Backend constant.StorageBackendType
	// Path 本地目录
	Path string
	// Bucket / Prefix 仅 S3 使用
	Bucket string
	Prefix string
}

// ParseLocation 解析 "osfs://<dir>"、"s3://<bucket>[/<prefix>]" 或普通路径
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = constant.DefaultStorageURL
	}
	switch {
	case strings.HasPrefix(raw, constant.StorageSchemeS3):
		rest := strings.Trim(strings.TrimPrefix(raw, constant.StorageSchemeS3), "/")
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("%w: Storage.URL 缺少存储桶: %q", constant.ErrBadRequest, raw)
		}
		return Location{Backend: constant.StorageBackendS3, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
	case strings.HasPrefix(raw, constant.StorageSchemeLocal):
		dir := strings.TrimPrefix(raw, constant.StorageSchemeLocal)
		if dir == "" {
			return Location{}, fmt.Errorf("%w: Storage.URL 缺少目录: %q", constant.ErrBadRequest, raw)
		}
		return Location{Backend: constant.StorageBackendLocal, Path: dir}, nil
	case strings.Contains(raw, "://"):
		return Location{}, fmt.Errorf("%w: 不支持的存储地址 %q", constant.ErrBadRequest, raw)
	}
	return Location{Backend: constant.StorageBackendLocal, Path: raw}, nil
}

// NewProviderFromURL 在启动时选择一次存储后端
func NewProviderFromURL(ctx context.Context, opts Options) (IStorageProvider, error) {
	loc, err := ParseLocation(opts.URL)
	if err != nil {
		return nil, err
	}
	switch loc.Backend {
	case constant.StorageBackendS3:
		return NewAWSS3Provider(ctx, S3Options{
			Bucket:          loc.Bucket,
			Prefix:          loc.Prefix,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			EndpointURL:     opts.EndpointURL,
			Region:          opts.Region,
		})
	default:
		return NewLocalProvider(loc.Path)
	}
}
