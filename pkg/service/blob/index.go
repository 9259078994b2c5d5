package blob

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

func latestIndexPath(bundleID string) string {
	return path.Join(constant.IndexesDirectory, constant.LatestUploadIndexName, bundleID+".txt")
}

// SetLatest 记录 bundle 最近一次上传的 upload_id，覆盖旧值
func (s *Store) SetLatest(ctx context.Context, bundleID, uploadID string) error {
	if err := ValidateBundleID(bundleID); err != nil {
		return err
	}
	if err := ValidateUploadID(uploadID); err != nil {
		return err
	}
	dir := path.Join(constant.IndexesDirectory, constant.LatestUploadIndexName)
	if err := s.provider.MakeDirs(ctx, dir); err != nil {
		return err
	}
	return s.provider.Put(ctx, latestIndexPath(bundleID), strings.NewReader(uploadID), int64(len(uploadID)))
}

// Latest 读取 bundle 的最新 upload_id，索引不存在或为空时返回 false
func (s *Store) Latest(ctx context.Context, bundleID string) (string, bool, error) {
	if err := ValidateBundleID(bundleID); err != nil {
		return "", false, err
	}
	rc, err := s.provider.Get(ctx, latestIndexPath(bundleID))
	if err != nil {
		if IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 1024))
	if err != nil {
		return "", false, err
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}
