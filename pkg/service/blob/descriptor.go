package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

// ErrCorruptDescriptor 描述文件存在但无法解码
var ErrCorruptDescriptor = errors.New("描述文件损坏")

// DescriptorState 上传目录中描述文件的状态
type DescriptorState int

const (
	// StateMissing 没有任何描述文件，终止状态
	StateMissing DescriptorState = iota
	// StateLegacy 只有旧格式 app_info.json，需要迁移
	StateLegacy
	// StateCurrent 存在 build_info.json，直接读取
	StateCurrent
)

func (s DescriptorState) String() string {
	switch s {
	case StateCurrent:
		return "current"
	case StateLegacy:
		return "legacy"
	default:
		return "missing"
	}
}

// Classify 检查上传目录中的描述文件，不做任何修改
func (s *Store) Classify(ctx context.Context, uploadID string) (DescriptorState, error) {
	for _, c := range []struct {
		file  string
		state DescriptorState
	}{
		{constant.BuildInfoFileName, StateCurrent},
		{constant.LegacyBuildInfoFileName, StateLegacy},
	} {
		name, err := filePath(uploadID, c.file)
		if err != nil {
			return StateMissing, err
		}
		ok, err := s.provider.Exists(ctx, name)
		if err != nil {
			return StateMissing, fmt.Errorf("检查描述文件 %s 失败: %w", name, err)
		}
		if ok {
			return c.state, nil
		}
	}
	return StateMissing, nil
}

// Transition 由给定状态推进到可读取的记录。
// StateLegacy 会同步迁移为 StateCurrent，重复调用是幂等的；StateMissing 返回 constant.ErrNotFound。
func (s *Store) Transition(ctx context.Context, uploadID string, state DescriptorState) (*model.BuildRecord, DescriptorState, error) {
	switch state {
	case StateCurrent:
		r, err := s.readCurrent(ctx, uploadID)
		return r, StateCurrent, err
	case StateLegacy:
		r, err := s.MigrateLegacy(ctx, uploadID)
		if err != nil {
			return nil, StateLegacy, err
		}
		return r, StateCurrent, nil
	default:
		return nil, StateMissing, fmt.Errorf("%w: 上传 %s 没有描述文件", constant.ErrNotFound, uploadID)
	}
}

// LoadDescriptor 读取上传的构建记录，必要时先完成旧格式迁移
func (s *Store) LoadDescriptor(ctx context.Context, uploadID string) (*model.BuildRecord, error) {
	state, err := s.Classify(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	r, _, err := s.Transition(ctx, uploadID, state)
	return r, err
}

// SaveDescriptor 以缩进 JSON 写入 build_info.json
func (s *Store) SaveDescriptor(ctx context.Context, r *model.BuildRecord) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化构建记录失败: %w", err)
	}
	return s.Put(ctx, r.UploadID, constant.BuildInfoFileName, data)
}

func (s *Store) readCurrent(ctx context.Context, uploadID string) (*model.BuildRecord, error) {
	data, err := s.Get(ctx, uploadID, constant.BuildInfoFileName)
	if err != nil {
		return nil, err
	}
	var r model.BuildRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorruptDescriptor, uploadID, constant.BuildInfoFileName, err)
	}
	if r.UploadID == "" {
		r.UploadID = uploadID
	}
	if !r.Platform.Valid() {
		if p, err := s.UploadPlatform(ctx, uploadID); err == nil {
			r.Platform = p
		}
	}
	return &r, nil
}

// MigrateLegacy 将 app_info.json 转换为 build_info.json 并返回新记录。
// 旧格式只存在于 iOS 上传，created_at 保持为空。同一 upload_id 的并发调用只执行一次。
func (s *Store) MigrateLegacy(ctx context.Context, uploadID string) (*model.BuildRecord, error) {
	if err := ValidateUploadID(uploadID); err != nil {
		return nil, err
	}
	v, err, _ := s.migrations.Do(uploadID, func() (interface{}, error) {
		// 等待期间可能已被其他调用迁移完成
		state, err := s.Classify(ctx, uploadID)
		if err != nil {
			return nil, err
		}
		switch state {
		case StateCurrent:
			return s.readCurrent(ctx, uploadID)
		case StateMissing:
			return nil, fmt.Errorf("%w: 上传 %s 没有旧格式描述文件", constant.ErrNotFound, uploadID)
		}
		return s.migrate(ctx, uploadID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.BuildRecord).Clone(), nil
}

func (s *Store) migrate(ctx context.Context, uploadID string) (*model.BuildRecord, error) {
	data, err := s.Get(ctx, uploadID, constant.LegacyBuildInfoFileName)
	if err != nil {
		return nil, err
	}
	var legacy model.LegacyAppInfo
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorruptDescriptor, uploadID, constant.LegacyBuildInfoFileName, err)
	}

	var size int64
	info, err := s.Stat(ctx, uploadID, constant.PlatformIOS.AppFileName())
	switch {
	case err == nil:
		size = info.Size
	case IsNotFound(err):
		s.log.WithField("upload_id", uploadID).Warn("旧格式上传缺少 app.ipa，文件大小记为 0")
	default:
		return nil, err
	}

	r := &model.BuildRecord{
		UploadID:      uploadID,
		Platform:      constant.PlatformIOS,
		BundleID:      legacy.BundleID,
		AppTitle:      legacy.AppTitle,
		BundleVersion: legacy.BundleVersion,
		FileSize:      size,
	}
	if err := s.SaveDescriptor(ctx, r); err != nil {
		return nil, fmt.Errorf("写入迁移后的描述文件失败: %w", err)
	}
	s.log.WithFields(logrus.Fields{"upload_id": uploadID, "bundle_id": r.BundleID}).Info("旧格式描述文件已迁移")
	return r, nil
}
