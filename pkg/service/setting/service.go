// pkg/service/setting/service.go
package setting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/internal/configdef"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
)

// SettingService 定义了配置服务的接口
type SettingService interface {
	// EnsureDefaults 将代码中定义的默认配置写入尚不存在的键
	EnsureDefaults(ctx context.Context) error
	// DuplicatePolicy 返回重复版本上传策略，元数据库不可用时使用最近一次读到的值或默认值 error
	DuplicatePolicy(ctx context.Context) constant.DuplicatePolicy
	// SetDuplicatePolicy 更新策略。元数据库不可用时只在当前进程内生效，persisted 为 false。
	SetDuplicatePolicy(ctx context.Context, policy constant.DuplicatePolicy) (persisted bool, err error)
}

// settingService 是 SettingService 接口的实现
type settingService struct {
	repo  repository.SettingRepository
	mu    sync.RWMutex
	cache map[string]model.JSONMap
	log   *logrus.Entry
}

// NewSettingService 是 settingService 的构造函数
func NewSettingService(repo repository.SettingRepository) SettingService {
	cache := make(map[string]model.JSONMap, len(configdef.AllSettings))
	for _, def := range configdef.AllSettings {
		cache[def.Key.String()] = def.Value.Clone()
	}
	return &settingService{
		repo:  repo,
		cache: cache,
		log:   logrus.WithField("module", "setting"),
	}
}

func (s *settingService) EnsureDefaults(ctx context.Context) error {
	created := 0
	for _, def := range configdef.AllSettings {
		existing, err := s.repo.FindByKey(ctx, def.Key.String())
		if err != nil {
			return err
		}
		if existing != nil {
			s.remember(existing.Key, existing.Value)
			continue
		}
		if err := s.repo.Save(ctx, &model.Setting{Key: def.Key.String(), Value: def.Value.Clone(), UpdatedAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("写入默认配置 %s 失败: %w", def.Key, err)
		}
		created++
	}
	if created > 0 {
		s.log.Infof("已写入 %d 个默认配置项", created)
	}
	return nil
}

func (s *settingService) remember(key string, value model.JSONMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = value.Clone()
}

func (s *settingService) cached(key string) model.JSONMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[key].Clone()
}

// appSettings 读取 app_settings，失败时回退到缓存
func (s *settingService) appSettings(ctx context.Context) model.JSONMap {
	key := constant.KeyAppSettings.String()
	st, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		s.log.Warnf("读取配置失败，使用缓存值: %v", err)
		return s.cached(key)
	}
	if st == nil {
		return s.cached(key)
	}
	s.remember(key, st.Value)
	return st.Value.Clone()
}

func (s *settingService) DuplicatePolicy(ctx context.Context) constant.DuplicatePolicy {
	v, _ := s.appSettings(ctx).String("duplicate_upload_policy")
	p := constant.DuplicatePolicy(v)
	if !p.Valid() {
		return constant.DuplicatePolicyError
	}
	return p
}

func (s *settingService) SetDuplicatePolicy(ctx context.Context, policy constant.DuplicatePolicy) (bool, error) {
	if !policy.Valid() {
		return false, fmt.Errorf("%w: 无效的重复上传策略 %q", constant.ErrBadRequest, policy)
	}
	key := constant.KeyAppSettings.String()
	value := s.appSettings(ctx)
	value["duplicate_upload_policy"] = string(policy)
	s.remember(key, value)

	err := s.repo.Save(ctx, &model.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()})
	if err != nil {
		if errors.Is(err, constant.ErrStoreUnavailable) {
			s.log.Warnf("配置未能持久化，仅在当前进程生效: %v", err)
			return false, nil
		}
		return false, err
	}
	s.log.Infof("重复上传策略已更新为 %s", policy)
	return true, nil
}
