/*
 * @Description: 上传解析服务，协调文件存储与元数据库
 * @Author: 安知鱼
 * @Date: 2026-03-05 09:48:12
 * @LastEditTime: 2026-04-12 10:55:31
 * @LastEditors: 安知鱼
 */
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/blob"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/inspect"
)

// Service 定义了上传与构建查询的全部核心操作
type Service interface {
	// Inspect 只解析安装包，不写入任何存储
	Inspect(platform constant.Platform, raw []byte) (*model.BuildRecord, error)
	Ingest(ctx context.Context, platform constant.Platform, raw []byte) (*IngestResult, error)
	Resolve(ctx context.Context, uploadID string) (Result[*model.BuildRecord], error)
	ListByBundle(ctx context.Context, bundleID string) (Result[[]*model.BuildRecord], error)
	LatestForBundle(ctx context.Context, bundleID string) (string, bool, error)
	// LatestBuild 返回 bundle 最新一次上传的完整记录
	LatestBuild(ctx context.Context, bundleID string) (Result[*model.BuildRecord], error)
	Delete(ctx context.Context, uploadID string) DeleteResult
	CreateApp(ctx context.Context, req *model.CreateAppRequest) (*IngestResult, error)
	UpdateAppInfo(ctx context.Context, bundleID string, update model.AppInfoUpdate) (Result[[]*model.BuildRecord], error)
	ListApps(ctx context.Context) (Result[[]*model.BuildRecord], error)
	UploadPlatform(ctx context.Context, uploadID string, asserted constant.Platform) (constant.Platform, error)
	OpenAppFile(ctx context.Context, record *model.BuildRecord) (io.ReadCloser, error)
	AppFilePath(record *model.BuildRecord) string
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

// Option 用于定制 buildService
type Option func(*buildService)

// WithLocker 设置按 bundle 串行化的锁，默认进程内锁
func WithLocker(l Locker) Option {
	return func(s *buildService) { s.locker = l }
}

// WithObserver 设置指标观察者
func WithObserver(o Observer) Option {
	return func(s *buildService) { s.observer = o }
}

// WithInspector 替换安装包解析器
func WithInspector(i inspect.Inspector) Option {
	return func(s *buildService) { s.inspector = i }
}

type buildService struct {
	repo      repository.BuildRepository
	blobs     *blob.Store
	inspector inspect.Inspector
	locker    Locker
	observer  Observer
	log       *logrus.Entry

	// needsReconcile 元数据库写入失败后置位，下一次成功写入时触发异步对账
	needsReconcile atomic.Bool
	reconcileMu    sync.Mutex
	// reconcileTimeout 异步对账的超时时间
	reconcileTimeout time.Duration
	// asyncWG 用于测试中等待异步对账结束
	asyncWG sync.WaitGroup
}

// NewService 创建上传解析服务
func NewService(repo repository.BuildRepository, blobs *blob.Store, opts ...Option) Service {
	return newService(repo, blobs, opts...)
}

func newService(repo repository.BuildRepository, blobs *blob.Store, opts ...Option) *buildService {
	s := &buildService{
		repo:             repo,
		blobs:            blobs,
		inspector:        inspect.NewPackageInspector(),
		locker:           newLocalLocker(),
		observer:         nopObserver{},
		log:              logrus.WithField("module", "build"),
		reconcileTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *buildService) Inspect(platform constant.Platform, raw []byte) (*model.BuildRecord, error) {
	return s.inspector.Inspect(platform, raw)
}

// Ingest 解析并保存一个安装包。
// 顺序: 解析 -> 查找重复版本并整体删除 -> 写安装包与描述文件 -> 更新最新索引 -> 同步元数据库。
// 文件存储写失败会直接返回错误；元数据库失败只记录日志并在结果中标记 Degraded。
func (s *buildService) Ingest(ctx context.Context, platform constant.Platform, raw []byte) (*IngestResult, error) {
	start := time.Now()
	record, err := s.inspector.Inspect(platform, raw)
	if err != nil {
		s.observer.ObserveIngest(platform, OutcomeInvalid, time.Since(start))
		return nil, err
	}

	res, err := s.store(ctx, record, raw)
	outcome := OutcomeCreated
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case res.Degraded:
		outcome = OutcomeDegraded
	case res.Replaced != nil:
		outcome = OutcomeReplaced
	}
	s.observer.ObserveIngest(platform, outcome, time.Since(start))
	return res, err
}

// store 在 bundle 锁内完成重复检测与两个存储的写入。raw 为 nil 时只写描述文件。
func (s *buildService) store(ctx context.Context, record *model.BuildRecord, raw []byte) (*IngestResult, error) {
	log := s.log.WithFields(logrus.Fields{"upload_id": record.UploadID, "bundle_id": record.BundleID})

	unlock, err := s.locker.Lock(ctx, record.BundleID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := &IngestResult{Record: record}

	key := record.DuplicateKey()
	if !key.Empty() {
		existing, err := s.findExisting(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.WithField("replaced", existing.UploadID).Infof("发现重复版本 %s，删除旧上传", key)
			if del := s.deleteUpload(ctx, existing.UploadID); del.BlobErr != nil {
				return nil, fmt.Errorf("删除旧上传 %s 失败: %w", existing.UploadID, del.BlobErr)
			}
			res.Replaced = existing
		}
	}

	// 相同内容的重复上传: 先清空目录再整体重写
	if res.Replaced == nil || res.Replaced.UploadID != record.UploadID {
		if err := s.blobs.DeleteTree(ctx, record.UploadID); err != nil && !blob.IsNotFound(err) {
			return nil, fmt.Errorf("清理上传目录失败: %w", err)
		}
	}

	if raw != nil {
		if err := s.blobs.Put(ctx, record.UploadID, record.Platform.AppFileName(), raw); err != nil {
			return nil, err
		}
	}
	if err := s.blobs.SaveDescriptor(ctx, record); err != nil {
		return nil, err
	}
	// 占位记录没有安装包，不进入最新上传索引
	if raw != nil {
		if err := s.blobs.SetLatest(ctx, record.BundleID, record.UploadID); err != nil {
			return nil, fmt.Errorf("更新最新上传索引失败: %w", err)
		}
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		log.Warnf("写入元数据库失败，上传已保存到文件存储: %v", err)
		s.mirrorFailed("upsert")
		res.Degraded = true
		res.MirrorErr = err
	} else {
		s.mirrorSucceeded()
	}

	log.WithField("platform", record.Platform).Info("上传已保存")
	return res, nil
}

// findExisting 按重复检测键查找已有上传，元数据库失败时扫描文件存储
func (s *buildService) findExisting(ctx context.Context, key model.DuplicateKey) (*model.BuildRecord, error) {
	existing, err := s.repo.FindByDuplicateKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	s.log.Warnf("元数据库查询重复版本失败，回退扫描文件存储: %v", err)
	s.observer.ObserveFallback("find_duplicate")

	var found *model.BuildRecord
	err = s.scan(ctx, func(r *model.BuildRecord) bool {
		if key.Matches(r) {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// scan 依次读取文件存储中所有上传的描述文件，无法读取的条目被跳过。fn 返回 false 时停止。
func (s *buildService) scan(ctx context.Context, fn func(r *model.BuildRecord) bool) error {
	ids, err := s.blobs.ListUploads(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := s.blobs.LoadDescriptor(ctx, id)
		if err != nil {
			s.log.WithField("upload_id", id).Debugf("跳过无法读取的上传: %v", err)
			continue
		}
		if !fn(r) {
			return nil
		}
	}
	return nil
}

func (s *buildService) scanBundle(ctx context.Context, bundleID string) ([]*model.BuildRecord, error) {
	var out []*model.BuildRecord
	err := s.scan(ctx, func(r *model.BuildRecord) bool {
		if r.BundleID == bundleID {
			out = append(out, r)
		}
		return true
	})
	return out, err
}

// Resolve 按 upload_id 查找记录: 元数据库 -> 描述文件 -> 旧格式迁移
func (s *buildService) Resolve(ctx context.Context, uploadID string) (Result[*model.BuildRecord], error) {
	var res Result[*model.BuildRecord]
	if err := blob.ValidateUploadID(uploadID); err != nil {
		res.Source = SourceUnavailable
		return res, err
	}

	r, err := s.repo.FindByUploadID(ctx, uploadID)
	if err == nil && r != nil {
		res.Value, res.Source = r, SourcePrimary
		return res, nil
	}
	if err != nil {
		s.log.WithField("upload_id", uploadID).Warnf("元数据库不可用，回退到文件存储: %v", err)
		res.Degraded = true
	}
	s.observer.ObserveFallback("resolve")

	r, err = s.blobs.LoadDescriptor(ctx, uploadID)
	if err != nil {
		res.Source = SourceUnavailable
		if blob.IsNotFound(err) || errors.Is(err, blob.ErrCorruptDescriptor) {
			return res, fmt.Errorf("%w: 上传 %s 不存在", constant.ErrNotFound, uploadID)
		}
		return res, err
	}
	res.Value, res.Source = r, SourceFallback
	return res, nil
}

// ListByBundle 返回 bundle 的全部构建，按 created_at 倒序，空值排在最后。
// 元数据库无记录时同样查询文件存储，元数据库失败时完全依赖文件存储。
func (s *buildService) ListByBundle(ctx context.Context, bundleID string) (Result[[]*model.BuildRecord], error) {
	res := Result[[]*model.BuildRecord]{Value: []*model.BuildRecord{}}
	if err := blob.ValidateBundleID(bundleID); err != nil {
		res.Source = SourceUnavailable
		return res, err
	}
	log := s.log.WithField("bundle_id", bundleID)

	rows, err := s.repo.FindByBundleID(ctx, bundleID)
	if err == nil && len(rows) > 0 {
		model.SortByCreatedDesc(rows)
		res.Value, res.Source = rows, SourcePrimary
		return res, nil
	}
	if err != nil {
		log.Warnf("元数据库不可用，回退扫描文件存储: %v", err)
		res.Degraded = true
	}

	scanned, scanErr := s.scanBundle(ctx, bundleID)
	if scanErr != nil {
		if err == nil {
			// 元数据库可用且确实没有记录
			log.Warnf("扫描文件存储失败: %v", scanErr)
			res.Source = SourcePrimary
			return res, nil
		}
		res.Source = SourceUnavailable
		return res, scanErr
	}
	if len(scanned) == 0 && err == nil {
		res.Source = SourcePrimary
		return res, nil
	}
	s.observer.ObserveFallback("list_by_bundle")
	model.SortByCreatedDesc(scanned)
	res.Value, res.Source = scanned, SourceFallback
	if res.Value == nil {
		res.Value = []*model.BuildRecord{}
	}
	return res, nil
}

// LatestForBundle 读取最新上传索引
func (s *buildService) LatestForBundle(ctx context.Context, bundleID string) (string, bool, error) {
	return s.blobs.Latest(ctx, bundleID)
}

// LatestBuild 根据索引解析最新上传；索引悬空时使用列表中最新的一条
func (s *buildService) LatestBuild(ctx context.Context, bundleID string) (Result[*model.BuildRecord], error) {
	var res Result[*model.BuildRecord]
	id, ok, err := s.LatestForBundle(ctx, bundleID)
	if err != nil {
		res.Source = SourceUnavailable
		return res, err
	}
	if ok {
		res, err = s.Resolve(ctx, id)
		if err == nil || !errors.Is(err, constant.ErrNotFound) {
			return res, err
		}
		s.log.WithFields(logrus.Fields{"bundle_id": bundleID, "upload_id": id}).Warn("最新上传索引指向的上传不存在")
	}

	list, err := s.ListByBundle(ctx, bundleID)
	if err != nil {
		return Result[*model.BuildRecord]{Source: list.Source, Degraded: list.Degraded}, err
	}
	if len(list.Value) == 0 {
		return Result[*model.BuildRecord]{Source: SourceUnavailable, Degraded: list.Degraded},
			fmt.Errorf("%w: bundle %s 没有任何上传", constant.ErrNotFound, bundleID)
	}
	return Result[*model.BuildRecord]{Value: list.Value[0], Source: list.Source, Degraded: list.Degraded}, nil
}

// Delete 独立删除元数据与文件目录，已不存在不视为错误
func (s *buildService) Delete(ctx context.Context, uploadID string) DeleteResult {
	res := DeleteResult{UploadID: uploadID}
	if err := blob.ValidateUploadID(uploadID); err != nil {
		res.BlobErr = err
		return res
	}
	// 描述文件可读时持有 bundle 锁删除，与对账补写互斥
	if r, err := s.blobs.LoadDescriptor(ctx, uploadID); err == nil {
		unlock, err := s.locker.Lock(ctx, r.BundleID)
		if err != nil {
			res.BlobErr = err
			return res
		}
		defer unlock()
	}
	return s.deleteUpload(ctx, uploadID)
}

// deleteUpload 调用方负责 bundle 锁
func (s *buildService) deleteUpload(ctx context.Context, uploadID string) DeleteResult {
	res := DeleteResult{UploadID: uploadID}
	log := s.log.WithField("upload_id", uploadID)

	existed, err := s.repo.Delete(ctx, uploadID)
	if err != nil {
		log.Warnf("删除元数据失败: %v", err)
		s.mirrorFailed("delete")
		res.MetadataErr = err
	} else {
		res.MetadataDeleted = existed
		s.mirrorSucceeded()
	}

	switch err := s.blobs.DeleteTree(ctx, uploadID); {
	case err == nil:
		res.BlobDeleted = true
	case blob.IsNotFound(err):
	default:
		log.Errorf("删除上传目录失败: %v", err)
		res.BlobErr = err
	}

	log.WithFields(logrus.Fields{"metadata": res.MetadataDeleted, "blob": res.BlobDeleted}).Info("上传已删除")
	return res
}

// CreateApp 为还没有任何上传的应用创建占位记录，只写描述文件和元数据
func (s *buildService) CreateApp(ctx context.Context, req *model.CreateAppRequest) (*IngestResult, error) {
	if err := blob.ValidateBundleID(req.BundleID); err != nil {
		return nil, err
	}
	platform := req.Platform
	if platform == "" {
		platform = constant.PlatformIOS
	}
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: 不支持的平台 %q", constant.ErrBadRequest, platform)
	}

	existing, err := s.ListByBundle(ctx, req.BundleID)
	if err != nil {
		return nil, err
	}
	if len(existing.Value) > 0 {
		return nil, fmt.Errorf("%w: bundle %s 已存在", constant.ErrConflict, req.BundleID)
	}

	title := req.AppTitle
	if title == "" {
		title = req.BundleID
	}
	record := &model.BuildRecord{
		UploadID:       constant.PlaceholderUploadPrefix + req.BundleID,
		Platform:       platform,
		BundleID:       req.BundleID,
		AppTitle:       title,
		BundleVersion:  constant.PlaceholderBundleVersion,
		AppDescription: req.AppDescription,
		AppPictureURL:  req.AppPictureURL,
	}
	return s.store(ctx, record, nil)
}

// UpdateAppInfo 将展示信息写入 bundle 的每一条构建，upload_id 与 created_at 保持不变
func (s *buildService) UpdateAppInfo(ctx context.Context, bundleID string, update model.AppInfoUpdate) (Result[[]*model.BuildRecord], error) {
	list, err := s.ListByBundle(ctx, bundleID)
	if err != nil {
		return list, err
	}
	if len(list.Value) == 0 {
		return list, fmt.Errorf("%w: bundle %s 不存在", constant.ErrNotFound, bundleID)
	}

	unlock, err := s.locker.Lock(ctx, bundleID)
	if err != nil {
		return list, err
	}
	defer unlock()

	for _, r := range list.Value {
		update.Apply(r)
		if err := s.blobs.SaveDescriptor(ctx, r); err != nil {
			return list, fmt.Errorf("更新描述文件 %s 失败: %w", r.UploadID, err)
		}
	}

	if _, err := s.repo.UpdateAppInfo(ctx, bundleID, update); err != nil {
		s.log.WithField("bundle_id", bundleID).Warnf("同步应用信息到元数据库失败: %v", err)
		s.mirrorFailed("update_app_info")
		list.Degraded = true
	} else {
		s.mirrorSucceeded()
	}
	return list, nil
}

// ListApps 每个 bundle 返回一条代表记录（最新的一条），按 bundle_id 排序
func (s *buildService) ListApps(ctx context.Context) (Result[[]*model.BuildRecord], error) {
	res := Result[[]*model.BuildRecord]{Value: []*model.BuildRecord{}}

	rows, err := s.repo.FindAll(ctx)
	if err != nil || len(rows) == 0 {
		if err != nil {
			s.log.Warnf("元数据库不可用，回退扫描文件存储: %v", err)
			res.Degraded = true
		}
		var scanned []*model.BuildRecord
		if scanErr := s.scan(ctx, func(r *model.BuildRecord) bool {
			scanned = append(scanned, r)
			return true
		}); scanErr != nil {
			res.Source = SourceUnavailable
			if err == nil {
				res.Source = SourcePrimary
				return res, nil
			}
			return res, scanErr
		}
		if err == nil && len(scanned) == 0 {
			res.Source = SourcePrimary
			return res, nil
		}
		s.observer.ObserveFallback("list_apps")
		rows, res.Source = scanned, SourceFallback
	} else {
		res.Source = SourcePrimary
	}

	res.Value = representatives(rows)
	return res, nil
}

func representatives(rows []*model.BuildRecord) []*model.BuildRecord {
	model.SortByCreatedDesc(rows)
	seen := make(map[string]bool, len(rows))
	apps := make([]*model.BuildRecord, 0)
	for _, r := range rows {
		if seen[r.BundleID] {
			continue
		}
		seen[r.BundleID] = true
		apps = append(apps, r)
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].BundleID < apps[j].BundleID })
	return apps
}

// UploadPlatform 判断上传中安装包的平台；asserted 非空且不一致时视为不存在
func (s *buildService) UploadPlatform(ctx context.Context, uploadID string, asserted constant.Platform) (constant.Platform, error) {
	p, err := s.blobs.UploadPlatform(ctx, uploadID)
	if err != nil {
		return "", err
	}
	if asserted != "" && asserted != p {
		return "", fmt.Errorf("%w: 上传 %s 不是 %s 安装包", constant.ErrNotFound, uploadID, asserted)
	}
	return p, nil
}

func (s *buildService) OpenAppFile(ctx context.Context, record *model.BuildRecord) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, record.UploadID, record.Platform.AppFileName())
}

func (s *buildService) AppFilePath(record *model.BuildRecord) string {
	return record.AppFilePath()
}

// DuplicateOf 在 builds 中查找与 candidate 版本标识相同的构建，占位记录不参与比较
func DuplicateOf(builds []*model.BuildRecord, candidate *model.BuildRecord) *model.BuildRecord {
	key := candidate.DuplicateKey()
	if key.Empty() {
		return nil
	}
	for _, b := range builds {
		if b.IsPlaceholder() {
			continue
		}
		if key.Matches(b) {
			return b
		}
	}
	return nil
}
