package build

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/blob"
)

func (s *buildService) mirrorFailed(op string) {
	s.observer.ObserveMirrorFailure(op)
	s.needsReconcile.Store(true)
}

// mirrorSucceeded 元数据库恢复后异步补齐之前失败的写入
func (s *buildService) mirrorSucceeded() {
	if !s.needsReconcile.CompareAndSwap(true, false) {
		return
	}
	s.asyncWG.Add(1)
	go func() {
		defer s.asyncWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.reconcileTimeout)
		defer cancel()
		if _, err := s.Reconcile(ctx); err != nil {
			s.log.Warnf("异步对账失败: %v", err)
		}
	}()
}

// NeedsReconcile 元数据库是否存在未补齐的写入
func (s *buildService) NeedsReconcile() bool {
	return s.needsReconcile.Load()
}

// Reconcile 对齐两个存储:
// 文件存储中存在但元数据库缺失的上传补写到元数据库；元数据库中文件目录已不存在的行被删除。
// 同一时间只运行一个对账，失败时保留待对账标记。
func (s *buildService) Reconcile(ctx context.Context) (report *ReconcileReport, err error) {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()
	defer func() {
		if err != nil {
			s.needsReconcile.Store(true)
		}
		s.observer.ObserveReconcile(report, err)
	}()

	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取元数据失败: %w", err)
	}
	ids, err := s.blobs.ListUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("列出上传目录失败: %w", err)
	}

	report = &ReconcileReport{}
	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r.UploadID] = true
	}
	onDisk := make(map[string]bool, len(ids))
	for _, id := range ids {
		onDisk[id] = true
		if known[id] {
			continue
		}
		r, loadErr := s.blobs.LoadDescriptor(ctx, id)
		if loadErr != nil {
			s.log.WithField("upload_id", id).Warnf("对账时无法读取描述文件，跳过: %v", loadErr)
			report.Skipped++
			continue
		}
		mirrored, mirrorErr := s.remirror(ctx, r)
		if mirrorErr != nil {
			err = fmt.Errorf("补写元数据 %s 失败: %w", id, mirrorErr)
			return report, err
		}
		if mirrored {
			report.Mirrored++
		}
	}

	for _, r := range rows {
		if onDisk[r.UploadID] {
			continue
		}
		dropped, dropErr := s.dropStale(ctx, r)
		if dropErr != nil {
			err = fmt.Errorf("删除失效元数据 %s 失败: %w", r.UploadID, dropErr)
			return report, err
		}
		if dropped {
			report.Dropped++
		}
	}

	s.needsReconcile.Store(false)
	s.log.WithFields(logrus.Fields{
		"mirrored": report.Mirrored,
		"dropped":  report.Dropped,
		"skipped":  report.Skipped,
	}).Info("对账完成")
	return report, nil
}

// remirror 在 bundle 锁内重新读取描述文件后补写元数据。
// 列出目录之后上传已被删除时返回 false。
func (s *buildService) remirror(ctx context.Context, r *model.BuildRecord) (bool, error) {
	unlock, err := s.locker.Lock(ctx, r.BundleID)
	if err != nil {
		return false, err
	}
	defer unlock()

	current, err := s.blobs.LoadDescriptor(ctx, r.UploadID)
	if blob.IsNotFound(err) {
		s.log.WithField("upload_id", r.UploadID).Debug("上传已被删除，不再补写")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, s.repo.Upsert(ctx, current)
}

// dropStale 在 bundle 锁内确认上传目录仍没有描述文件后删除元数据行
func (s *buildService) dropStale(ctx context.Context, r *model.BuildRecord) (bool, error) {
	unlock, err := s.locker.Lock(ctx, r.BundleID)
	if err != nil {
		return false, err
	}
	defer unlock()

	state, err := s.blobs.Classify(ctx, r.UploadID)
	if err != nil {
		return false, err
	}
	if state != blob.StateMissing {
		return false, nil
	}
	_, err = s.repo.Delete(ctx, r.UploadID)
	return err == nil, err
}
