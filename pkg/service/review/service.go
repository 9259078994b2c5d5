package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/blob"
)

// Service 应用评价
type Service interface {
	// List 返回 bundle 的评价，uploadID 非空时只返回该构建的评价
	List(ctx context.Context, bundleID, uploadID string) ([]*model.Review, error)
	Create(ctx context.Context, req *model.CreateReviewRequest) (*model.Review, error)
	Reply(ctx context.Context, id int64, reply string) error
}

type reviewService struct {
	repo repository.ReviewRepository
	log  *logrus.Entry
}

// NewService 创建评价服务
func NewService(repo repository.ReviewRepository) Service {
	return &reviewService{repo: repo, log: logrus.WithField("module", "review")}
}

func (s *reviewService) List(ctx context.Context, bundleID, uploadID string) ([]*model.Review, error) {
	if err := blob.ValidateBundleID(bundleID); err != nil {
		return nil, err
	}
	reviews, err := s.repo.FindByBundleID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if uploadID == "" {
		return reviews, nil
	}
	filtered := make([]*model.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.UploadID != nil && *r.UploadID == uploadID {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (s *reviewService) Create(ctx context.Context, req *model.CreateReviewRequest) (*model.Review, error) {
	if err := blob.ValidateBundleID(req.BundleID); err != nil {
		return nil, err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: 评分必须在 1 到 5 之间", constant.ErrBadRequest)
	}
	name := strings.TrimSpace(req.ReviewerName)
	if name == "" {
		return nil, fmt.Errorf("%w: 评价人不能为空", constant.ErrBadRequest)
	}
	rv := &model.Review{
		BundleID:     req.BundleID,
		UploadID:     req.UploadID,
		ReviewerName: name,
		Rating:       req.Rating,
		Comment:      strings.TrimSpace(req.Comment),
	}
	if rv.UploadID != nil && *rv.UploadID == "" {
		rv.UploadID = nil
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"bundle_id": rv.BundleID, "id": rv.ID}).Info("新增评价")
	return rv, nil
}

func (s *reviewService) Reply(ctx context.Context, id int64, reply string) error {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fmt.Errorf("%w: 回复内容不能为空", constant.ErrBadRequest)
	}
	ok, err := s.repo.Reply(ctx, id, reply)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: 评价 %d 不存在", constant.ErrNotFound, id)
	}
	return nil
}
