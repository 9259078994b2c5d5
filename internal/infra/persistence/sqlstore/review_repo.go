package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
)

const tableReviews = "reviews"

// reviewRepository 是 ReviewRepository 接口基于 SQL 的实现
type reviewRepository struct {
	store
}

// NewReviewRepository 是 reviewRepository 的构造函数
func NewReviewRepository(drv dialect.Driver) repository.ReviewRepository {
	return &reviewRepository{store: newStore(drv)}
}

// Create 写入评价并回填自增 ID
func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	if err := r.ready("create review"); err != nil {
		return err
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	insert := r.builder().Insert(tableReviews).
		Columns("bundle_id", "upload_id", "reviewer_name", "rating", "comment", "created_at").
		Values(review.BundleID, nullString(review.UploadID), review.ReviewerName, review.Rating, review.Comment, review.CreatedAt)

	// PostgreSQL 不支持 LastInsertId，改用 RETURNING
	if r.dialect == dialect.Postgres {
		query, args := insert.Returning("id").Query()
		return r.query(ctx, "create review", query, args, func(rows *entsql.Rows) error {
			return rows.Scan(&review.ID)
		})
	}

	query, args := insert.Query()
	res, err := r.exec(ctx, "create review", query, args)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return unavailable("create review", err)
	}
	review.ID = id
	return nil
}

func (r *reviewRepository) FindByBundleID(ctx context.Context, bundleID string) ([]*model.Review, error) {
	if err := r.ready("list reviews"); err != nil {
		return nil, err
	}
	b := r.builder()
	query, args := b.Select("id", "bundle_id", "upload_id", "reviewer_name", "rating", "comment", "reply", "created_at").
		From(b.Table(tableReviews)).
		Where(entsql.EQ("bundle_id", bundleID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	reviews := make([]*model.Review, 0)
	err := r.query(ctx, "list reviews", query, args, func(rows *entsql.Rows) error {
		var (
			rv                        model.Review
			bundle, reviewer, comment sql.NullString
			uploadID, reply           sql.NullString
			rating                    sql.NullInt64
			createdAt                 sql.NullTime
		)
		if err := rows.Scan(&rv.ID, &bundle, &uploadID, &reviewer, &rating, &comment, &reply, &createdAt); err != nil {
			return err
		}
		rv.BundleID = bundle.String
		rv.UploadID = stringPtr(uploadID)
		rv.ReviewerName = reviewer.String
		rv.Rating = int(rating.Int64)
		rv.Comment = comment.String
		rv.Reply = stringPtr(reply)
		if createdAt.Valid {
			rv.CreatedAt = createdAt.Time.UTC()
		}
		reviews = append(reviews, &rv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) Reply(ctx context.Context, id int64, reply string) (bool, error) {
	if err := r.ready("reply review"); err != nil {
		return false, err
	}
	query, args := r.builder().Update(tableReviews).
		Set("reply", reply).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := r.exec(ctx, "reply review", query, args)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("reply review", err)
	}
	return n > 0, nil
}
