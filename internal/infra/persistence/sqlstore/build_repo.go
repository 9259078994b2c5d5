package sqlstore

import (
	"context"
	"database/sql"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
)

const tableApps = "apps"

var appColumns = []string{
	"upload_id", "app_title", "bundle_id", "bundle_version", "version_code", "build_number",
	"platform", "file_size", "file_url", "app_description", "app_picture_url", "created_at",
}

// buildRepository 是 BuildRepository 接口基于 SQL 的实现
type buildRepository struct {
	store
}

// NewBuildRepository drv 为 nil 时所有方法返回 ErrStoreUnavailable
func NewBuildRepository(drv dialect.Driver) repository.BuildRepository {
	return &buildRepository{store: newStore(drv)}
}

func scanBuild(rows *entsql.Rows) (*model.BuildRecord, error) {
	var (
		r                                           model.BuildRecord
		title, bundleID, bundleVersion, buildNumber sql.NullString
		platform, fileURL, description, pictureURL  sql.NullString
		versionCode, fileSize                       sql.NullInt64
		createdAt                                   sql.NullTime
	)
	if err := rows.Scan(&r.UploadID, &title, &bundleID, &bundleVersion, &versionCode, &buildNumber,
		&platform, &fileSize, &fileURL, &description, &pictureURL, &createdAt); err != nil {
		return nil, err
	}
	r.AppTitle = title.String
	r.BundleID = bundleID.String
	r.BundleVersion = bundleVersion.String
	r.VersionCode = int64Ptr(versionCode)
	r.BuildNumber = stringPtr(buildNumber)
	r.Platform = constant.Platform(platform.String)
	r.FileSize = fileSize.Int64
	r.AppDescription = stringPtr(description)
	r.AppPictureURL = stringPtr(pictureURL)
	r.CreatedAt = timePtr(createdAt)
	return &r, nil
}

func (r *buildRepository) selectApps() *entsql.Selector {
	b := r.builder()
	return b.Select(appColumns...).From(b.Table(tableApps))
}

func (r *buildRepository) queryBuilds(ctx context.Context, op string, selector *entsql.Selector) ([]*model.BuildRecord, error) {
	query, args := selector.Query()
	records := make([]*model.BuildRecord, 0)
	err := r.query(ctx, op, query, args, func(rows *entsql.Rows) error {
		rec, err := scanBuild(rows)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Upsert 按 upload_id 冲突时整体覆盖
func (r *buildRepository) Upsert(ctx context.Context, rec *model.BuildRecord) error {
	if err := r.ready("upsert build"); err != nil {
		return err
	}
	query, args := r.builder().Insert(tableApps).
		Columns(appColumns...).
		Values(
			rec.UploadID, rec.AppTitle, rec.BundleID, rec.BundleVersion,
			nullInt64(rec.VersionCode), nullString(rec.BuildNumber),
			string(rec.Platform), rec.FileSize, rec.FileURL(),
			nullString(rec.AppDescription), nullString(rec.AppPictureURL), nullTime(rec.CreatedAt),
		).
		OnConflict(
			entsql.ConflictColumns("upload_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	_, err := r.exec(ctx, "upsert build", query, args)
	return err
}

func (r *buildRepository) FindByUploadID(ctx context.Context, uploadID string) (*model.BuildRecord, error) {
	if err := r.ready("find build"); err != nil {
		return nil, err
	}
	records, err := r.queryBuilds(ctx, "find build",
		r.selectApps().Where(entsql.EQ("upload_id", uploadID)).Limit(1))
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

func (r *buildRepository) FindAll(ctx context.Context) ([]*model.BuildRecord, error) {
	if err := r.ready("list builds"); err != nil {
		return nil, err
	}
	return r.queryBuilds(ctx, "list builds", r.selectApps())
}

func (r *buildRepository) FindByBundleID(ctx context.Context, bundleID string) ([]*model.BuildRecord, error) {
	if err := r.ready("list bundle builds"); err != nil {
		return nil, err
	}
	return r.queryBuilds(ctx, "list bundle builds",
		r.selectApps().Where(entsql.EQ("bundle_id", bundleID)))
}

func (r *buildRepository) FindByDuplicateKey(ctx context.Context, key model.DuplicateKey) (*model.BuildRecord, error) {
	if key.Empty() {
		return nil, nil
	}
	if err := r.ready("find duplicate"); err != nil {
		return nil, err
	}
	pred := entsql.EQ("bundle_id", key.BundleID)
	if key.VersionCode != nil {
		pred = entsql.And(pred, entsql.EQ("version_code", *key.VersionCode))
	} else {
		pred = entsql.And(pred, entsql.EQ("build_number", *key.BuildNumber))
	}
	records, err := r.queryBuilds(ctx, "find duplicate", r.selectApps().Where(pred).Limit(1))
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

func (r *buildRepository) UpdateAppInfo(ctx context.Context, bundleID string, update model.AppInfoUpdate) (int64, error) {
	if err := r.ready("update app info"); err != nil {
		return 0, err
	}
	query, args := r.builder().Update(tableApps).
		Set("app_title", update.AppTitle).
		Set("app_description", nullString(update.AppDescription)).
		Set("app_picture_url", nullString(update.AppPictureURL)).
		Where(entsql.EQ("bundle_id", bundleID)).
		Query()
	res, err := r.exec(ctx, "update app info", query, args)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("update app info", err)
	}
	return n, nil
}

func (r *buildRepository) Delete(ctx context.Context, uploadID string) (bool, error) {
	if err := r.ready("delete build"); err != nil {
		return false, err
	}
	query, args := r.builder().Delete(tableApps).Where(entsql.EQ("upload_id", uploadID)).Query()
	res, err := r.exec(ctx, "delete build", query, args)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete build", err)
	}
	return n > 0, nil
}
