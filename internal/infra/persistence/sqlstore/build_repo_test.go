package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

func newMockDriver(t *testing.T, d string) (dialect.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return entsql.OpenDB(d, db), mock
}

func appRows() *sqlmock.Rows {
	return sqlmock.NewRows(appColumns)
}

func TestBuildRepository_Upsert(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	repo := NewBuildRepository(drv)
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	rec := &model.BuildRecord{
		UploadID:      "u1",
		Platform:      constant.PlatformAndroid,
		BundleID:      "com.x.app",
		AppTitle:      "X",
		BundleVersion: "1.0",
		VersionCode:   model.Int64Ptr(7),
		FileSize:      1234,
		CreatedAt:     &created,
	}

	mock.ExpectExec(`INSERT INTO "apps" .+ ON CONFLICT`).
		WithArgs("u1", "X", "com.x.app", "1.0", int64(7), "android", int64(1234),
			"/api/uploads/u1/app.apk", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Upsert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildRepository_FindByUploadID(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	repo := NewBuildRepository(drv)
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM "apps" WHERE "upload_id" = \$1`).
		WithArgs("u1").
		WillReturnRows(appRows().AddRow("u1", "X", "com.x.app", "1.0", nil, "42", "ios", int64(10),
			"/api/uploads/u1/app.ipa", "desc", nil, created))

	rec, err := repo.FindByUploadID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, constant.PlatformIOS, rec.Platform)
	assert.Equal(t, "42", *rec.BuildNumber)
	assert.Nil(t, rec.VersionCode)
	assert.Equal(t, "desc", *rec.AppDescription)
	assert.Nil(t, rec.AppPictureURL)
	assert.True(t, created.Equal(*rec.CreatedAt))

	mock.ExpectQuery(`SELECT .+ FROM "apps"`).WithArgs("missing").WillReturnRows(appRows())
	rec, err = repo.FindByUploadID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildRepository_NullCreatedAt(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.SQLite)
	repo := NewBuildRepository(drv)

	mock.ExpectQuery(`SELECT .+ FROM .apps. WHERE .bundle_id. = \?`).
		WithArgs("com.legacy").
		WillReturnRows(appRows().AddRow("old", "Legacy", "com.legacy", "0.9", nil, nil, "ios", int64(5),
			"/api/uploads/old/app.ipa", nil, nil, nil))

	recs, err := repo.FindByBundleID(context.Background(), "com.legacy")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].CreatedAt)
	assert.Equal(t, int64(0), recs[0].CreatedUnix())
}

func TestBuildRepository_FindByDuplicateKey(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	repo := NewBuildRepository(drv)

	mock.ExpectQuery(`FROM "apps" WHERE .*"bundle_id" = \$1.* AND .*"version_code" = \$2`).
		WithArgs("com.x.app", int64(7)).
		WillReturnRows(appRows().AddRow("u1", "X", "com.x.app", "1.0", int64(7), nil, "android", int64(10),
			"/api/uploads/u1/app.apk", nil, nil, nil))

	rec, err := repo.FindByDuplicateKey(context.Background(), model.DuplicateKey{BundleID: "com.x.app", VersionCode: model.Int64Ptr(7)})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "u1", rec.UploadID)

	// 空键不访问数据库
	rec, err = repo.FindByDuplicateKey(context.Background(), model.DuplicateKey{BundleID: "com.x.app"})
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildRepository_Delete(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	repo := NewBuildRepository(drv)

	mock.ExpectExec(`DELETE FROM "apps" WHERE "upload_id" = \$1`).WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "apps"`).WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	existed, err := repo.Delete(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestBuildRepository_UpdateAppInfo(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.MySQL)
	repo := NewBuildRepository(drv)

	desc := "new description"
	mock.ExpectExec("UPDATE `apps` SET").
		WithArgs("New Title", desc, "com.x.app").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.UpdateAppInfo(context.Background(), "com.x.app", model.AppInfoUpdate{AppTitle: "New Title", AppDescription: &desc})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBuildRepository_DriverErrorIsUnavailable(t *testing.T) {
	drv, mock := newMockDriver(t, dialect.Postgres)
	repo := NewBuildRepository(drv)

	mock.ExpectQuery(`FROM "apps"`).WillReturnError(errors.New("connection refused"))

	_, err := repo.FindAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, constant.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBuildRepository_NilDriver(t *testing.T) {
	repo := NewBuildRepository(nil)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Upsert(ctx, &model.BuildRecord{UploadID: "u"}), constant.ErrStoreUnavailable)
	_, err := repo.FindByUploadID(ctx, "u")
	assert.ErrorIs(t, err, constant.ErrStoreUnavailable)
	_, err = repo.FindAll(ctx)
	assert.ErrorIs(t, err, constant.ErrStoreUnavailable)
	_, err = repo.FindByBundleID(ctx, "b")
	assert.ErrorIs(t, err, constant.ErrStoreUnavailable)
	_, err = repo.Delete(ctx, "u")
	assert.ErrorIs(t, err, constant.ErrStoreUnavailable)
	_, err = repo.UpdateAppInfo(ctx, "b", model.AppInfoUpdate{AppTitle: "t"})
	assert.ErrorIs(t, err, constant.ErrStoreUnavailable)
}
