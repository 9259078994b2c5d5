package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_SQLite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range createStatements[dialect.SQLite] {
		mock.ExpectExec("CREATE (TABLE|INDEX) IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	// apps.app_description 缺失，其余列已存在
	mock.ExpectQuery(regexp.QuoteMeta("FROM pragma_table_info(?)")).
		WithArgs("apps", "app_description").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE apps ADD COLUMN app_description TEXT")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, col := range addedColumns[1:] {
		mock.ExpectQuery(regexp.QuoteMeta("FROM pragma_table_info(?)")).
			WithArgs(col.table, col.name).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	}

	svc := NewMigrationService(db, dialect.SQLite)
	require.NoError(t, svc.RunMigrations(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_CreateFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

	err = NewMigrationService(db, dialect.Postgres).RunMigrations(context.Background())
	assert.ErrorContains(t, err, "建表失败")
}

func TestRunMigrations_UnknownDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewMigrationService(db, "oracle").RunMigrations(context.Background())
	assert.Error(t, err)
}

func TestDialectOf(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "none", want: ""},
		{in: "postgres", want: dialect.Postgres},
		{in: "pgx", want: dialect.Postgres},
		{in: "MySQL", want: dialect.MySQL},
		{in: "sqlite", want: dialect.SQLite},
		{in: "oracle", wantErr: true},
	}
	for _, tt := range tests {
		got, err := DialectOf(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN(drivers["mysql"], "u:p@tcp(db:3306)/app")
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/app?parseTime=true", dsn)

	dsn, err = buildDSN(drivers["mysql"], "u:p@tcp(db:3306)/app?charset=utf8mb4")
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/app?charset=utf8mb4&parseTime=true", dsn)

	_, err = buildDSN(drivers["postgres"], "")
	assert.Error(t, err)

	dsn, err = buildDSN(drivers["sqlite"], "file:test.db?mode=memory")
	require.NoError(t, err)
	assert.Equal(t, "file:test.db?mode=memory", dsn)
}
