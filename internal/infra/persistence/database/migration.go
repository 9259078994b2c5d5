/*
 * @Description: 数据库迁移服务（幂等建表与旧表补列）
 * @Author: 安知鱼
 * @Date: 2025-12-08
 */
package database

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/sirupsen/logrus"
)

// MigrationService 数据库迁移服务
type MigrationService struct {
	db      *sql.DB
	dialect string
	log     *logrus.Entry
}

// NewMigrationService 创建迁移服务，d 为 Ent 方言 (postgres / mysql / sqlite3)
func NewMigrationService(db *sql.DB, d string) *MigrationService {
	return &MigrationService{
		db:      db,
		dialect: d,
		log:     logrus.WithField("module", "migration"),
	}
}

// column 旧版本建表时缺失、需要补齐的列
type column struct {
	table string
	name  string
	ddl   map[string]string
}

// RunMigrations 执行所有迁移，可重复执行
func (m *MigrationService) RunMigrations(ctx context.Context) error {
	m.log.Info("开始执行数据库迁移...")

	statements, ok := createStatements[m.dialect]
	if !ok {
		return fmt.Errorf("不支持的数据库方言: %s", m.dialect)
	}
	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
	}

	// 旧版本创建的 apps / reviews 表缺少以下列
	for _, col := range addedColumns {
		if err := m.addColumnIfMissing(ctx, col); err != nil {
			return err
		}
	}

	m.log.Info("数据库迁移完成")
	return nil
}

func (m *MigrationService) addColumnIfMissing(ctx context.Context, col column) error {
	exists, err := m.columnExists(ctx, col.table, col.name)
	if err != nil {
		return fmt.Errorf("检查 %s.%s 字段失败: %w", col.table, col.name, err)
	}
	if exists {
		return nil
	}
	m.log.Infof("添加 %s.%s 字段...", col.table, col.name)
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.name, col.ddl[m.dialect])
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("添加 %s.%s 字段失败: %w", col.table, col.name, err)
	}
	return nil
}

// columnExists 检查列是否存在
func (m *MigrationService) columnExists(ctx context.Context, tableName, columnName string) (bool, error) {
	var query string
	switch m.dialect {
	case dialect.MySQL:
		query = `
			SELECT COUNT(*)
			FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE()
			AND TABLE_NAME = ?
			AND COLUMN_NAME = ?
		`
	case dialect.Postgres:
		query = `
			SELECT COUNT(*)
			FROM information_schema.columns
			WHERE table_name = $1
			AND column_name = $2
		`
	case dialect.SQLite:
		query = `
			SELECT COUNT(*)
			FROM pragma_table_info(?)
			WHERE name = ?
		`
	default:
		return false, fmt.Errorf("不支持的数据库方言: %s", m.dialect)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, query, tableName, columnName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

var addedColumns = []column{
	{table: "apps", name: "app_description", ddl: map[string]string{
		dialect.Postgres: "TEXT", dialect.MySQL: "TEXT NULL", dialect.SQLite: "TEXT",
	}},
	{table: "apps", name: "app_picture_url", ddl: map[string]string{
		dialect.Postgres: "VARCHAR(1000)", dialect.MySQL: "VARCHAR(1000) NULL", dialect.SQLite: "TEXT",
	}},
	{table: "reviews", name: "bundle_id", ddl: map[string]string{
		dialect.Postgres: "VARCHAR(255)", dialect.MySQL: "VARCHAR(255) NULL", dialect.SQLite: "TEXT",
	}},
	{table: "reviews", name: "upload_id", ddl: map[string]string{
		dialect.Postgres: "VARCHAR(255)", dialect.MySQL: "VARCHAR(255) NULL", dialect.SQLite: "TEXT",
	}},
	{table: "reviews", name: "reply", ddl: map[string]string{
		dialect.Postgres: "TEXT", dialect.MySQL: "TEXT NULL", dialect.SQLite: "TEXT",
	}},
}

var createStatements = map[string][]string{
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id SERIAL PRIMARY KEY,
			bundle_id VARCHAR(255),
			upload_id VARCHAR(255),
			reviewer_name VARCHAR(255),
			rating INTEGER,
			comment TEXT,
			reply TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS apps (
			id SERIAL PRIMARY KEY,
			upload_id VARCHAR(255) UNIQUE NOT NULL,
			app_title VARCHAR(255),
			bundle_id VARCHAR(255),
			bundle_version VARCHAR(255),
			version_code BIGINT,
			build_number VARCHAR(255),
			platform VARCHAR(20),
			file_size BIGINT,
			file_url VARCHAR(500),
			app_description TEXT,
			app_picture_url VARCHAR(1000),
			created_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_apps_bundle_id ON apps(bundle_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(255) PRIMARY KEY,
			value JSONB,
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
	},
	dialect.MySQL: {
		"CREATE TABLE IF NOT EXISTS users (" +
			"id BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"username VARCHAR(50) NOT NULL UNIQUE," +
			"password VARCHAR(255) NOT NULL," +
			"role VARCHAR(20) NOT NULL," +
			"created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)" +
			") DEFAULT CHARSET=utf8mb4",
		"CREATE TABLE IF NOT EXISTS reviews (" +
			"id BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"bundle_id VARCHAR(255) NULL," +
			"upload_id VARCHAR(255) NULL," +
			"reviewer_name VARCHAR(255) NULL," +
			"rating INT NULL," +
			"comment TEXT NULL," +
			"reply TEXT NULL," +
			"created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)," +
			"INDEX idx_reviews_bundle_id (bundle_id)" +
			") DEFAULT CHARSET=utf8mb4",
		"CREATE TABLE IF NOT EXISTS apps (" +
			"id BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"upload_id VARCHAR(255) NOT NULL UNIQUE," +
			"app_title VARCHAR(255) NULL," +
			"bundle_id VARCHAR(255) NULL," +
			"bundle_version VARCHAR(255) NULL," +
			"version_code BIGINT NULL," +
			"build_number VARCHAR(255) NULL," +
			"platform VARCHAR(20) NULL," +
			"file_size BIGINT NULL," +
			"file_url VARCHAR(500) NULL," +
			"app_description TEXT NULL," +
			"app_picture_url VARCHAR(1000) NULL," +
			"created_at DATETIME(6) NULL," +
			"INDEX idx_apps_bundle_id (bundle_id)" +
			") DEFAULT CHARSET=utf8mb4",
		"CREATE TABLE IF NOT EXISTS settings (" +
			"`key` VARCHAR(255) PRIMARY KEY," +
			"value JSON NULL," +
			"updated_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)" +
			") DEFAULT CHARSET=utf8mb4",
	},
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bundle_id TEXT,
			upload_id TEXT,
			reviewer_name TEXT,
			rating INTEGER,
			comment TEXT,
			reply TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS apps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			upload_id TEXT NOT NULL UNIQUE,
			app_title TEXT,
			bundle_id TEXT,
			bundle_version TEXT,
			version_code INTEGER,
			build_number TEXT,
			platform TEXT,
			file_size INTEGER,
			file_url TEXT,
			app_description TEXT,
			app_picture_url TEXT,
			created_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_apps_bundle_id ON apps(bundle_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	},
}
