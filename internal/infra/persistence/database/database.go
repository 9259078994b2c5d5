/*
 * @Description: 数据库连接管理 (支持多种数据库)
 * @Author: 安知鱼
 * @Date: 2025-07-12 16:09:46
 * @LastEditTime: 2026-03-10 22:18:03
 * @LastEditors: 安知鱼
 */
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Disabled 表示未配置元数据库，仅使用文件存储
const Disabled = "none"

// driverSpec 描述了 Database.Type 对应的 database/sql 驱动与 Ent 方言
type driverSpec struct {
	driverName string
	dialect    string
}

var drivers = map[string]driverSpec{
	"postgres":   {driverName: "postgres", dialect: dialect.Postgres},
	"postgresql": {driverName: "postgres", dialect: dialect.Postgres},
	"pgx":        {driverName: "pgx", dialect: dialect.Postgres},
	"mysql":      {driverName: "mysql", dialect: dialect.MySQL},
	"mariadb":    {driverName: "mysql", dialect: dialect.MySQL},
	"sqlite":     {driverName: "sqlite3", dialect: dialect.SQLite},
	"sqlite3":    {driverName: "sqlite3", dialect: dialect.SQLite},
}

// DialectOf 返回 Database.Type 对应的 Ent 方言，未配置时返回空字符串
func DialectOf(dbType string) (string, error) {
	dbType = strings.ToLower(strings.TrimSpace(dbType))
	if dbType == "" || dbType == Disabled {
		return "", nil
	}
	spec, ok := drivers[dbType]
	if !ok {
		return "", fmt.Errorf("不支持的数据库驱动: %s (支持: postgres, pgx, mysql/mariadb, sqlite, none)", dbType)
	}
	return spec.dialect, nil
}

// NewSQLDB 创建并返回一个标准的 *sql.DB 连接池。
// Database.Type 为空或 none 时返回 (nil, nil)，上层将以"元数据库不可用"的方式运行。
func NewSQLDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	dbType := strings.ToLower(strings.TrimSpace(cfg.GetString(config.KeyDBType)))
	if dbType == "" || dbType == Disabled {
		logrus.Warn("未配置 'Database.Type'，元数据库已禁用，所有查询将直接读取文件存储")
		return nil, nil
	}
	spec, ok := drivers[dbType]
	if !ok {
		return nil, fmt.Errorf("不支持的数据库驱动: %s (支持: postgres, pgx, mysql/mariadb, sqlite, none)", dbType)
	}

	dsn, err := buildDSN(spec, cfg.GetString(config.KeyDBURL))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(spec.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 sql.DB 连接失败 (驱动: %s): %w", spec.driverName, err)
	}

	// 设置连接池参数
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法 Ping 通数据库 (驱动: %s): %w", spec.driverName, err)
	}

	logrus.Infof("%s 数据库连接池创建成功", dbType)
	return db, nil
}

// buildDSN 根据驱动规整连接串
func buildDSN(spec driverSpec, url string) (string, error) {
	url = strings.TrimSpace(url)
	switch spec.dialect {
	case dialect.SQLite:
		if url == "" {
			url = "data/appdist.db"
		}
		if strings.HasPrefix(url, "file:") {
			return url, nil
		}
		if err := os.MkdirAll(filepath.Dir(url), os.ModePerm); err != nil {
			return "", fmt.Errorf("无法创建 SQLite 数据目录: %w", err)
		}
		logrus.Infof("SQLite 数据库路径: %s", url)
		// 使用 file: DSN 格式并启用外键约束
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", url), nil
	case dialect.MySQL:
		if url == "" {
			return "", fmt.Errorf("MySQL 需要配置 Database.URL (user:pass@tcp(host:port)/db)")
		}
		// 扫描 TIMESTAMP 列到 time.Time 需要 parseTime
		if !strings.Contains(url, "parseTime=") {
			if strings.Contains(url, "?") {
				url += "&parseTime=true"
			} else {
				url += "?parseTime=true"
			}
		}
		return url, nil
	default:
		if url == "" {
			return "", fmt.Errorf("PostgreSQL 需要配置 Database.URL")
		}
		return url, nil
	}
}

// NewDriver 基于连接池创建 Ent 方言驱动，供 sqlstore 使用 SQL 构造器。
// db 为 nil 时返回 nil。
func NewDriver(db *sql.DB, cfg *config.Config) (dialect.Driver, error) {
	if db == nil {
		return nil, nil
	}
	d, err := DialectOf(cfg.GetString(config.KeyDBType))
	if err != nil {
		return nil, err
	}
	var drv dialect.Driver = entsql.OpenDB(d, db)
	// 根据配置决定是否打印 SQL
	if cfg.GetBool(config.KeyDBDebug) {
		drv = dialect.DebugWithContext(drv, func(ctx context.Context, args ...any) {
			logrus.WithField("module", "sql").Debug(args...)
		})
		logrus.Info("【数据库】Debug模式已开启，将打印所有执行的SQL语句。")
	}
	return drv, nil
}
