/*
 * @Description: 基于 Ent SQL 构造器的仓储公共部分
 * @Author: 安知鱼
 * @Date: 2026-03-06 14:20:55
 * @LastEditTime: 2026-04-10 18:47:12
 * @LastEditors: 安知鱼
 */
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// store 封装了执行器与方言。eq 为 nil 表示未配置数据库。
type store struct {
	eq      dialect.ExecQuerier
	dialect string
}

func newStore(drv dialect.Driver) store {
	if drv == nil {
		return store{}
	}
	return store{eq: drv, dialect: drv.Dialect()}
}

// unavailable 将任何驱动错误转换为 ErrStoreUnavailable，原始错误只保留文本
func unavailable(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s: 未配置数据库", constant.ErrStoreUnavailable, op)
	}
	return fmt.Errorf("%w: %s: %v", constant.ErrStoreUnavailable, op, err)
}

func (s store) ready(op string) error {
	if s.eq == nil {
		return unavailable(op, nil)
	}
	return nil
}

func (s store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s store) exec(ctx context.Context, op, query string, args []any) (sql.Result, error) {
	if err := s.ready(op); err != nil {
		return nil, err
	}
	var res sql.Result
	if err := s.eq.Exec(ctx, query, args, &res); err != nil {
		return nil, unavailable(op, err)
	}
	return res, nil
}

// query 执行查询并对每一行调用 scan
func (s store) query(ctx context.Context, op, query string, args []any, scan func(rows *entsql.Rows) error) error {
	if err := s.ready(op); err != nil {
		return err
	}
	rows := &entsql.Rows{}
	if err := s.eq.Query(ctx, query, args, rows); err != nil {
		return unavailable(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return unavailable(op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}
