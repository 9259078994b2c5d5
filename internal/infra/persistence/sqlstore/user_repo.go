package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
)

const tableUsers = "users"

// userRepository 是 UserRepository 接口基于 SQL 的实现
type userRepository struct {
	store
}

// NewUserRepository 是 userRepository 的构造函数
func NewUserRepository(drv dialect.Driver) repository.UserRepository {
	return &userRepository{store: newStore(drv)}
}

var userColumns = []string{"id", "username", "password", "role", "created_at"}

func scanUser(rows *entsql.Rows) (*model.User, error) {
	var (
		u         model.User
		role      string
		createdAt sql.NullTime
	)
	if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &createdAt); err != nil {
		return nil, err
	}
	u.Role = constant.UserRole(role)
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time.UTC()
	}
	return &u, nil
}

func (r *userRepository) queryUsers(ctx context.Context, op string, selector *entsql.Selector) ([]*model.User, error) {
	query, args := selector.Query()
	users := make([]*model.User, 0)
	err := r.query(ctx, op, query, args, func(rows *entsql.Rows) error {
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) selectUsers() *entsql.Selector {
	b := r.builder()
	return b.Select(userColumns...).From(b.Table(tableUsers))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if err := r.ready("find user"); err != nil {
		return nil, err
	}
	users, err := r.queryUsers(ctx, "find user", r.selectUsers().Where(entsql.EQ("username", username)).Limit(1))
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	if err := r.ready("list users"); err != nil {
		return nil, err
	}
	return r.queryUsers(ctx, "list users", r.selectUsers().OrderBy("id"))
}

// Create 用户名已存在时返回 ErrConflict
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	existing, err := r.FindByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: 用户名 %s 已存在", constant.ErrConflict, user.Username)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query, args := r.builder().Insert(tableUsers).
		Columns("username", "password", "role", "created_at").
		Values(user.Username, user.PasswordHash, string(user.Role), user.CreatedAt).
		Query()
	_, err = r.exec(ctx, "create user", query, args)
	return err
}

// updateOne 按用户名更新单列，返回是否命中
func (r *userRepository) updateOne(ctx context.Context, op, username, column string, value any) (bool, error) {
	if err := r.ready(op); err != nil {
		return false, err
	}
	query, args := r.builder().Update(tableUsers).
		Set(column, value).
		Where(entsql.EQ("username", username)).
		Query()
	res, err := r.exec(ctx, op, query, args)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(op, err)
	}
	return n > 0, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, username, passwordHash string) (bool, error) {
	return r.updateOne(ctx, "update password", username, "password", passwordHash)
}

func (r *userRepository) UpdateRole(ctx context.Context, username string, role constant.UserRole) (bool, error) {
	return r.updateOne(ctx, "update role", username, "role", string(role))
}

func (r *userRepository) Rename(ctx context.Context, oldUsername, newUsername string) (bool, error) {
	if oldUsername == newUsername {
		u, err := r.FindByUsername(ctx, oldUsername)
		return u != nil, err
	}
	existing, err := r.FindByUsername(ctx, newUsername)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, fmt.Errorf("%w: 用户名 %s 已存在", constant.ErrConflict, newUsername)
	}
	return r.updateOne(ctx, "rename user", oldUsername, "username", newUsername)
}

func (r *userRepository) Delete(ctx context.Context, username string) (bool, error) {
	if err := r.ready("delete user"); err != nil {
		return false, err
	}
	query, args := r.builder().Delete(tableUsers).Where(entsql.EQ("username", username)).Query()
	res, err := r.exec(ctx, "delete user", query, args)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete user", err)
	}
	return n > 0, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	if err := r.ready("count users"); err != nil {
		return 0, err
	}
	b := r.builder()
	query, args := b.Select(entsql.Count("*")).From(b.Table(tableUsers)).Query()
	var n int64
	err := r.query(ctx, "count users", query, args, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	return n, err
}
