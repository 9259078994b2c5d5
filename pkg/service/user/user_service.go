/*
 * @Description: 管理员账号：默认拥有者初始化、登录校验与账号管理
 * @Author: 安知鱼
 * @Date: 2025-06-20 13:27:06
 * @LastEditTime: 2026-04-07 15:21:28
 * @LastEditors: 安知鱼
 */
package user

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/internal/configdef"
	"github.com/anzhiyu-c/anheyu-appdist/internal/pkg/security"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/repository"
)

// UserService 定义了用户相关的业务逻辑接口
type UserService interface {
	// EnsureDefaultOwner users 表为空时创建默认拥有者
	EnsureDefaultOwner(ctx context.Context) error
	// Authenticate 校验用户名与密码，失败时返回 constant.ErrUnauthorized
	Authenticate(ctx context.Context, username, password string) (*model.User, error)

	// 以下管理操作的 actor 为 nil 表示令牌认证，按 admin 权限处理
	ListUsers(ctx context.Context) ([]*model.User, error)
	CreateUser(ctx context.Context, actor *model.User, username, password string, role constant.UserRole) (*model.User, error)
	DeleteUser(ctx context.Context, actor *model.User, username string) error
	// ChangeRole 转让 owner 时原 owner 降级为 admin
	ChangeRole(ctx context.Context, actor *model.User, username string, role constant.UserRole) (*model.User, error)
	UpdateUser(ctx context.Context, actor *model.User, username string, update model.UserUpdate) (*model.User, error)
}

// userService 是 UserService 接口的实现
type userService struct {
	userRepo repository.UserRepository
	txm      repository.TransactionManager
	log      *logrus.Entry
}

// NewUserService 是 userService 的构造函数
func NewUserService(userRepo repository.UserRepository, txm repository.TransactionManager) UserService {
	return &userService{
		userRepo: userRepo,
		txm:      txm,
		log:      logrus.WithField("module", "user"),
	}
}

func (s *userService) EnsureDefaultOwner(ctx context.Context) error {
	def := configdef.DefaultOwner
	hash, err := security.HashPassword(def.Password)
	if err != nil {
		return fmt.Errorf("生成密码哈希失败: %w", err)
	}

	created := false
	err = s.txm.Do(ctx, func(repos repository.Repositories) error {
		n, err := repos.User.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		created = true
		return repos.User.Create(ctx, &model.User{Username: def.Username, PasswordHash: hash, Role: def.Role})
	})
	if err != nil {
		return err
	}
	if created {
		s.log.Warnf("已创建默认拥有者账号 '%s'，请尽快修改默认密码", def.Username)
	}
	return nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || password == "" {
		return nil, fmt.Errorf("%w: 用户名或密码错误", constant.ErrUnauthorized)
	}

	if security.IsHash(u.PasswordHash) {
		if !security.CheckPasswordHash(password, u.PasswordHash) {
			return nil, fmt.Errorf("%w: 用户名或密码错误", constant.ErrUnauthorized)
		}
		return u, nil
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(u.PasswordHash)) != 1 {
		return nil, fmt.Errorf("%w: 用户名或密码错误", constant.ErrUnauthorized)
	}
	// 明文密码登录成功后升级为 bcrypt
	hash, err := security.HashPassword(password)
	if err == nil {
		_, err = s.userRepo.UpdatePassword(ctx, username, hash)
	}
	if err != nil {
		s.log.WithField("username", username).Warnf("升级明文密码失败: %v", err)
	} else {
		u.PasswordHash = hash
	}
	return u, nil
}

func actorRole(actor *model.User) constant.UserRole {
	if actor == nil {
		return constant.RoleAdmin
	}
	return actor.Role
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", constant.ErrForbidden, fmt.Sprintf(format, args...))
}

// canManage owner 只能由自己修改；admin 只能由 owner 管理
func canManage(actor, target *model.User) error {
	switch target.Role {
	case constant.RoleOwner:
		if actor == nil || actor.Username != target.Username {
			return forbidden("不能修改拥有者账户")
		}
	case constant.RoleAdmin:
		if actorRole(actor) != constant.RoleOwner {
			return forbidden("只有拥有者可以管理管理员")
		}
	}
	return nil
}

func (s *userService) findTarget(ctx context.Context, username string) (*model.User, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: 用户 %s 不存在", constant.ErrNotFound, username)
	}
	return u, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.List(ctx)
}

func (s *userService) CreateUser(ctx context.Context, actor *model.User, username, password string, role constant.UserRole) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 6 {
		return nil, fmt.Errorf("%w: 用户名不能为空且密码至少 6 位", constant.ErrBadRequest)
	}
	if role == "" {
		role = constant.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: 无效的角色 %q", constant.ErrBadRequest, role)
	}
	if role != constant.RoleUser && actorRole(actor) != constant.RoleOwner {
		return nil, forbidden("只有拥有者可以创建 %s 账户", role)
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("生成密码哈希失败: %w", err)
	}
	u := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithField("username", username).Infof("已创建用户，角色 %s", role)
	return u, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor *model.User, username string) error {
	target, err := s.findTarget(ctx, username)
	if err != nil {
		return err
	}
	if target.Role == constant.RoleOwner {
		return forbidden("不能删除拥有者账户")
	}
	if err := canManage(actor, target); err != nil {
		return err
	}
	if _, err := s.userRepo.Delete(ctx, username); err != nil {
		return err
	}
	s.log.WithField("username", username).Info("已删除用户")
	return nil
}

func (s *userService) ChangeRole(ctx context.Context, actor *model.User, username string, role constant.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: 无效的角色 %q", constant.ErrBadRequest, role)
	}
	target, err := s.findTarget(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.Role == constant.RoleOwner {
		return nil, forbidden("拥有者的角色只能通过转让改变")
	}
	if err := canManage(actor, target); err != nil {
		return nil, err
	}
	if role != constant.RoleUser && actorRole(actor) != constant.RoleOwner {
		return nil, forbidden("只有拥有者可以授予 %s 角色", role)
	}

	if role != constant.RoleOwner {
		if _, err := s.userRepo.UpdateRole(ctx, username, role); err != nil {
			return nil, err
		}
		target.Role = role
		return target, nil
	}

	// 转让拥有者：原拥有者降级为 admin，与提升在同一事务中完成
	err = s.txm.Do(ctx, func(repos repository.Repositories) error {
		users, err := repos.User.List(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Role == constant.RoleOwner {
				if _, err := repos.User.UpdateRole(ctx, u.Username, constant.RoleAdmin); err != nil {
					return err
				}
			}
		}
		_, err = repos.User.UpdateRole(ctx, username, constant.RoleOwner)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("username", username).Warn("拥有者已转让")
	target.Role = constant.RoleOwner
	return target, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor *model.User, username string, update model.UserUpdate) (*model.User, error) {
	target, err := s.findTarget(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, target); err != nil {
		return nil, err
	}
	newName := strings.TrimSpace(update.Username)
	if update.Password != "" && len(update.Password) < 6 {
		return nil, fmt.Errorf("%w: 密码至少 6 位", constant.ErrBadRequest)
	}

	var hash string
	if update.Password != "" {
		if hash, err = security.HashPassword(update.Password); err != nil {
			return nil, fmt.Errorf("生成密码哈希失败: %w", err)
		}
	}
	err = s.txm.Do(ctx, func(repos repository.Repositories) error {
		if newName != "" && newName != username {
			if _, err := repos.User.Rename(ctx, username, newName); err != nil {
				return err
			}
			target.Username = newName
		}
		if hash != "" {
			if _, err := repos.User.UpdatePassword(ctx, target.Username, hash); err != nil {
				return err
			}
			target.PasswordHash = hash
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("username", target.Username).Info("已更新用户")
	return target, nil
}
