// internal/constant/setting.go
/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-03-04 17:18:09
 * @LastEditTime: 2026-04-02 12:50:55
 * @LastEditors: 安知鱼
 */
package constant

// SettingKey 为所有在应用中使用的配置键定义了类型安全的常量。
type SettingKey string

// ToString 方便地将 SettingKey 转换为 string 类型。
func (k SettingKey) String() string {
	return string(k)
}

const (
	// KeyAppSettings 与旧版保持一致，整体以 JSON 对象存储
	KeyAppSettings SettingKey = "app_settings"
)

// DuplicatePolicy 重复版本上传策略
type DuplicatePolicy string

const (
	// DuplicatePolicyError 已存在相同版本时拒绝上传
	DuplicatePolicyError DuplicatePolicy = "error"
	// DuplicatePolicyReplace 已存在相同版本时替换旧版本
	DuplicatePolicyReplace DuplicatePolicy = "replace"
)

// Valid 判断策略是否合法
func (p DuplicatePolicy) Valid() bool {
	return p == DuplicatePolicyError || p == DuplicatePolicyReplace
}

// SerializeMode 同一 bundle 并发上传的串行化方式
type SerializeMode string

const (
	// SerializeNone 不做串行化，接受最终一致
	SerializeNone SerializeMode = "none"
	// SerializeLocal 进程内按 bundle 加锁
	SerializeLocal SerializeMode = "local"
	// SerializeRedis 借助 Redis 的分布式锁
	SerializeRedis SerializeMode = "redis"
)

// UserRole 用户角色
type UserRole string

const (
	RoleOwner UserRole = "owner"
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// Valid 判断角色是否合法
func (r UserRole) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleUser
}
