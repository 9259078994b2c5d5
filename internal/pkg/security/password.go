/*
 * @Description: 管理员密码哈希
 * @Author: 安知鱼
 * @Date: 2025-06-15 13:06:01
 * @LastEditTime: 2026-04-02 17:51:20
 * @LastEditors: 安知鱼
 */
package security

import "golang.org/x/crypto/bcrypt"

// PasswordCost 新写入密码使用的 bcrypt 成本
const PasswordCost = bcrypt.DefaultCost

// HashPassword 对密码进行哈希处理
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash 验证密码哈希，hash 不是合法的 bcrypt 串时返回 false
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsHash 判断存储值是否为 bcrypt 哈希。旧版本的 users 表保存的是明文密码。
func IsHash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}
