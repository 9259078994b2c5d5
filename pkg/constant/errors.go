/*
 * @Description: 业务错误定义
 * @Author: 安知鱼
 * @Date: 2026-03-02 10:12:41
 * @LastEditTime: 2026-04-11 16:20:05
 * @LastEditors: 安知鱼
 */
package constant

import "errors"

// 定义业务逻辑相关的标准错误
var (
	// ErrNotFound 表示资源未找到，可以由 Handler 转换为 404
	ErrNotFound = errors.New("资源未找到")

	// ErrConflict 表示资源冲突，可以由 Handler 转换为 409
	ErrConflict = errors.New("资源冲突")

	// ErrBadRequest 表示请求参数错误，可以由 Handler 转换为 400
	ErrBadRequest = errors.New("错误的请求")

	// ErrUnauthorized 表示未授权，可以由 Handler 转换为 401
	ErrUnauthorized = errors.New("未经授权的访问")

	// ErrForbidden 表示已认证但权限不足，可以由 Handler 转换为 403
	ErrForbidden = errors.New("权限不足")

	// ErrInvalidPackage 表示上传的安装包无法解析（格式错误、缺少清单或必要字段）。
	// 不会自动重试，由 Handler 转换为 400。
	ErrInvalidPackage = errors.New("无效的安装包")

	// ErrStoreUnavailable 表示元数据库未配置或连接失败。
	// 该错误只允许在核心内部流转：读路径回退到文件存储，写路径记录日志后继续。
	ErrStoreUnavailable = errors.New("元数据存储不可用")
)
