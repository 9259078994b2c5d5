/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-20 13:01:45
 * @LastEditTime: 2026-03-05 11:30:16
 * @LastEditors: 安知鱼
 */
package model

import "time"

// Setting 是核心业务模型，Value 为任意 JSON 对象
type Setting struct {
	Key       string    `json:"key"`
	Value     JSONMap   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings 存储在 app_settings 键下的全局配置
type AppSettings struct {
	DuplicateUploadPolicy string `json:"duplicate_upload_policy"`
}
