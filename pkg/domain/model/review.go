/*
 * @Description: 应用评价领域模型
 * @Author: 安知鱼
 * @Date: 2026-03-04 10:02:51
 * @LastEditTime: 2026-03-28 14:12:07
 * @LastEditors: 安知鱼
 */
package model

import "time"

// Review 用户对某个应用（可选到具体构建）的评价
type Review struct {
	ID           int64     `json:"id"`
	BundleID     string    `json:"bundle_id"`
	UploadID     *string   `json:"upload_id,omitempty"`
	ReviewerName string    `json:"reviewer_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Reply        *string   `json:"reply,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateReviewRequest 新增评价的请求体
type CreateReviewRequest struct {
	BundleID     string  `json:"bundle_id" binding:"required"`
	UploadID     *string `json:"upload_id"`
	ReviewerName string  `json:"reviewer_name" binding:"required"`
	Rating       int     `json:"rating" binding:"required,min=1,max=5"`
	Comment      string  `json:"comment"`
}

// ReplyReviewRequest 管理员回复评价
type ReplyReviewRequest struct {
	Reply string `json:"reply" binding:"required"`
}
