package review_handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/response"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/review"
)

// Handler 应用评价接口
type Handler struct {
	reviewSvc review.Service
}

func NewHandler(reviewSvc review.Service) *Handler {
	return &Handler{reviewSvc: reviewSvc}
}

// ListByApp 获取应用的评价
// @Summary      评价列表
// @Tags         应用评价
// @Produce      json
// @Param        bundle_id  path   string  true   "Bundle ID"
// @Param        upload_id  query  string  false  "只返回该构建的评价"
// @Success      200  {object}  response.Response{data=[]model.Review}  "获取成功"
// @Router       /api/reviews/app/{bundle_id} [get]
func (h *Handler) ListByApp(c *gin.Context) {
	reviews, err := h.reviewSvc.List(c.Request.Context(), c.Param("bundle_id"), c.Query("upload_id"))
	if err != nil {
		response.FromError(c, err, "获取评价失败")
		return
	}
	response.Success(c, reviews, "获取成功")
}

// Create 提交评价
// @Summary      提交评价
// @Tags         应用评价
// @Accept       json
// @Produce      json
// @Param        body  body  model.CreateReviewRequest  true  "评价内容"
// @Success      201  {object}  response.Response{data=model.Review}  "提交成功"
// @Failure      400  {object}  response.Response  "参数无效"
// @Router       /api/reviews [post]
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数无效: "+err.Error())
		return
	}
	created, err := h.reviewSvc.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err, "提交评价失败")
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, created, "提交成功")
}

// Reply 管理员回复评价
// @Summary      回复评价
// @Tags         应用评价
// @Accept       json
// @Produce      json
// @Security     AuthToken
// @Param        id    path  int                       true  "评价 ID"
// @Param        body  body  model.ReplyReviewRequest  true  "回复内容"
// @Success      200  {object}  response.Response  "回复成功"
// @Failure      404  {object}  response.Response  "评价不存在"
// @Router       /api/reviews/{id}/reply [post]
func (h *Handler) Reply(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, "无效的评价 ID")
		return
	}
	var req model.ReplyReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数无效: "+err.Error())
		return
	}
	if err := h.reviewSvc.Reply(c.Request.Context(), id, req.Reply); err != nil {
		response.FromError(c, err, "回复评价失败")
		return
	}
	response.Success(c, nil, "回复成功")
}
