package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/service"
)

// NewsletterController 邮件订阅
type NewsletterController struct {
	svc *service.NewsletterService
}

func NewNewsletterController(svc *service.NewsletterService) *NewsletterController {
	return &NewsletterController{svc: svc}
}

// Subscribe 订阅
// @Summary 邮件订阅
// @Tags Newsletter
// @Accept json
// @Produce json
// @Param x-session-id header string false "会话 ID"
// @Param body body dto.SubscribeRequest true "订阅信息"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/newsletter/subscribe [post]
func (c *NewsletterController) Subscribe(ctx *gin.Context) {
	var req dto.SubscribeRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if sid := strings.TrimSpace(ctx.GetHeader("x-session-id")); sid != "" {
		req.SessionID = sid
	}
	if req.UserAgent == "" {
		req.UserAgent = ctx.Request.UserAgent()
	}

	msg, err := c.svc.Subscribe(ctx.Request.Context(), &req)
	if err != nil {
		if writeValidation(ctx, err) {
			return
		}
		writeInternal(ctx, err, "Failed to subscribe. Please try again later.")
		return
	}

	ctx.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: msg})
}
