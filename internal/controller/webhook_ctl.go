package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/service"
)

// maxWebhookBytes Stripe 事件体上限
const maxWebhookBytes = 1 << 20

// WebhookController Stripe webhook
type WebhookController struct {
	svc *service.WebhookService
}

// NewWebhookController 创建控制器
func NewWebhookController(svc *service.WebhookService) *WebhookController {
	return &WebhookController{svc: svc}
}

// Handle 接收 Stripe 事件
// 需要原始请求体做签名校验，不能先做 JSON 绑定
// @Summary Stripe webhook
// @Tags Webhook
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe 签名"
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/stripe/webhook [post]
func (c *WebhookController) Handle(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBytes))
	if err != nil {
		ctx.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "Request body too large"})
		return
	}

	resp, err := c.svc.HandleEvent(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, resp)
	case errors.Is(err, service.ErrMissingSignature):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing Stripe signature"})
	case errors.Is(err, service.ErrInvalidSignature):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid signature"})
	default:
		if writeValidation(ctx, err) {
			return
		}
		// 5xx 让 Stripe 重试
		writeInternal(ctx, err, "Webhook handler failed")
	}
}
