package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/service"
)

// CheckoutController Stripe 结账
type CheckoutController struct {
	svc *service.CheckoutService
}

// NewCheckoutController 创建控制器
func NewCheckoutController(svc *service.CheckoutService) *CheckoutController {
	return &CheckoutController{svc: svc}
}

// Create 创建 Checkout Session
// @Summary 创建 Stripe Checkout Session
// @Tags Checkout
// @Accept json
// @Produce json
// @Param body body dto.CreateCheckoutRequest true "结账请求"
// @Success 200 {object} dto.CreateCheckoutResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/stripe/create-checkout-session [post]
func (c *CheckoutController) Create(ctx *gin.Context) {
	var req dto.CreateCheckoutRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.svc.CreateCheckoutSession(ctx.Request.Context(), &req, requestOrigin(ctx))
	if err != nil {
		if writeValidation(ctx, err) {
			return
		}
		writeInternal(ctx, err, "Failed to create checkout session")
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// requestOrigin Origin 头优先，否则按 Host 拼接
func requestOrigin(ctx *gin.Context) string {
	if origin := strings.TrimSpace(ctx.GetHeader("Origin")); origin != "" && origin != "null" {
		return origin
	}
	scheme := "http"
	if ctx.Request.TLS != nil || strings.EqualFold(ctx.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	if ctx.Request.Host == "" {
		return ""
	}
	return scheme + "://" + ctx.Request.Host
}
