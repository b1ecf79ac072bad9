package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/service"
)

// OrderController 订单查询
type OrderController struct {
	svc *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(svc *service.OrderService) *OrderController {
	return &OrderController{svc: svc}
}

// ==================== 订单查询 ====================

// Track 按追踪码查询
// @Summary 按追踪码查询订单
// @Tags Order
// @Accept json
// @Produce json
// @Param body body dto.TrackOrderRequest true "追踪码"
// @Success 200 {object} dto.OrderStatusResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/orders/track [post]
func (c *OrderController) Track(ctx *gin.Context) {
	var req dto.TrackOrderRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.svc.TrackByCode(ctx.Request.Context(), req.TrackingID)
	if err != nil {
		if writeValidation(ctx, err) {
			return
		}
		if errors.Is(err, service.ErrOrderNotFound) {
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Order not found",
				Message: "We couldn't find an order with that tracking ID. Please check your tracking ID and try again.",
			})
			return
		}
		writeInternal(ctx, err, "Unable to look up order. Please try again later.")
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// BySession 支付成功页按 Stripe 会话查询
// @Summary 按 Stripe Checkout Session 查询订单
// @Tags Order
// @Accept json
// @Produce json
// @Param body body dto.OrderBySessionRequest true "Stripe Session ID"
// @Success 200 {object} dto.SessionOrderResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/orders/by-session [post]
func (c *OrderController) BySession(ctx *gin.Context) {
	var req dto.OrderBySessionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.svc.BySession(ctx.Request.Context(), req.SessionID)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, resp)
	case errors.Is(err, service.ErrOrderNotReady):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Order not ready",
			Message: "Order is still being processed. Please wait a moment.",
			Code:    dto.CodeOrderNotReady,
		})
	case errors.Is(err, service.ErrOrderNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Order not found",
			Message: "We couldn't find an order for this checkout session.",
			Code:    dto.CodeOrderNotFound,
		})
	default:
		if writeValidation(ctx, err) {
			return
		}
		writeInternal(ctx, err, "Unable to look up order. Please try again later.")
	}
}
