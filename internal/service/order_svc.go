package service

import (
	"context"
	"errors"
	"strings"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"

	"gorm.io/gorm"
)

// OrderService 面向顾客的订单查询（只读）
type OrderService struct {
	orders   repository.OrderRepository
	attempts repository.CheckoutAttemptRepository
	clock    Clock
}

// NewOrderService 创建服务
func NewOrderService(orders repository.OrderRepository, attempts repository.CheckoutAttemptRepository, clock Clock) *OrderService {
	return &OrderService{orders: orders, attempts: attempts, clock: clock}
}

// TrackByCode 格式不对时不查库，大小写敏感
func (s *OrderService) TrackByCode(ctx context.Context, trackingID string) (*dto.OrderStatusResponse, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, newValidationError("tracking_id", "Tracking ID is required")
	}
	if !IsValidTrackingID(trackingID) {
		return nil, &ValidationError{Field: "tracking_id", Message: "Invalid tracking ID format"}
	}

	order, err := s.orders.GetByTrackingID(ctx, trackingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, upstream("查询订单", err)
	}

	status := toStatusResponse(order)
	return &status, nil
}

// BySession 支付成功页轮询
// 未找到订单时：本系统创建的会话仍在有效期内 → ErrOrderNotReady，否则 ErrOrderNotFound
func (s *OrderService) BySession(ctx context.Context, stripeSessionID string) (*dto.SessionOrderResponse, error) {
	stripeSessionID = strings.TrimSpace(stripeSessionID)
	if stripeSessionID == "" {
		return nil, newValidationError("session_id", "Session ID is required")
	}

	order, err := s.orders.GetByStripeSessionID(ctx, stripeSessionID)
	if err == nil {
		option, _ := model.ClientDeliverySpeed(order.DeliverySpeed)
		return &dto.SessionOrderResponse{
			OrderStatusResponse: toStatusResponse(order),
			CustomerEmail:       order.CustomerEmail,
			AmountPaid:          order.AmountPaid,
			Currency:            order.Currency,
			DeliverySpeed:       order.DeliverySpeed,
			DeliveryOption:      option,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, upstream("查询订单", err)
	}

	return nil, s.pendingOrMissing(ctx, stripeSessionID)
}

func (s *OrderService) pendingOrMissing(ctx context.Context, stripeSessionID string) error {
	if s.attempts == nil {
		return ErrOrderNotReady
	}
	attempt, err := s.attempts.GetByStripeSessionID(ctx, stripeSessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return upstream("查询结账记录", err)
	}
	// 已完成但订单不在，说明 webhook 刚写完或还在写，继续等待
	if attempt.Status == model.CheckoutAttemptCompleted || attempt.IsPending(s.clock.now()) {
		return ErrOrderNotReady
	}
	return ErrOrderNotFound
}

func toStatusResponse(o *model.Order) dto.OrderStatusResponse {
	return dto.OrderStatusResponse{
		TrackingID:         o.TrackingID,
		OrderStatus:        o.OrderStatus,
		ExpectedDeliveryAt: o.ExpectedDeliveryAt,
		CreatedAt:          o.CreatedAt,
	}
}
