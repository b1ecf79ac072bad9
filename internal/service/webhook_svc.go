package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/intake"
	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"
	"songgift_backend/pkg/automation"
	"songgift_backend/pkg/payment"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 外部服务依赖 ====================

// EventVerifier 校验 webhook 签名
type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (*payment.Event, error)
}

// OrderForwarder 新订单转发到自动化流程
type OrderForwarder interface {
	ForwardOrder(ctx context.Context, ev automation.OrderEvent) error
}

// 追踪码撞车时的最大重试次数
const maxTrackingAttempts = 3

// ==================== 服务实现 ====================

// WebhookService 处理 Stripe webhook，每个 Stripe 会话最多写入一个订单
type WebhookService struct {
	verifier  EventVerifier
	orders    repository.OrderRepository
	sessions  *SessionService
	attempts  repository.CheckoutAttemptRepository
	forwarder OrderForwarder
	tracking  *TrackingGenerator
	clock     Clock
	logger    *zap.Logger
}

// WebhookConfig 服务配置
type WebhookConfig struct {
	Tracking *TrackingGenerator
	Clock    Clock
	Logger   *zap.Logger
}

// NewWebhookService 创建服务
func NewWebhookService(
	verifier EventVerifier,
	orders repository.OrderRepository,
	sessions *SessionService,
	attempts repository.CheckoutAttemptRepository,
	forwarder OrderForwarder,
	cfg WebhookConfig,
) *WebhookService {
	if cfg.Tracking == nil {
		cfg.Tracking = NewTrackingGenerator(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &WebhookService{
		verifier:  verifier,
		orders:    orders,
		sessions:  sessions,
		attempts:  attempts,
		forwarder: forwarder,
		tracking:  cfg.Tracking,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// HandleEvent 验签通过之前不访问数据库
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, sigHeader string) (*dto.WebhookResponse, error) {
	ev, err := s.verifier.VerifyEvent(payload, sigHeader)
	if err != nil {
		s.logger.Warn("[Webhook] 签名校验失败", zap.Error(err))
		return nil, err
	}

	if ev.Type != payment.EventCheckoutSessionCompleted {
		s.logger.Info("[Webhook] 忽略事件", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
		return &dto.WebhookResponse{Received: true}, nil
	}

	cs, err := payment.DecodeCompletedSession(ev.Data)
	if err != nil {
		return nil, newValidationError("data.object", "Invalid checkout session payload")
	}

	s.logger.Info("[Webhook] 处理 checkout.session.completed", zap.String("stripe_session_id", cs.ID))
	return s.handleCompleted(ctx, cs)
}

func (s *WebhookService) handleCompleted(ctx context.Context, cs *payment.CompletedSession) (*dto.WebhookResponse, error) {
	sessionID := strings.TrimSpace(cs.Metadata["session_id"])

	// 1. 幂等检查，重复投递时 intake 副本已删除，不必再解析
	if cs.ID != "" {
		exists, err := s.orders.ExistsByStripeSessionID(ctx, cs.ID)
		if err != nil {
			return nil, upstream("检查订单是否存在", err)
		}
		if exists {
			s.logger.Info("[Webhook] 订单已存在", zap.String("stripe_session_id", cs.ID))
			return &dto.WebhookResponse{Received: true, Existing: true}, nil
		}
	}

	// 2. 取 intake，取不到就合成最小记录，不阻塞订单
	raw, fallback := s.resolvePayload(ctx, sessionID, cs.ID)
	rec := intakeFromPayload(raw)

	// 3. 联系方式：Stripe 优先，intake 兜底
	email := firstNonEmpty(cs.CustomerEmail, cs.CustomerDetails.Email, rec.Email)
	name := firstNonEmpty(cs.CustomerDetails.Name, rec.FullName)
	phone := firstNonEmpty(cs.CustomerDetails.Phone, rec.CustomerPhoneE164, rec.PhoneNumber)

	if fallback {
		raw = fallbackPayload(email, name, phone, sessionID)
		rec = intakeFromPayload(raw)
	}

	// 4. 必填检查
	stored, speedErr := model.StoredDeliverySpeed(strings.TrimSpace(cs.Metadata["delivery_speed"]))
	if cs.ID == "" || email == "" || cs.AmountTotal <= 0 || speedErr != nil {
		s.logger.Error("[Webhook] 会话缺少必要数据",
			zap.String("stripe_session_id", cs.ID),
			zap.Bool("has_email", email != ""),
			zap.Int64("amount_total", cs.AmountTotal),
			zap.String("delivery_speed", cs.Metadata["delivery_speed"]),
		)
		return nil, newValidationError("session", "Missing required session data")
	}

	// 5. 写入订单
	now := s.clock.now().UTC()
	expected, err := ExpectedDelivery(now, stored)
	if err != nil {
		return nil, newValidationError("delivery_speed", "Invalid delivery speed")
	}
	currency := strings.ToLower(cs.Currency)
	if currency == "" {
		currency = Currency
	}

	order := &model.Order{
		PaidAt:                  now,
		CustomerName:            name,
		CustomerEmail:           email,
		CustomerPhone:           phone,
		AmountPaid:              cs.AmountTotal,
		Currency:                currency,
		DeliverySpeed:           stored,
		ExpectedDeliveryAt:      expected,
		OrderStatus:             model.OrderStatusPaid,
		IntakePayload:           datatypes.JSON(raw),
		IntakeFallback:          fallback,
		RecipientName:           rec.RecipientName,
		RecipientRelationship:   rec.RecipientRelationship,
		SongPerspective:         rec.SongPerspective,
		PrimaryLanguage:         rec.PrimaryLanguage,
		MusicStyle:              datatypes.JSONSlice[string](rec.MusicStyle),
		VoicePreference:         rec.VoicePreference,
		FaithExpressionLevel:    rec.FaithExpressionLevel,
		CoreMessage:             rec.CoreMessage,
		StripeCheckoutSessionID: cs.ID,
		StripePaymentIntentID:   cs.PaymentIntentID(),
	}

	existing, err := s.insertOrder(ctx, order)
	if err != nil {
		s.logger.Error("[Webhook] 订单写入失败", zap.String("stripe_session_id", cs.ID), zap.Error(err))
		return nil, err
	}
	if existing {
		return &dto.WebhookResponse{Received: true, Existing: true}, nil
	}

	s.logger.Info("[Webhook] 订单已创建",
		zap.Int64("order_id", order.ID),
		zap.String("tracking_id", order.TrackingID),
		zap.String("delivery_speed", order.DeliverySpeed),
		zap.Bool("intake_fallback", fallback),
	)

	// 6. 以下失败都不影响响应
	s.afterInsert(ctx, order, sessionID, fallback)

	return &dto.WebhookResponse{
		Received:   true,
		OrderID:    order.ID,
		TrackingID: order.TrackingID,
	}, nil
}

// resolvePayload 返回 intake 原文；第二个返回值表示需要合成
func (s *WebhookService) resolvePayload(ctx context.Context, sessionID, stripeSessionID string) (json.RawMessage, bool) {
	if sessionID == "" {
		s.logger.Warn("[Webhook] metadata 缺少 session_id，使用合成 intake", zap.String("stripe_session_id", stripeSessionID))
		return nil, true
	}

	stored, err := s.sessions.Retrieve(ctx, sessionID)
	if err != nil {
		s.logger.Warn("[Webhook] 读取 intake 副本失败，使用合成 intake",
			zap.String("session_id", sessionID),
			zap.String("stripe_session_id", stripeSessionID),
			zap.Error(err),
		)
		return nil, true
	}
	return stored.IntakeData, false
}

// insertOrder 唯一键冲突时区分是同一会话重复投递还是追踪码撞车
func (s *WebhookService) insertOrder(ctx context.Context, order *model.Order) (existing bool, err error) {
	for i := 0; i < maxTrackingAttempts; i++ {
		order.TrackingID = s.tracking.Generate()

		err = s.orders.Create(ctx, order)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, upstream("写入订单", err)
		}

		dup, checkErr := s.orders.ExistsByStripeSessionID(ctx, order.StripeCheckoutSessionID)
		if checkErr != nil {
			return false, upstream("写入订单", checkErr)
		}
		if dup {
			s.logger.Info("[Webhook] 并发投递，订单已由另一请求写入", zap.String("stripe_session_id", order.StripeCheckoutSessionID))
			return true, nil
		}
		s.logger.Warn("[Webhook] 追踪码冲突，重新生成", zap.String("tracking_id", order.TrackingID))
		order.ID = 0
	}
	return false, upstream("写入订单", err)
}

func (s *WebhookService) afterInsert(ctx context.Context, order *model.Order, sessionID string, fallback bool) {
	if !fallback && sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("[Webhook] 删除 intake 副本失败", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	if s.attempts != nil {
		if err := s.attempts.MarkCompleted(ctx, order.StripeCheckoutSessionID, order.PaidAt); err != nil {
			s.logger.Warn("[Webhook] 更新结账尝试失败", zap.String("stripe_session_id", order.StripeCheckoutSessionID), zap.Error(err))
		}
	}

	if s.forwarder == nil {
		return
	}
	err := s.forwarder.ForwardOrder(ctx, automation.OrderEvent{
		Event:                   automation.EventOrderCreated,
		OrderID:                 order.ID,
		TrackingID:              order.TrackingID,
		CustomerName:            order.CustomerName,
		CustomerEmail:           order.CustomerEmail,
		CustomerPhone:           order.CustomerPhone,
		AmountPaid:              order.AmountPaid,
		Currency:                order.Currency,
		DeliverySpeed:           order.DeliverySpeed,
		ExpectedDeliveryAt:      order.ExpectedDeliveryAt,
		PaidAt:                  order.PaidAt,
		IntakeFallback:          order.IntakeFallback,
		IntakePayload:           json.RawMessage(order.IntakePayload),
		StripeCheckoutSessionID: order.StripeCheckoutSessionID,
	})
	if err != nil {
		s.logger.Error("[Webhook] 转发订单失败", zap.String("tracking_id", order.TrackingID), zap.Error(err))
	}
}

// ==================== helpers ====================

func fallbackPayload(email, name, phone, sessionID string) json.RawMessage {
	b, _ := json.Marshal(map[string]interface{}{
		"email":       email,
		"fullName":    name,
		"phoneNumber": phone,
		"sessionId":   sessionID,
		"fallback":    true,
	})
	return b
}

// intakeFromPayload 宽松解析，失败时返回默认记录
func intakeFromPayload(raw json.RawMessage) intake.Record {
	rec, err := intake.Decode(raw)
	if err != nil {
		return intake.Defaults()
	}
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
