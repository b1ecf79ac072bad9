package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/intake"
	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"
	"songgift_backend/pkg/payment"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ==================== 外部服务依赖 ====================

// CheckoutGateway 支付网关
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
}

// Stripe Checkout Session 默认有效期
const defaultCheckoutExpiry = 24 * time.Hour

// ==================== 服务实现 ====================

// CheckoutService 创建 Stripe Checkout Session
type CheckoutService struct {
	gateway   CheckoutGateway
	sessions  *SessionService
	attempts  repository.CheckoutAttemptRepository
	validate  *validator.Validate
	publicURL string
	clock     Clock
	logger    *zap.Logger
}

// CheckoutConfig 服务配置
type CheckoutConfig struct {
	PublicURL string // 为空时使用请求 Origin
	Clock     Clock
	Logger    *zap.Logger
}

// NewCheckoutService 创建服务
func NewCheckoutService(
	gateway CheckoutGateway,
	sessions *SessionService,
	attempts repository.CheckoutAttemptRepository,
	cfg CheckoutConfig,
) *CheckoutService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		gateway:   gateway,
		sessions:  sessions,
		attempts:  attempts,
		validate:  validator.New(),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		clock:     cfg.Clock,
		logger:    logger,
	}
}

// CreateCheckoutSession 校验 → 读取 intake 副本 → 创建 Stripe 会话
// origin 为请求来源，PublicURL 未配置时用于拼接回跳地址
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, req *dto.CreateCheckoutRequest, origin string) (*dto.CreateCheckoutResponse, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	// intake 副本必须存在、六步完整且已点击完成
	stored, err := s.sessions.Retrieve(ctx, req.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, &ValidationError{Field: "sessionId", Message: "Intake data not found for this session", Step: 1}
	}
	if err != nil {
		return nil, err
	}
	rec, err := intake.Decode(stored.IntakeData)
	if err != nil {
		return nil, &ValidationError{Field: "intakeData", Message: "Intake data is unreadable", Step: 1}
	}
	if !rec.IsComplete() || !rec.IsCompleted() {
		step := rec.FirstIncompleteStep()
		return nil, &ValidationError{Field: "intakeData", Message: "Please complete all intake steps before checkout", Step: step}
	}

	quote, err := QuoteFor(req.DeliverySpeed)
	if err != nil {
		return nil, newValidationError("delivery_speed", "Invalid delivery speed")
	}

	base := s.publicURL
	if base == "" {
		base = strings.TrimRight(origin, "/")
	}
	if base == "" {
		return nil, newValidationError("origin", "Unable to determine return URL")
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		CustomerEmail: req.Email,
		Currency:      quote.Currency,
		LineItems:     quote.LineItems,
		// 只放会话引用，完整 intake 超出 metadata 限制
		Metadata: map[string]string{
			"session_id":     req.SessionID,
			"delivery_speed": quote.DeliverySpeed,
		},
		SuccessURL: base + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  base + "/checkout?canceled=1",
	})
	if err != nil {
		s.logger.Error("[CheckoutService] 创建 Stripe 会话失败", zap.String("session_id", req.SessionID), zap.Error(err))
		return nil, upstream("创建 Stripe 会话", err)
	}

	// 没有结账记录时按会话查单无法区分处理中与不存在，宁可让客户端重试
	if err := s.recordAttempt(ctx, req, quote, sess); err != nil {
		s.logger.Error("[CheckoutService] 记录结账尝试失败", zap.String("stripe_session_id", sess.ID), zap.Error(err))
		return nil, upstream("记录结账尝试", err)
	}

	s.logger.Info("[CheckoutService] Stripe 会话已创建",
		zap.String("session_id", req.SessionID),
		zap.String("stripe_session_id", sess.ID),
		zap.Int64("amount_total", quote.Total),
		zap.String("delivery_speed", quote.DeliverySpeed),
	)

	amount := sess.AmountTotal
	if amount == 0 {
		amount = quote.Total
	}
	currency := sess.Currency
	if currency == "" {
		currency = quote.Currency
	}
	return &dto.CreateCheckoutResponse{
		URL:         sess.URL,
		SessionID:   sess.ID,
		AmountTotal: amount,
		Currency:    currency,
	}, nil
}

func (s *CheckoutService) validateRequest(req *dto.CreateCheckoutRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newValidationError("", err.Error())
	}
	fe := verrs[0]
	switch fe.Field() {
	case "SessionID":
		return newValidationError("sessionId", "Session ID is required")
	case "Email":
		if fe.Tag() == "required" {
			return newValidationError("email", "Email is required")
		}
		return newValidationError("email", "Please enter a valid email address")
	case "DeliverySpeed":
		if fe.Tag() == "required" {
			return newValidationError("delivery_speed", "Delivery speed is required")
		}
		return newValidationError("delivery_speed", "Invalid delivery speed")
	default:
		return newValidationError(fe.Field(), fe.Error())
	}
}

// recordAttempt 保存本次创建的 Stripe 会话
func (s *CheckoutService) recordAttempt(ctx context.Context, req *dto.CreateCheckoutRequest, quote *Quote, sess *payment.CheckoutSession) error {
	if s.attempts == nil {
		return nil
	}
	expires := sess.ExpiresAt
	if expires.IsZero() {
		expires = s.clock.now().Add(defaultCheckoutExpiry)
	}
	attempt := &model.CheckoutAttempt{
		StripeCheckoutSessionID: sess.ID,
		SessionID:               req.SessionID,
		CustomerEmail:           req.Email,
		DeliverySpeed:           quote.StoredDeliverySpeed,
		AmountTotal:             quote.Total,
		Currency:                quote.Currency,
		Status:                  model.CheckoutAttemptOpen,
		ExpiresAt:               expires,
	}
	return s.attempts.Create(ctx, attempt)
}
