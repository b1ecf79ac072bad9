package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/intake"
	"songgift_backend/internal/model"
)

// 支付成功页的轮询参数
const (
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 15
)

var (
	// ErrOrderPending 轮询次数用完订单仍未生成
	ErrOrderPending = errors.New("order is still being processed")
	// ErrMirrorFailed intake 副本上传失败，不能继续结账
	ErrMirrorFailed = errors.New("failed to save intake data")
)

// ErrIntakeIncomplete 表单未完成，需要跳回 Step
type ErrIntakeIncomplete struct {
	Step int
}

func (e *ErrIntakeIncomplete) Error() string {
	return fmt.Sprintf("intake incomplete: continue at step %d", e.Step)
}

// APIError 非 2xx 响应
type APIError struct {
	Status int
	Body   dto.ErrorResponse
}

func (e *APIError) Error() string {
	msg := e.Body.Error
	if e.Body.Message != "" {
		msg += ": " + e.Body.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, msg)
}

// IsNotReady 订单还在处理中
func IsNotReady(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Body.Code == dto.CodeOrderNotReady
}

// ==================== Client ====================

// Client 店铺公开 API 客户端
type Client struct {
	http         *resty.Client
	pollInterval time.Duration
	pollAttempts int
	logger       *zap.Logger
}

// Option 客户端选项
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if attempts > 0 {
			c.pollAttempts = attempts
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New baseURL 如 https://songgift.app
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(15*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post 非 2xx 统一转成 *APIError
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var apiErr dto.ErrorResponse
	req := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: apiErr}
	}
	return nil
}

// StoreSession 上传 intake 副本
func (c *Client) StoreSession(ctx context.Context, sessionID string, intakeData json.RawMessage) error {
	return c.post(ctx, "/api/session-data", dto.StoreSessionRequest{SessionID: sessionID, IntakeData: intakeData}, nil)
}

// CreateCheckoutSession 创建 Stripe 会话
func (c *Client) CreateCheckoutSession(ctx context.Context, req dto.CreateCheckoutRequest) (*dto.CreateCheckoutResponse, error) {
	var out dto.CreateCheckoutResponse
	if err := c.post(ctx, "/api/stripe/create-checkout-session", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrackOrder 按追踪码查询
func (c *Client) TrackOrder(ctx context.Context, trackingID string) (*dto.OrderStatusResponse, error) {
	var out dto.OrderStatusResponse
	if err := c.post(ctx, "/api/orders/track", dto.TrackOrderRequest{TrackingID: trackingID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderBySession 按 Stripe 会话查询
func (c *Client) OrderBySession(ctx context.Context, stripeSessionID string) (*dto.SessionOrderResponse, error) {
	var out dto.SessionOrderResponse
	if err := c.post(ctx, "/api/orders/by-session", dto.OrderBySessionRequest{SessionID: stripeSessionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForOrder 轮询直到订单生成
// 只有 ORDER_NOT_READY 会继续等待，其他错误立即返回
func (c *Client) WaitForOrder(ctx context.Context, stripeSessionID string) (*dto.SessionOrderResponse, error) {
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		order, err := c.OrderBySession(ctx, stripeSessionID)
		if err == nil {
			return order, nil
		}
		if !IsNotReady(err) {
			return nil, err
		}

		c.logger.Debug("[Client] 订单处理中", zap.String("stripe_session_id", stripeSessionID), zap.Int("attempt", attempt))
		if attempt == c.pollAttempts {
			break
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, ErrOrderPending
}

// ==================== 结账流程 ====================

// Checkout 结账页：校验表单 → 上传副本 → 创建会话，返回支付页地址
// deliverySpeed 为空时按表单的 expressDelivery 决定
func (c *Client) Checkout(ctx context.Context, m *intake.Manager, deliverySpeed string) (*dto.CreateCheckoutResponse, error) {
	if ok, step := m.CheckoutGate(); !ok {
		return nil, &ErrIntakeIncomplete{Step: step}
	}
	if err := m.ValidateContact(); err != nil {
		return nil, err
	}

	rec := m.Record()
	if deliverySpeed == "" {
		deliverySpeed = model.DeliverySpeedStandard
		if rec.ExpressDelivery {
			deliverySpeed = model.DeliverySpeedRush
		}
	}

	raw, err := rec.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMirrorFailed, err)
	}
	// 副本没存上就不能去支付，否则 webhook 只能用兜底数据
	if err := c.StoreSession(ctx, m.SessionID(), raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMirrorFailed, err)
	}

	return c.CreateCheckoutSession(ctx, dto.CreateCheckoutRequest{
		SessionID:     m.SessionID(),
		Email:         strings.TrimSpace(rec.Email),
		DeliverySpeed: deliverySpeed,
	})
}
