package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// EventCheckoutSessionCompleted 本系统处理的唯一事件类型
const EventCheckoutSessionCompleted = "checkout.session.completed"

var (
	ErrMissingSignature = errors.New("missing stripe signature")
	ErrInvalidSignature = errors.New("invalid stripe signature")
)

// ==================== 类型 ====================

// LineItem 结账明细（金额为分）
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// CheckoutRequest 创建 Checkout Session 的参数
type CheckoutRequest struct {
	CustomerEmail string
	Currency      string
	LineItems     []LineItem
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession Stripe 返回的会话
type CheckoutSession struct {
	ID          string
	URL         string
	AmountTotal int64
	Currency    string
	ExpiresAt   time.Time
}

// Event 验签后的事件
type Event struct {
	ID   string
	Type string
	Data json.RawMessage // data.object
}

// ==================== StripeGateway ====================

// StripeGateway Stripe Checkout + Webhook
type StripeGateway struct {
	client        *session.Client
	webhookSecret string
}

// GatewayOption 网关选项
type GatewayOption func(*gatewayOptions)

type gatewayOptions struct {
	baseURL    string
	maxRetries int64
}

// WithBaseURL 替换 API 地址（测试 / stripe-mock）
func WithBaseURL(u string) GatewayOption {
	return func(o *gatewayOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithMaxNetworkRetries 网络重试次数，默认 2
func WithMaxNetworkRetries(n int64) GatewayOption {
	return func(o *gatewayOptions) { o.maxRetries = n }
}

// NewStripeGateway 创建网关
func NewStripeGateway(secretKey, webhookSecret string, opts ...GatewayOption) *StripeGateway {
	o := &gatewayOptions{maxRetries: 2}
	for _, opt := range opts {
		opt(o)
	}

	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(o.maxRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if o.baseURL != "" {
		cfg.URL = stripe.String(o.baseURL)
	}

	return &StripeGateway{
		client: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Key: secretKey,
		},
		webhookSecret: webhookSecret,
	}
}

// CreateCheckoutSession 创建一次性支付的 Checkout Session
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := g.client.New(params)
	if err != nil {
		return nil, fmt.Errorf("创建 Stripe Checkout Session 失败: %w", err)
	}

	out := &CheckoutSession{
		ID:          s.ID,
		URL:         s.URL,
		AmountTotal: s.AmountTotal,
		Currency:    string(s.Currency),
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out, nil
}

// VerifyEvent 校验 Stripe-Signature 并解析事件
func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (*Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return nil, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Data != nil {
		out.Data = event.Data.Raw
	}
	return out, nil
}

// ==================== 事件数据 ====================

// CompletedSession checkout.session.completed 中用到的字段
type CompletedSession struct {
	ID              string            `json:"id"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	PaymentIntent   json.RawMessage   `json:"payment_intent"` // 字符串 ID 或展开的对象
	Metadata        map[string]string `json:"metadata"`
}

type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// DecodeCompletedSession 解析 data.object
func DecodeCompletedSession(raw json.RawMessage) (*CompletedSession, error) {
	var s CompletedSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("解析 checkout.session 失败: %w", err)
	}
	return &s, nil
}

// PaymentIntentID payment_intent 可能是字符串或对象
func (s *CompletedSession) PaymentIntentID() string {
	if len(s.PaymentIntent) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(s.PaymentIntent, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.PaymentIntent, &obj); err == nil {
		return obj.ID
	}
	return ""
}
