package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SecretHeader n8n 端校验用的共享密钥头
const SecretHeader = "X-N8N-SECRET"

// 事件名
const (
	EventOrderCreated         = "order_created"
	EventNewsletterSubscribed = "newsletter_subscribed"
)

// ==================== 事件 ====================

// OrderEvent 新订单通知
type OrderEvent struct {
	Event                   string          `json:"event"`
	OrderID                 int64           `json:"order_id"`
	TrackingID              string          `json:"tracking_id"`
	CustomerName            string          `json:"customer_name"`
	CustomerEmail           string          `json:"customer_email"`
	CustomerPhone           string          `json:"customer_phone"`
	AmountPaid              int64           `json:"amount_paid"`
	Currency                string          `json:"currency"`
	DeliverySpeed           string          `json:"delivery_speed"`
	ExpectedDeliveryAt      time.Time       `json:"expected_delivery_at"`
	PaidAt                  time.Time       `json:"paid_at"`
	IntakeFallback          bool            `json:"intake_fallback"`
	IntakePayload           json.RawMessage `json:"intake_payload,omitempty"`
	StripeCheckoutSessionID string          `json:"stripe_checkout_session_id"`
}

// NewsletterEvent 订阅通知
type NewsletterEvent struct {
	Event        string    `json:"event"`
	Email        string    `json:"email"`
	Source       string    `json:"source"`
	SessionID    string    `json:"session_id"`
	PagePath     string    `json:"page_path"`
	UserAgent    string    `json:"user_agent"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// ==================== Forwarder ====================

// Config 转发配置，URL 为空时对应事件不转发
type Config struct {
	OrderWebhookURL      string
	NewsletterWebhookURL string
	Secret               string
	Timeout              time.Duration // 单次请求超时，默认 10s
	RetryCount           int           // 默认 2
	// OrderBudget 订单转发含重试的总时长，默认 5s
	// 转发在 webhook 请求内同步执行，需远小于 Stripe 的投递超时
	OrderBudget time.Duration
}

// DefaultOrderBudget 订单转发总时长上限
const DefaultOrderBudget = 5 * time.Second

// Forwarder 把事件 POST 到 n8n
type Forwarder struct {
	client *resty.Client
	cfg    Config
	logger *zap.Logger
}

// NewForwarder 创建转发器
func NewForwarder(cfg Config, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.OrderBudget <= 0 {
		cfg.OrderBudget = DefaultOrderBudget
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	} else if cfg.RetryCount == 0 {
		cfg.RetryCount = 2
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "SongGift-Backend/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// 网络错误或 5xx 重试
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.Secret != "" {
		client.SetHeader(SecretHeader, cfg.Secret)
	}

	return &Forwarder{client: client, cfg: cfg, logger: logger}
}

// ForwardOrder 转发新订单
func (f *Forwarder) ForwardOrder(ctx context.Context, ev OrderEvent) error {
	if ev.Event == "" {
		ev.Event = EventOrderCreated
	}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.OrderBudget)
	defer cancel()
	return f.post(ctx, f.cfg.OrderWebhookURL, ev.Event, ev)
}

// ForwardNewsletter 转发订阅
func (f *Forwarder) ForwardNewsletter(ctx context.Context, ev NewsletterEvent) error {
	if ev.Event == "" {
		ev.Event = EventNewsletterSubscribed
	}
	return f.post(ctx, f.cfg.NewsletterWebhookURL, ev.Event, ev)
}

func (f *Forwarder) post(ctx context.Context, url, event string, body interface{}) error {
	if url == "" {
		f.logger.Warn("[Automation] webhook URL 未配置，跳过转发", zap.String("event", event))
		return nil
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(url)
	if err != nil {
		return fmt.Errorf("转发 %s 失败: %w", event, err)
	}
	if resp.IsError() {
		return fmt.Errorf("转发 %s 失败: status %d: %s", event, resp.StatusCode(), truncate(resp.String(), 256))
	}

	f.logger.Info("[Automation] 事件已转发", zap.String("event", event), zap.Int("status", resp.StatusCode()))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
