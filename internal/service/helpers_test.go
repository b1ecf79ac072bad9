package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"songgift_backend/internal/intake"
	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"
	"songgift_backend/pkg/automation"
	"songgift_backend/pkg/database"
	"songgift_backend/pkg/payment"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 年末，方便覆盖跨年
var testNow = time.Date(2026, 12, 31, 15, 0, 0, 0, time.UTC)

const testWebhookSecret = "whsec_service_test"

// ==================== 测试辅助 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.Options{Driver: "sqlite", DSN: ":memory:", LogLevel: logger.Silent})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := database.Migrate(db, model.All()...); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

// completeIntake 六步完整的 intake JSON
func completeIntake(t *testing.T, email string) json.RawMessage {
	t.Helper()
	rec := intake.Defaults()
	rec.RecipientRelationship = "mother"
	rec.RecipientName = "Maria"
	rec.SongPerspective = "from-me"
	rec.PrimaryLanguage = "english"
	rec.LanguageStyle = intake.LanguageStylePrimary
	rec.MusicStyle = []string{"acoustic", "gospel"}
	rec.EmotionalVibe = []string{"joyful"}
	rec.VoicePreference = "female"
	rec.RecipientQualities = "kind"
	rec.SharedMemories = "sunday pancakes"
	rec.FaithExpressionLevel = "subtle"
	rec.CoreMessage = "thank you for everything"
	rec.IntakeCompletedAt = testNow.Format(time.RFC3339)
	rec.FullName = "Ana Lopez"
	rec.Email = email
	rec.PhoneNumber = "+14155552671"
	rec.CustomerPhoneE164 = "+14155552671"
	raw, err := rec.Encode()
	require.NoError(t, err)
	return raw
}

// signedEvent 构造带签名的 Stripe 事件
func signedEvent(t *testing.T, eventType string, object interface{}) ([]byte, string) {
	t.Helper()
	obj, err := json.Marshal(object)
	require.NoError(t, err)
	payload := []byte(fmt.Sprintf(`{"id":"evt_%d","object":"event","api_version":"2025-03-31.basil","type":%q,"data":{"object":%s}}`,
		time.Now().UnixNano(), eventType, obj))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

// completedSession checkout.session.completed 的 data.object
func completedSession(stripeID, sessionID, speed string, amount int64) map[string]interface{} {
	return map[string]interface{}{
		"id":             stripeID,
		"object":         "checkout.session",
		"customer_email": "a@b.com",
		"amount_total":   amount,
		"currency":       "usd",
		"payment_intent": "pi_" + stripeID,
		"metadata": map[string]string{
			"session_id":     sessionID,
			"delivery_speed": speed,
		},
	}
}

// ==================== fakes ====================

type fakeGateway struct {
	mu    sync.Mutex
	calls []payment.CheckoutRequest
	err   error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	var total int64
	for _, item := range req.LineItems {
		total += item.UnitAmount * item.Quantity
	}
	id := fmt.Sprintf("cs_test_%d", len(f.calls))
	return &payment.CheckoutSession{
		ID:          id,
		URL:         "https://checkout.stripe.com/c/pay/" + id,
		AmountTotal: total,
		Currency:    req.Currency,
		ExpiresAt:   testNow.Add(24 * time.Hour),
	}, nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeForwarder struct {
	mu          sync.Mutex
	orders      []automation.OrderEvent
	newsletters []automation.NewsletterEvent
	err         error
}

func (f *fakeForwarder) ForwardOrder(ctx context.Context, ev automation.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, ev)
	return f.err
}

func (f *fakeForwarder) ForwardNewsletter(ctx context.Context, ev automation.NewsletterEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newsletters = append(f.newsletters, ev)
	return f.err
}

// countingOrderRepo 统计数据库访问次数
type countingOrderRepo struct {
	repository.OrderRepository
	calls int32
}

func (r *countingOrderRepo) hit() { atomic.AddInt32(&r.calls, 1) }

func (r *countingOrderRepo) Calls() int { return int(atomic.LoadInt32(&r.calls)) }

func (r *countingOrderRepo) Create(ctx context.Context, o *model.Order) error {
	r.hit()
	return r.OrderRepository.Create(ctx, o)
}

func (r *countingOrderRepo) GetByTrackingID(ctx context.Context, id string) (*model.Order, error) {
	r.hit()
	return r.OrderRepository.GetByTrackingID(ctx, id)
}

func (r *countingOrderRepo) GetByStripeSessionID(ctx context.Context, id string) (*model.Order, error) {
	r.hit()
	return r.OrderRepository.GetByStripeSessionID(ctx, id)
}

func (r *countingOrderRepo) ExistsByStripeSessionID(ctx context.Context, id string) (bool, error) {
	r.hit()
	return r.OrderRepository.ExistsByStripeSessionID(ctx, id)
}

// sequenceIntN 依次返回预设值
func sequenceIntN(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[i%len(values)] % n
		i++
		return v
	}
}
