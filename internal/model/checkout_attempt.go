package model

import "time"

// ==================== 结账尝试状态 ====================

const (
	CheckoutAttemptOpen      = "open"
	CheckoutAttemptCompleted = "completed"
	CheckoutAttemptExpired   = "expired"
)

// CheckoutAttempt 本系统创建的每个 Stripe Checkout Session
type CheckoutAttempt struct {
	BaseModel
	StripeCheckoutSessionID string `gorm:"size:255;uniqueIndex;not null"`
	SessionID               string `gorm:"size:64;index;not null"`
	CustomerEmail           string `gorm:"size:255"`
	DeliverySpeed           string `gorm:"size:16"` // 存储取值
	AmountTotal             int64
	Currency                string    `gorm:"size:10"`
	Status                  string    `gorm:"size:16;index;default:open"`
	ExpiresAt               time.Time `gorm:"index"`
	CompletedAt             *time.Time
}

func (CheckoutAttempt) TableName() string {
	return "checkout_attempts"
}

// IsPending 支付仍可能完成
func (a *CheckoutAttempt) IsPending(now time.Time) bool {
	return a.Status == CheckoutAttemptOpen && now.Before(a.ExpiresAt)
}
