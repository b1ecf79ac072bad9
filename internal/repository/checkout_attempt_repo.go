package repository

import (
	"context"
	"time"

	"songgift_backend/internal/model"

	"gorm.io/gorm"
)

// CheckoutAttemptRepository 结账尝试仓库
type CheckoutAttemptRepository interface {
	Create(ctx context.Context, attempt *model.CheckoutAttempt) error
	GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*model.CheckoutAttempt, error)
	MarkCompleted(ctx context.Context, stripeSessionID string, at time.Time) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type checkoutAttemptRepository struct {
	db *gorm.DB
}

// NewCheckoutAttemptRepository 创建仓库
func NewCheckoutAttemptRepository(db *gorm.DB) CheckoutAttemptRepository {
	return &checkoutAttemptRepository{db: db}
}

func (r *checkoutAttemptRepository) Create(ctx context.Context, attempt *model.CheckoutAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *checkoutAttemptRepository) GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*model.CheckoutAttempt, error) {
	var attempt model.CheckoutAttempt
	err := r.db.WithContext(ctx).Where("stripe_checkout_session_id = ?", stripeSessionID).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *checkoutAttemptRepository) MarkCompleted(ctx context.Context, stripeSessionID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.CheckoutAttempt{}).
		Where("stripe_checkout_session_id = ?", stripeSessionID).
		Updates(map[string]interface{}{
			"status":       model.CheckoutAttemptCompleted,
			"completed_at": at,
		}).Error
}

// ExpireStale 把已过期的 open 记录标记为 expired
func (r *checkoutAttemptRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.CheckoutAttempt{}).
		Where("status = ? AND expires_at <= ?", model.CheckoutAttemptOpen, now).
		Update("status", model.CheckoutAttemptExpired)
	return result.RowsAffected, result.Error
}
