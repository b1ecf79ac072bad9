package repository

import (
	"context"
	"errors"

	"songgift_backend/internal/model"

	"gorm.io/gorm"
)

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单仓库接口（订单只增不改）
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByTrackingID(ctx context.Context, trackingID string) (*model.Order, error)
	GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*model.Order, error)
	ExistsByStripeSessionID(ctx context.Context, stripeSessionID string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// ==================== 实现 ====================

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByTrackingID(ctx context.Context, trackingID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("tracking_id = ?", trackingID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("stripe_checkout_session_id = ?", stripeSessionID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ExistsByStripeSessionID(ctx context.Context, stripeSessionID string) (bool, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Select("id").
		Where("stripe_checkout_session_id = ?", stripeSessionID).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&n).Error
	return n, err
}
