package repository

import (
	"context"

	"songgift_backend/internal/model"

	"gorm.io/gorm"
)

// NewsletterRepository 订阅者仓库
type NewsletterRepository interface {
	// Create 邮箱已存在时返回 gorm.ErrDuplicatedKey（需开启 TranslateError）
	Create(ctx context.Context, sub *model.NewsletterSubscriber) error
	GetByEmail(ctx context.Context, email string) (*model.NewsletterSubscriber, error)
}

type newsletterRepository struct {
	db *gorm.DB
}

func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepository{db: db}
}

func (r *newsletterRepository) Create(ctx context.Context, sub *model.NewsletterSubscriber) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *newsletterRepository) GetByEmail(ctx context.Context, email string) (*model.NewsletterSubscriber, error) {
	var sub model.NewsletterSubscriber
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
