package repository

import (
	"context"
	"time"

	"songgift_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionDataRepository intake 服务端副本仓库
type SessionDataRepository interface {
	Upsert(ctx context.Context, data *model.SessionData) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.SessionData, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionDataRepository struct {
	db *gorm.DB
}

// NewSessionDataRepository 创建仓库
func NewSessionDataRepository(db *gorm.DB) SessionDataRepository {
	return &sessionDataRepository{db: db}
}

// Upsert 按 session_id 插入或覆盖
func (r *sessionDataRepository) Upsert(ctx context.Context, data *model.SessionData) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"intake_payload", "customer_email", "expires_at", "updated_at"}),
	}).Create(data).Error
}

func (r *sessionDataRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.SessionData, error) {
	var data model.SessionData
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&data).Error
	if err != nil {
		return nil, err
	}
	return &data, nil
}

func (r *sessionDataRepository) DeleteBySessionID(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.SessionData{}).Error
}

// DeleteExpired 删除过期副本，返回删除行数
func (r *sessionDataRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.SessionData{})
	return result.RowsAffected, result.Error
}
