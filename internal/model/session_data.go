package model

import (
	"time"

	"gorm.io/datatypes"
)

// SessionData 跳转支付前的 intake 服务端副本
type SessionData struct {
	BaseModel
	SessionID     string         `gorm:"size:64;uniqueIndex;not null"`
	IntakePayload datatypes.JSON `gorm:"not null"`
	CustomerEmail string         `gorm:"size:255"`
	ExpiresAt     time.Time      `gorm:"index;not null"`
}

func (SessionData) TableName() string {
	return "session_data"
}

// IsExpired 是否过期
func (s *SessionData) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
