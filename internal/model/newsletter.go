package model

import "time"

// NewsletterSourceSite 订阅来源
const NewsletterSourceSite = "songgift.app"

// NewsletterSubscriber 邮件订阅者，email 唯一
type NewsletterSubscriber struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	Source    string `gorm:"size:64;default:songgift.app"`
	SessionID string `gorm:"size:64"`
	PagePath  string `gorm:"size:512;default:/"`
	UserAgent string `gorm:"size:512"`
	CreatedAt time.Time
}

func (NewsletterSubscriber) TableName() string {
	return "newsletter_subscribers"
}
