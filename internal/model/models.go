package model

// All 需要自动迁移的模型
func All() []interface{} {
	return []interface{}{
		&SessionData{},
		&CheckoutAttempt{},
		&Order{},
		&NewsletterSubscriber{},
	}
}
