package dto

// SubscribeRequest 邮件订阅
type SubscribeRequest struct {
	Email     string `json:"email"`
	PagePath  string `json:"page_path"`
	UserAgent string `json:"user_agent"`
	SessionID string `json:"session_id"`
}
