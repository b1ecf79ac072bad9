package dto

// CreateCheckoutRequest 创建 Stripe Checkout Session
type CreateCheckoutRequest struct {
	SessionID     string `json:"sessionId" validate:"required,max=64"`
	Email         string `json:"email" validate:"required,email"`
	DeliverySpeed string `json:"delivery_speed" validate:"required,oneof=standard rush"`
}

// CreateCheckoutResponse 返回托管支付页地址
type CreateCheckoutResponse struct {
	URL         string `json:"url"`
	SessionID   string `json:"session_id"` // Stripe Checkout Session ID
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}
