package dto

import "time"

// TrackOrderRequest 按追踪码查询
type TrackOrderRequest struct {
	TrackingID string `json:"tracking_id"`
}

// OrderBySessionRequest 按 Stripe Checkout Session ID 查询
type OrderBySessionRequest struct {
	SessionID string `json:"session_id"`
}

// OrderStatusResponse 订单状态
type OrderStatusResponse struct {
	TrackingID         string    `json:"tracking_id"`
	OrderStatus        string    `json:"order_status"`
	ExpectedDeliveryAt time.Time `json:"expected_delivery_at"`
	CreatedAt          time.Time `json:"created_at"`
}

// SessionOrderResponse 支付成功页使用，多带金额与联系方式
type SessionOrderResponse struct {
	OrderStatusResponse
	CustomerEmail  string `json:"customer_email"`
	AmountPaid     int64  `json:"amount_paid"`
	Currency       string `json:"currency"`
	DeliverySpeed  string `json:"delivery_speed"`  // standard | express
	DeliveryOption string `json:"delivery_option"` // standard | rush，结账页的叫法
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error               string `json:"error"`
	Message             string `json:"message,omitempty"`
	Code                string `json:"code,omitempty"`
	FirstIncompleteStep int    `json:"first_incomplete_step,omitempty"`
}

// 错误码
const (
	CodeOrderNotReady = "ORDER_NOT_READY"
	CodeOrderNotFound = "ORDER_NOT_FOUND"
)
