package dto

// WebhookResponse Stripe webhook 应答
type WebhookResponse struct {
	Received   bool   `json:"received"`
	Existing   bool   `json:"existing,omitempty"`
	OrderID    int64  `json:"orderId,omitempty"`
	TrackingID string `json:"trackingId,omitempty"`
}
