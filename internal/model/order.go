package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 订单状态常量 ====================

// OrderStatusPaid 新订单的初始状态，后续状态由履约系统维护
const OrderStatusPaid = "Paid"

// ==================== Order 订单表 ====================

// Order 支付完成后由 webhook 写入，本系统不再修改
type Order struct {
	BaseModel

	TrackingID string    `gorm:"size:16;uniqueIndex;not null"`
	PaidAt     time.Time `gorm:"not null"`

	// 客户信息（Stripe 优先，缺失时取 intake）
	CustomerName  string `gorm:"size:255"`
	CustomerEmail string `gorm:"size:255;index;not null"`
	CustomerPhone string `gorm:"size:64"`

	// 金额（分为单位存储）
	AmountPaid int64  `gorm:"not null"`
	Currency   string `gorm:"size:10;default:usd"`

	// 交付
	DeliverySpeed      string    `gorm:"size:16;not null"` // standard | express
	ExpectedDeliveryAt time.Time `gorm:"not null"`
	OrderStatus        string    `gorm:"size:32;index;default:Paid"`

	// 完整 intake，审计用
	IntakePayload  datatypes.JSON
	IntakeFallback bool `gorm:"default:false"` // intake 缺失时合成的最小记录

	// 常用 intake 字段冗余，便于查询
	RecipientName         string `gorm:"size:255"`
	RecipientRelationship string `gorm:"size:64"`
	SongPerspective       string `gorm:"size:64"`
	PrimaryLanguage       string `gorm:"size:64"`
	MusicStyle            datatypes.JSONSlice[string]
	VoicePreference       string `gorm:"size:64"`
	FaithExpressionLevel  string `gorm:"size:64"`
	CoreMessage           string `gorm:"type:text"`

	// Stripe
	StripeCheckoutSessionID string `gorm:"size:255;uniqueIndex;not null"`
	StripePaymentIntentID   string `gorm:"size:255"`
}

func (Order) TableName() string {
	return "orders"
}

// GetAmountPaid 返回实付金额（元）
func (o *Order) GetAmountPaid() float64 {
	return float64(o.AmountPaid) / 100
}
