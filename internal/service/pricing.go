package service

import (
	"songgift_backend/internal/model"
	"songgift_backend/pkg/payment"
)

// ==================== 价格（分） ====================

const (
	BasePrice     int64 = 7900 // $79.00
	RushSurcharge int64 = 3900 // $39.00
	Currency            = "usd"
)

// Quote 一次结账的报价
type Quote struct {
	DeliverySpeed       string // 前端取值 standard | rush
	StoredDeliverySpeed string // 存储取值 standard | express
	LineItems           []payment.LineItem
	Total               int64
	Currency            string
}

// QuoteFor 按交付速度计算报价
func QuoteFor(deliverySpeed string) (*Quote, error) {
	stored, err := model.StoredDeliverySpeed(deliverySpeed)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		DeliverySpeed:       deliverySpeed,
		StoredDeliverySpeed: stored,
		Currency:            Currency,
		LineItems: []payment.LineItem{{
			Name:        "Custom Song Gift",
			Description: "A personalized song written and produced for your recipient",
			UnitAmount:  BasePrice,
			Quantity:    1,
		}},
		Total: BasePrice,
	}
	if stored == model.DeliveryExpress {
		q.LineItems = append(q.LineItems, payment.LineItem{
			Name:        "Rush Delivery",
			Description: "Delivered within 24 hours",
			UnitAmount:  RushSurcharge,
			Quantity:    1,
		})
		q.Total += RushSurcharge
	}
	return q, nil
}
