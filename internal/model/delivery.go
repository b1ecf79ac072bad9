package model

import (
	"errors"
	"fmt"
)

// ==================== 交付速度 ====================

// 前端取值
const (
	DeliverySpeedStandard = "standard"
	DeliverySpeedRush     = "rush"
)

// 存储取值
const (
	DeliveryStandard = "standard"
	DeliveryExpress  = "express"
)

var ErrUnknownDeliverySpeed = errors.New("unknown delivery speed")

var (
	clientToStored = map[string]string{
		DeliverySpeedStandard: DeliveryStandard,
		DeliverySpeedRush:     DeliveryExpress,
	}
	storedToClient = map[string]string{
		DeliveryStandard: DeliverySpeedStandard,
		DeliveryExpress:  DeliverySpeedRush,
	}
	// 交付天数（自然日）
	deliveryDays = map[string]int{
		DeliveryStandard: 2,
		DeliveryExpress:  1,
	}
)

// StoredDeliverySpeed standard|rush → standard|express
func StoredDeliverySpeed(client string) (string, error) {
	if v, ok := clientToStored[client]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDeliverySpeed, client)
}

// ClientDeliverySpeed standard|express → standard|rush
func ClientDeliverySpeed(stored string) (string, error) {
	if v, ok := storedToClient[stored]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDeliverySpeed, stored)
}

// DeliveryDays 存储取值对应的交付天数
func DeliveryDays(stored string) (int, error) {
	if d, ok := deliveryDays[stored]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDeliverySpeed, stored)
}
