package service

import (
	"time"

	"songgift_backend/internal/model"
)

// ExpectedDelivery 预计交付时间：standard +2 天，express +1 天（自然日）
func ExpectedDelivery(from time.Time, storedSpeed string) (time.Time, error) {
	days, err := model.DeliveryDays(storedSpeed)
	if err != nil {
		return time.Time{}, err
	}
	return from.AddDate(0, 0, days), nil
}
