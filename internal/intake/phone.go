package intake

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Phone 标准化后的电话号码
type Phone struct {
	E164    string // +923001234567
	Display string // +92 300 1234567
	Country string // PK
}

// NormalizePhone 解析原始电话号码
// defaultRegion: 号码不带 + 时使用的国家码，如 "US"
func NormalizePhone(raw, defaultRegion string) (*Phone, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return nil, ErrInvalidPhone
	}

	return &Phone{
		E164:    phonenumbers.Format(num, phonenumbers.E164),
		Display: phonenumbers.Format(num, phonenumbers.INTERNATIONAL),
		Country: phonenumbers.GetRegionCodeForNumber(num),
	}, nil
}

// IsValidPhone 号码是否可解析且有效
func IsValidPhone(raw, defaultRegion string) bool {
	_, err := NormalizePhone(raw, defaultRegion)
	return err == nil
}
