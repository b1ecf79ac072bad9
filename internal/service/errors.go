package service

import (
	"errors"
	"fmt"

	"songgift_backend/pkg/payment"
)

// ==================== 错误分类 ====================
// 4xx: *ValidationError, ErrMissingSignature, ErrInvalidSignature
// 404: ErrSessionNotFound, ErrOrderNotFound, ErrOrderNotReady
// 5xx: ErrUpstream 包装的数据库 / 网关错误

var (
	ErrSessionNotFound = errors.New("session data not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotReady   = errors.New("order not ready")
	ErrUpstream        = errors.New("upstream dependency failed")

	ErrMissingSignature = payment.ErrMissingSignature
	ErrInvalidSignature = payment.ErrInvalidSignature
)

// ValidationError 调用方输入错误
type ValidationError struct {
	Field   string
	Message string
	Step    int // intake 未完成时需要跳回的步骤
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// upstream 包装下游错误，保留原始错误链
func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// IsValidationError 判断并取出 ValidationError
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
