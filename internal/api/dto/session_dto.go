package dto

import "encoding/json"

// StoreSessionRequest 跳转支付前上传 intake 副本
type StoreSessionRequest struct {
	SessionID  string          `json:"sessionId"`
	IntakeData json.RawMessage `json:"intakeData"`
}

// SessionDataResponse intake 副本
type SessionDataResponse struct {
	SessionID  string          `json:"sessionId"`
	IntakeData json.RawMessage `json:"intakeData"`
}

// SuccessResponse 通用成功响应
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
