package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultSessionTTL intake 副本默认保留时间
const DefaultSessionTTL = 24 * time.Hour

// SessionService intake 服务端副本
type SessionService struct {
	repo   repository.SessionDataRepository
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger
}

// NewSessionService 创建服务
func NewSessionService(repo repository.SessionDataRepository, ttl time.Duration, clock Clock, logger *zap.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, ttl: ttl, clock: clock, logger: logger}
}

// Store 按 sessionId 覆盖保存
func (s *SessionService) Store(ctx context.Context, req *dto.StoreSessionRequest) error {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return newValidationError("sessionId", "Session ID is required")
	}
	if len(sessionID) > 64 {
		return newValidationError("sessionId", "Session ID is too long")
	}
	payload := bytes.TrimSpace(req.IntakeData)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return newValidationError("intakeData", "Intake data is required")
	}

	var probe struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return newValidationError("intakeData", "Intake data must be a JSON object")
	}

	now := s.clock.now()
	data := &model.SessionData{
		SessionID:     sessionID,
		IntakePayload: datatypes.JSON(payload),
		CustomerEmail: strings.TrimSpace(probe.Email),
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.repo.Upsert(ctx, data); err != nil {
		s.logger.Error("[SessionService] 保存 intake 副本失败", zap.String("session_id", sessionID), zap.Error(err))
		return upstream("保存 intake 副本", err)
	}

	s.logger.Info("[SessionService] intake 副本已保存", zap.String("session_id", sessionID), zap.Int("bytes", len(payload)))
	return nil
}

// Retrieve 读取副本，不存在或已过期返回 ErrSessionNotFound
func (s *SessionService) Retrieve(ctx context.Context, sessionID string) (*dto.SessionDataResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}

	data, err := s.repo.GetBySessionID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, upstream("读取 intake 副本", err)
	}
	if data.IsExpired(s.clock.now()) {
		return nil, ErrSessionNotFound
	}

	return &dto.SessionDataResponse{
		SessionID:  data.SessionID,
		IntakeData: json.RawMessage(data.IntakePayload),
	}, nil
}

// Delete 订单写入后删除副本
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteBySessionID(ctx, sessionID); err != nil {
		return upstream("删除 intake 副本", err)
	}
	return nil
}

// CleanupExpired 删除过期副本
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.now())
	if err != nil {
		return 0, upstream("清理过期 intake 副本", err)
	}
	return n, nil
}
