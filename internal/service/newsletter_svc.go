package service

import (
	"context"
	"errors"
	"strings"

	"songgift_backend/internal/api/dto"
	"songgift_backend/internal/intake"
	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"
	"songgift_backend/pkg/automation"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 订阅结果提示
const (
	MsgSubscribed        = "Successfully subscribed to newsletter!"
	MsgAlreadySubscribed = "You're already subscribed! Thank you."
)

// NewsletterForwarder 订阅转发
type NewsletterForwarder interface {
	ForwardNewsletter(ctx context.Context, ev automation.NewsletterEvent) error
}

// NewsletterService 邮件订阅，重复订阅视为成功
type NewsletterService struct {
	repo      repository.NewsletterRepository
	forwarder NewsletterForwarder
	clock     Clock
	logger    *zap.Logger
}

func NewNewsletterService(repo repository.NewsletterRepository, forwarder NewsletterForwarder, clock Clock, logger *zap.Logger) *NewsletterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsletterService{repo: repo, forwarder: forwarder, clock: clock, logger: logger}
}

// Subscribe 返回给用户的提示信息
func (s *NewsletterService) Subscribe(ctx context.Context, req *dto.SubscribeRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return "", newValidationError("email", "Email address is required")
	}
	if !intake.EmailPattern.MatchString(email) {
		return "", newValidationError("email", "Please enter a valid email address")
	}

	pagePath := strings.TrimSpace(req.PagePath)
	if pagePath == "" {
		pagePath = "/"
	}
	sub := &model.NewsletterSubscriber{
		Email:     email,
		Source:    model.NewsletterSourceSite,
		SessionID: strings.TrimSpace(req.SessionID),
		PagePath:  pagePath,
		UserAgent: req.UserAgent,
		CreatedAt: s.clock.now().UTC(),
	}

	msg := MsgSubscribed
	if err := s.repo.Create(ctx, sub); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Error("[Newsletter] 保存订阅失败", zap.String("email", email), zap.Error(err))
			return "", upstream("保存订阅", err)
		}
		s.logger.Info("[Newsletter] 重复订阅", zap.String("email", email))
		msg = MsgAlreadySubscribed
	}

	// 重复订阅也转发，便于追踪来源
	s.forward(ctx, sub)
	return msg, nil
}

func (s *NewsletterService) forward(ctx context.Context, sub *model.NewsletterSubscriber) {
	if s.forwarder == nil {
		return
	}
	err := s.forwarder.ForwardNewsletter(ctx, automation.NewsletterEvent{
		Event:        automation.EventNewsletterSubscribed,
		Email:        sub.Email,
		Source:       sub.Source,
		SessionID:    sub.SessionID,
		PagePath:     sub.PagePath,
		UserAgent:    sub.UserAgent,
		SubscribedAt: sub.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("[Newsletter] 转发订阅失败", zap.String("email", sub.Email), zap.Error(err))
	}
}
