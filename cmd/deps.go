package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"songgift_backend/internal/config"
	"songgift_backend/internal/controller"
	"songgift_backend/internal/middleware"
	"songgift_backend/internal/model"
	"songgift_backend/internal/repository"
	"songgift_backend/internal/router"
	"songgift_backend/internal/service"
	"songgift_backend/internal/task"
	"songgift_backend/pkg/automation"
	"songgift_backend/pkg/database"
	"songgift_backend/pkg/payment"
)

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers router.Controllers
	Limiter     *middleware.IPRateLimiter
	Tasks       *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Order      repository.OrderRepository
	Session    repository.SessionDataRepository
	Attempt    repository.CheckoutAttemptRepository
	Newsletter repository.NewsletterRepository
}

// Services 服务集合
type Services struct {
	Session    *service.SessionService
	Checkout   *service.CheckoutService
	Webhook    *service.WebhookService
	Order      *service.OrderService
	Newsletter *service.NewsletterService
}

// ==================== 初始化函数 ====================

// openDatabase 连接数据库
func openDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if !cfg.IsProduction() {
		level = gormlogger.Info
	}
	db, err := database.Open(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: level,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return db, nil
}

// migrate 建表
func migrate(db *gorm.DB) error {
	return database.Migrate(db, model.All()...)
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:      repository.NewOrderRepository(db),
		Session:    repository.NewSessionDataRepository(db),
		Attempt:    repository.NewCheckoutAttemptRepository(db),
		Newsletter: repository.NewNewsletterRepository(db),
	}
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, log *zap.Logger, db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := initRepositories(db)

	// -------- 外部服务 --------
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	forwarder := automation.NewForwarder(automation.Config{
		OrderWebhookURL:      cfg.Automation.OrderWebhookURL,
		NewsletterWebhookURL: cfg.Automation.NewsletterWebhookURL,
		Secret:               cfg.Automation.Secret,
	}, log.Named("automation"))

	// -------- 业务服务 --------
	var clock service.Clock // nil 使用系统时间
	services := &Services{}
	services.Session = service.NewSessionService(repos.Session, cfg.Session.TTL, clock, log.Named("session"))
	services.Checkout = service.NewCheckoutService(gateway, services.Session, repos.Attempt, service.CheckoutConfig{
		PublicURL: cfg.App.PublicURL,
		Clock:     clock,
		Logger:    log.Named("checkout"),
	})
	services.Webhook = service.NewWebhookService(gateway, repos.Order, services.Session, repos.Attempt, forwarder, service.WebhookConfig{
		Clock:  clock,
		Logger: log.Named("webhook"),
	})
	services.Order = service.NewOrderService(repos.Order, repos.Attempt, clock)
	services.Newsletter = service.NewNewsletterService(repos.Newsletter, forwarder, clock, log.Named("newsletter"))

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		Sessions: services.Session,
		Attempts: repos.Attempt,
		Limiter:  limiter,
		Logger:   log.Named("task"),
	}, &task.TaskManagerConfig{
		CleanupEnabled: true,
		CleanupSpec:    cfg.Cleanup.Cron,
	})

	return &Dependencies{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: initControllers(db, services),
		Limiter:     limiter,
		Tasks:       tasks,
	}
}

// initControllers 初始化所有控制器
func initControllers(db *gorm.DB, svc *Services) router.Controllers {
	return router.Controllers{
		Health:     controller.NewHealthController(db),
		Session:    controller.NewSessionController(svc.Session),
		Checkout:   controller.NewCheckoutController(svc.Checkout),
		Webhook:    controller.NewWebhookController(svc.Webhook),
		Order:      controller.NewOrderController(svc.Order),
		Newsletter: controller.NewNewsletterController(svc.Newsletter),
	}
}
