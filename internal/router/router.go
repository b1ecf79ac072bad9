package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"songgift_backend/internal/controller"
	"songgift_backend/internal/middleware"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Health     *controller.HealthController
	Session    *controller.SessionController
	Checkout   *controller.CheckoutController
	Webhook    *controller.WebhookController
	Order      *controller.OrderController
	Newsletter *controller.NewsletterController
}

// Options 中间件配置
type Options struct {
	Logger  *zap.Logger
	Limiter *middleware.IPRateLimiter // nil 表示不限流
}

// SetupRouter 创建 gin 引擎并注册所有路由
func SetupRouter(ctl Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.AccessLog(opts.Logger), middleware.Recovery(opts.Logger))

	InitRoutes(r, ctl, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctl Controllers, opts Options) {
	// GET /health
	r.GET("/health", ctl.Health.Health)

	limited := middleware.RateLimit(opts.Limiter)

	api := r.Group("/api")
	{
		// intake 副本
		session := api.Group("/session-data")
		{
			// POST /api/session-data
			session.POST("", ctl.Session.Store)
			// GET /api/session-data/:session_id
			session.GET("/:session_id", ctl.Session.Retrieve)
		}

		// Stripe
		stripe := api.Group("/stripe")
		{
			// POST /api/stripe/create-checkout-session
			stripe.POST("/create-checkout-session", limited, ctl.Checkout.Create)
			// POST /api/stripe/webhook
			// Stripe 重试频率不可控，不限流
			stripe.POST("/webhook", ctl.Webhook.Handle)
		}

		// 订单查询
		orders := api.Group("/orders", limited)
		{
			// POST /api/orders/track
			orders.POST("/track", ctl.Order.Track)
			// POST /api/orders/by-session
			orders.POST("/by-session", ctl.Order.BySession)
		}

		// POST /api/newsletter/subscribe
		api.POST("/newsletter/subscribe", limited, ctl.Newsletter.Subscribe)
	}
}
