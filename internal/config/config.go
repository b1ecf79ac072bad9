package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 应用配置
type Config struct {
	Env        string           `mapstructure:"env"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	App        AppConfig        `mapstructure:"app"`
	Automation AutomationConfig `mapstructure:"automation"`
	Session    SessionConfig    `mapstructure:"session"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | sqlite
	DSN    string `mapstructure:"dsn"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type AppConfig struct {
	PublicURL string `mapstructure:"public_url"` // 为空时使用请求的 Origin
}

// AutomationConfig n8n 转发配置，URL 为空表示不转发
type AutomationConfig struct {
	OrderWebhookURL      string `mapstructure:"order_webhook_url"`
	NewsletterWebhookURL string `mapstructure:"newsletter_webhook_url"`
	Secret               string `mapstructure:"secret"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type CleanupConfig struct {
	Cron string `mapstructure:"cron"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings 配置 key → 环境变量
var envBindings = map[string]string{
	"env":                               "APP_ENV",
	"server.port":                       "PORT",
	"database.driver":                   "DATABASE_DRIVER",
	"database.dsn":                      "DATABASE_URL",
	"stripe.secret_key":                 "STRIPE_SECRET_KEY",
	"stripe.webhook_secret":             "STRIPE_WEBHOOK_SECRET",
	"app.public_url":                    "PUBLIC_BASE_URL",
	"automation.order_webhook_url":      "N8N_ORDER_WEBHOOK_URL",
	"automation.newsletter_webhook_url": "N8N_NEWSLETTER_WEBHOOK_URL",
	"automation.secret":                 "N8N_WEBHOOK_SECRET",
	"session.ttl":                       "SESSION_TTL",
	"cleanup.cron":                      "CLEANUP_CRON",
	"ratelimit.rps":                     "RATE_LIMIT_RPS",
	"ratelimit.burst":                   "RATE_LIMIT_BURST",
	"log.level":                         "LOG_LEVEL",
	"log.format":                        "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("cleanup.cron", "0 */30 * * * *")
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// ==================== 加载 ====================

// Load 读取配置：.env → 配置文件（可选）→ 环境变量
// path 为空时不读取配置文件
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.App.PublicURL = strings.TrimRight(cfg.App.PublicURL, "/")
	return cfg, nil
}

// Validate 服务启动前的必填检查
func (c *Config) Validate() error {
	if c.Stripe.WebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET 未配置")
	}
	if c.Stripe.SecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY 未配置")
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_URL 未配置")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl 必须大于 0")
	}
	return nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
