package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "0 */30 * * * *", cfg.Cleanup.Cron)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("PUBLIC_BASE_URL", "https://songgift.app/")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "whsec_test", cfg.Stripe.WebhookSecret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "https://songgift.app", cfg.App.PublicURL)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("N8N_WEBHOOK_SECRET=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("N8N_WEBHOOK_SECRET") })

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\nratelimit:\n  rps: 1.5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 1.5, cfg.RateLimit.RPS)
	assert.Equal(t, "from-dotenv", cfg.Automation.Secret)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Driver: "postgres", DSN: "postgres://x"},
		Stripe:   StripeConfig{SecretKey: "sk", WebhookSecret: "whsec"},
		Session:  SessionConfig{TTL: time.Hour},
	}
	assert.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.Stripe.WebhookSecret = ""
	assert.ErrorContains(t, noSecret.Validate(), "STRIPE_WEBHOOK_SECRET")

	badDriver := valid
	badDriver.Database.Driver = "mysql"
	assert.Error(t, badDriver.Validate())
}
