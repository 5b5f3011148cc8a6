package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 40*time.Minute, cfg.SessionDuration)
	assert.Equal(t, 60, cfg.HorizonDays)
	assert.Equal(t, "stub", cfg.EmailProvider)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_DURATION", "50m")
	t.Setenv("AVAILABILITY_HORIZON_DAYS", "30")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 50*time.Minute, cfg.SessionDuration)
	assert.Equal(t, 30, cfg.HorizonDays)
	assert.Equal(t, "sendgrid", cfg.EmailProvider, "provider should be normalized to lower case")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("AVAILABILITY_HORIZON_DAYS", "lots")
	t.Setenv("SESSION_DURATION", "soon")
	t.Setenv("REDIS_TLS", "maybe")

	cfg := Load()

	assert.Equal(t, 60, cfg.HorizonDays)
	assert.Equal(t, 40*time.Minute, cfg.SessionDuration)
	assert.False(t, cfg.RedisTLS)
}
