package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		DatabaseURL: "postgres://localhost/yega",
		JWT:         JWTConfig{Secret: "s", RefreshSecret: "r"},
		Orders:      OrdersConfig{ShippingCost: "5.00"},
		RateLimit:   RateLimitConfig{Max: 20, Window: 1},
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: defaultAddr, JWT: JWTConfig{RefreshSecret: "explicit"}}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "explicit", cfg.JWT.RefreshSecret)
	assert.Equal(t, "whsec_env", cfg.Stripe.WebhookSecret)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestApplyPlatformDefaults_ExplicitAddrWins(t *testing.T) {
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: "127.0.0.1:7000"}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no database", func(c *Config) { c.DatabaseURL = "" }, "database URL is required"},
		{"no refresh secret", func(c *Config) { c.JWT.RefreshSecret = "" }, "JWT secrets are required"},
		{"bad shipping", func(c *Config) { c.Orders.ShippingCost = "five" }, "parse shipping cost"},
		{"negative shipping", func(c *Config) { c.Orders.ShippingCost = "-1" }, "must not be negative"},
		{"no rate limit", func(c *Config) { c.RateLimit.Max = 0 }, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestShippingCost(t *testing.T) {
	d, err := OrdersConfig{ShippingCost: "7.5"}.shippingCost()
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("7.50")))
}
