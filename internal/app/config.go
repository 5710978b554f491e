package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (YEGA_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (YEGA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWT         JWTConfig
	Orders      OrdersConfig
	Stripe      StripeConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// JWTConfig configures access and refresh token signing.
type JWTConfig struct {
	Secret        string        `usage:"HMAC secret for access tokens (JWT_SECRET)"`
	RefreshSecret string        `usage:"HMAC secret for refresh tokens (JWT_REFRESH_SECRET)" flag:"jwt-refresh-secret"`
	AccessTTL     time.Duration `default:"15m" usage:"Access token lifetime" flag:"jwt-access-ttl"`
	RefreshTTL    time.Duration `default:"168h" usage:"Refresh token lifetime" flag:"jwt-refresh-ttl"`
}

// OrdersConfig configures order pricing.
type OrdersConfig struct {
	ShippingCost string `default:"5.00" usage:"Flat shipping cost added to every order" flag:"shipping-cost"`
}

// StripeConfig configures the payment provider.
type StripeConfig struct {
	SecretKey     string `usage:"Stripe secret key (STRIPE_SECRET_KEY)" flag:"stripe-secret-key"`
	WebhookSecret string `usage:"Stripe webhook signing secret (STRIPE_WEBHOOK_SECRET)" flag:"stripe-webhook-secret"`
	Currency      string `default:"mxn" usage:"ISO currency of payment intents"`
	BackendURL    string `usage:"Override the Stripe API URL, e.g. stripe-mock" flag:"stripe-backend-url"`
}

// KafkaConfig configures the order event relay. The relay is disabled when
// no brokers are set.
type KafkaConfig struct {
	Brokers   []string      `usage:"Kafka bootstrap brokers"`
	Interval  time.Duration `default:"5s" usage:"Outbox polling interval" flag:"kafka-interval"`
	BatchSize int           `default:"100" usage:"Max events per outbox poll" flag:"kafka-batch-size"`
}

// RateLimitConfig controls the per-client limiter on /auth routes.
type RateLimitConfig struct {
	Max    int           `default:"20" usage:"Max auth requests per window"`
	Window time.Duration `default:"15m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults and validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "YEGA",
		Files:     []string{"config.yaml", "/etc/yega/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the unprefixed variables used by hosting
// platforms and the original deployment onto empty settings.
func (c *Config) applyPlatformDefaults() {
	fallback := func(dst *string, env string) {
		if *dst != "" {
			return
		}
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.JWT.Secret, "JWT_SECRET")
	fallback(&c.JWT.RefreshSecret, "JWT_REFRESH_SECRET")
	fallback(&c.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	fallback(&c.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")

	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set YEGA_DATABASE_URL or DATABASE_URL")
	case c.JWT.Secret == "" || c.JWT.RefreshSecret == "":
		return errors.New("JWT secrets are required: set JWT_SECRET and JWT_REFRESH_SECRET")
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return errors.New("rate limit max and window must be positive")
	}
	cost, err := c.Orders.shippingCost()
	if err != nil {
		return err
	}
	if cost.IsNegative() {
		return errors.New("shipping cost must not be negative")
	}
	return nil
}

func (o OrdersConfig) shippingCost() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(o.ShippingCost)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse shipping cost %q", o.ShippingCost)
	}
	return d, nil
}
