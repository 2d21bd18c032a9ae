package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Payment provider selection (fallback when no preference is persisted)
	PaymentProvider string // "stripe", "polar", "lemonsqueezy" or "solidgate"

	// Payment - Stripe
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string

	// Payment - Polar
	PolarAPIKey         string
	PolarWebhookSecret  string
	PolarSandboxMode    bool
	PolarOrganizationID string

	// Payment - LemonSqueezy
	LemonSqueezyAPIKey        string
	LemonSqueezyWebhookSecret string
	LemonSqueezyStoreID       string

	// Payment - Solidgate
	SolidgatePublicKey     string
	SolidgateSecretKey     string
	SolidgateWebhookSecret string

	// Webhook defenses
	WebhookTimestampWindow time.Duration
	PaymentRESTTimeout     time.Duration

	// Replay cache (optional shared store for multi-instance deployments)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "Launchkit"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // Required: base URL for checkout redirects
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "hello@example.com"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/launchkit.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Payment (provider selection and configuration)
		PaymentProvider:      envString("PAYMENT_PROVIDER", "stripe"), // Default fallback: stripe
		StripeSecretKey:      envString("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: envString("STRIPE_PUBLISHABLE_KEY", ""),
		StripeWebhookSecret:  envString("STRIPE_WEBHOOK_SECRET", ""),

		PolarAPIKey:         envString("POLAR_API_KEY", ""),
		PolarWebhookSecret:  envString("POLAR_WEBHOOK_SECRET", ""),
		PolarSandboxMode:    envBool("POLAR_SANDBOX_MODE", envString("APP_ENV", "development") == "development"),
		PolarOrganizationID: envString("POLAR_ORGANIZATION_ID", ""),

		LemonSqueezyAPIKey:        envString("LEMONSQUEEZY_API_KEY", ""),
		LemonSqueezyWebhookSecret: envString("LEMONSQUEEZY_WEBHOOK_SECRET", ""),
		LemonSqueezyStoreID:       envString("LEMONSQUEEZY_STORE_ID", ""),

		SolidgatePublicKey:     envString("SOLIDGATE_PUBLIC_KEY", ""),
		SolidgateSecretKey:     envString("SOLIDGATE_SECRET_KEY", ""),
		SolidgateWebhookSecret: envString("SOLIDGATE_WEBHOOK_SECRET", ""),

		// Webhook defenses
		WebhookTimestampWindow: envDuration("WEBHOOK_TIMESTAMP_WINDOW", 300*time.Second),
		PaymentRESTTimeout:     envDuration("PAYMENT_REST_TIMEOUT", 30*time.Second),

		// Replay cache
		RedisAddr:     envString("REDIS_ADDR", ""),
		RedisPassword: envString("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		// Email (RESEND_API_KEY optional in development)
		EmailFrom:    envString("EMAIL_FROM", "billing@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	return cfg
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		SupportEmail: c.SupportEmail,

		PaymentProvider:      c.PaymentProvider,
		StripePublishableKey: c.StripePublishableKey,
		SolidgatePublicKey:   c.SolidgatePublicKey,

		EmailFrom: c.EmailFrom,
	}
}
