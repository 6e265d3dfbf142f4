package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
)

const serviceName = "catalog-payment-service"

// Config holds all environment variables for the service.
type Config struct {
	Port   string
	AppEnv string

	MongoURI string
	MongoDB  string
	RedisURL string
	CacheTTL time.Duration

	JWTSecret           string
	TrustGatewayHeaders bool
	StripeWebhookSecret string

	PaymentTopicARN      string
	PaymentCallbackQueue string
	ReconcileInterval    time.Duration
	ReconcileGrace       time.Duration
	ReconcileBatch       int
	ProductServiceURL    string
	OrderServiceURL      string
	CustomerServiceURL   string
	AllowedOrigins       string
	CloudWatchEnabled    bool
	CloudWatchLogGroup   string
	CloudWatchNamespace  string
	RateLimitPerSecond   float64
	RateLimitBurst       int
	ShutdownTimeout      time.Duration
}

// LoadConfig loads environment variables into Config and validates them.
// If AWS_USE_SECRETS=true it reads secrets through the given getter and falls back to env
// vars on failure. A nil getter skips the override.
func LoadConfig(ctx context.Context, secrets awspkg.SecretGetter, log *zap.Logger) (*Config, error) {
	// .env is optional; system env wins
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8090"),
		AppEnv:               getEnv("APP_ENV", "development"),
		MongoURI:             os.Getenv("MONGO_URI"),
		MongoDB:              getEnv("MONGO_DB", "catalog"),
		RedisURL:             os.Getenv("REDIS_URL"),
		CacheTTL:             getDuration("CACHE_TTL", 10*time.Minute),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		TrustGatewayHeaders:  os.Getenv("TRUST_GATEWAY_HEADERS") == "true",
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PaymentTopicARN:      os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		PaymentCallbackQueue: os.Getenv("PAYMENT_CALLBACK_QUEUE_URL"),
		ReconcileInterval:    getDuration("PAYMENT_RECONCILE_INTERVAL", time.Minute),
		ReconcileGrace:       getDuration("PAYMENT_RECONCILE_GRACE", 30*time.Second),
		ReconcileBatch:       getInt("PAYMENT_RECONCILE_BATCH", 100),
		ProductServiceURL:    os.Getenv("PRODUCT_SERVICE_URL"),
		OrderServiceURL:      os.Getenv("ORDER_SERVICE_URL"),
		CustomerServiceURL:   os.Getenv("USER_SERVICE_URL"),
		AllowedOrigins:       getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		CloudWatchEnabled:    os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup:   os.Getenv("CLOUDWATCH_LOG_GROUP"),
		CloudWatchNamespace:  getEnv("CLOUDWATCH_NAMESPACE", "B2BCommerce/Catalog"),
		RateLimitPerSecond:   getFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:       getInt("RATE_LIMIT_BURST", 40),
		ShutdownTimeout:      getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" && secrets != nil {
		overrideFromSecret(ctx, secrets, log, "catalog/JWT_SECRET", &cfg.JWTSecret)
		overrideFromSecret(ctx, secrets, log, "catalog/MONGO_URI", &cfg.MongoURI)
		overrideFromSecret(ctx, secrets, log, "catalog/STRIPE_WEBHOOK_SECRET", &cfg.StripeWebhookSecret)
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ReconcileBatch <= 0 {
		return nil, fmt.Errorf("PAYMENT_RECONCILE_BATCH must be positive")
	}

	return cfg, nil
}

func overrideFromSecret(ctx context.Context, secrets awspkg.SecretGetter, log *zap.Logger, name string, dst *string) {
	v, err := secrets.GetSecret(ctx, name)
	if err != nil {
		log.Warn("secret lookup failed, keeping env value", zap.String("secret", name), zap.Error(err))
		return
	}
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}
