package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort   string
	AppBaseURL string

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	PhonePeMerchantID string
	PhonePeSaltKey    string
	PhonePeSaltIndex  string
	PhonePeAPIURL     string

	CashfreeAppID      string
	CashfreeSecretKey  string
	CashfreeAPIURL     string
	CashfreeAPIVersion string

	// Static "direct access" link used when every gateway fails. Empty disables it.
	PaymentFallbackURL string
	ProviderTimeout    time.Duration
	StatusCacheTTL     time.Duration

	WebhookAllowedCIDRs []string
	WebhookStrict       bool

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	AdminEmail    string
	AdminPassword string

	TelegramBotToken    string
	TelegramAdminChatID int64

	KafkaBrokers        []string
	KafkaPurchasesTopic string

	LokiURL             string
	MetricsPushURL      string
	MetricsPushInterval time.Duration

	CheckoutRateRPS   float64
	CheckoutRateBurst int

	ReconcileInterval time.Duration
	ReconcileMinAge   time.Duration
	PaymentExpiry     time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		HTTPPort:   getEnv("HTTP_PORT", "8080"),
		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),

		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "storefront"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		PhonePeMerchantID: getEnv("PHONEPE_MERCHANT_ID", ""),
		PhonePeSaltKey:    getEnv("PHONEPE_SALT_KEY", ""),
		PhonePeSaltIndex:  getEnv("PHONEPE_SALT_INDEX", "1"),
		PhonePeAPIURL:     strings.TrimRight(getEnv("PHONEPE_API_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox"), "/"),

		CashfreeAppID:      getEnv("CASHFREE_APP_ID", ""),
		CashfreeSecretKey:  getEnv("CASHFREE_SECRET_KEY", ""),
		CashfreeAPIURL:     strings.TrimRight(getEnv("CASHFREE_API_URL", "https://sandbox.cashfree.com/pg"), "/"),
		CashfreeAPIVersion: getEnv("CASHFREE_API_VERSION", "2022-09-01"),

		PaymentFallbackURL: getEnv("PAYMENT_FALLBACK_URL", ""),
		ProviderTimeout:    getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		StatusCacheTTL:     getEnvDuration("STATUS_CACHE_TTL", 5*time.Second),

		WebhookAllowedCIDRs: getEnvList("WEBHOOK_ALLOWED_CIDRS"),
		WebhookStrict:       getEnvBool("WEBHOOK_STRICT", false),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:  getEnvBool("COOKIE_SECURE", true),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChatID: getEnvInt64("TELEGRAM_ADMIN_CHAT_ID", 0),

		KafkaBrokers:        getEnvList("KAFKA_BROKERS"),
		KafkaPurchasesTopic: getEnv("KAFKA_PURCHASES_TOPIC", "purchase-events"),

		LokiURL:             getEnv("LOKI_URL", ""),
		MetricsPushURL:      getEnv("METRICS_PUSH_URL", ""),
		MetricsPushInterval: getEnvDuration("METRICS_PUSH_INTERVAL", 10*time.Second),

		CheckoutRateRPS:   getEnvFloat("CHECKOUT_RATE_RPS", 2),
		CheckoutRateBurst: int(getEnvInt64("CHECKOUT_RATE_BURST", 5)),

		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", time.Minute),
		ReconcileMinAge:   getEnvDuration("RECONCILE_MIN_AGE", 2*time.Minute),
		PaymentExpiry:     getEnvDuration("PAYMENT_EXPIRY", 24*time.Hour),
	}
}

// PhonePeEnabled reports whether PhonePe credentials are present.
func (c *Config) PhonePeEnabled() bool {
	return c.PhonePeMerchantID != "" && c.PhonePeSaltKey != ""
}

func (c *Config) CashfreeEnabled() bool {
	return c.CashfreeAppID != "" && c.CashfreeSecretKey != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
