package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	CORSAllowedOrigins []string
	AdminJWTSecret     string
	MetricsToken       string

	// Rate limiting
	RateLimitStore     string
	RateLimitTable     string
	LeadRateLimit      int
	LeadRateWindow     time.Duration
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration

	// Lead intake defaults
	LeadDefaultSource   string
	LeadDefaultPriority string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Stripe
	StripeSecretKey       string
	StripePriceFoundation string
	StripePriceGrowth     string
	StripeDryRun          bool
	CheckoutDefaultOrigin string

	// Telegram
	TelegramBotToken string
	TelegramChatID   string

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	ResendAPIKey      string
	EmailFrom         string
	EmailFromName     string
	NotificationEmail string

	// Voice
	ElevenLabsAPIKey  string
	ElevenLabsAgentID string
	DeepgramAPIKey    string

	// n8n
	N8NWebhookBaseURL string
	N8NWebhooks       map[string]string
	N8NAPIKey         string

	// Credential encryption
	EncryptionKey  string
	EncryptionSalt string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	n8nBase := strings.TrimRight(getEnv("N8N_WEBHOOK_BASE_URL", "https://ulloarory.app.n8n.cloud/webhook"), "/")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		MetricsToken:       getEnv("METRICS_TOKEN", ""),

		RateLimitStore:     strings.ToLower(strings.TrimSpace(getEnv("RATE_LIMIT_STORE", "memory"))),
		RateLimitTable:     getEnv("RATE_LIMIT_TABLE", "rate_limits"),
		LeadRateLimit:      getEnvAsInt("LEAD_RATE_LIMIT", 10),
		LeadRateWindow:     getEnvAsDuration("LEAD_RATE_WINDOW", time.Minute),
		CheckoutRateLimit:  getEnvAsInt("CHECKOUT_RATE_LIMIT", 5),
		CheckoutRateWindow: getEnvAsDuration("CHECKOUT_RATE_WINDOW", time.Minute),

		LeadDefaultSource:   getEnv("LEAD_DEFAULT_SOURCE", "lead_form"),
		LeadDefaultPriority: getEnv("LEAD_DEFAULT_PRIORITY", "medium"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripePriceFoundation: getEnv("STRIPE_PRICE_FOUNDATION", ""),
		StripePriceGrowth:     getEnv("STRIPE_PRICE_GROWTH", ""),
		StripeDryRun:          getEnvAsBool("STRIPE_DRY_RUN", false),
		CheckoutDefaultOrigin: getEnv("CHECKOUT_DEFAULT_ORIGIN", "https://www.royscompany.com"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		EmailFrom:         getEnv("EMAIL_FROM", "leads@royscompany.com"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Roy's Company"),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", "rory@royscompany.com"),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsAgentID: getEnv("ELEVENLABS_AGENT_ID", ""),
		DeepgramAPIKey:    getEnv("DEEPGRAM_API_KEY", ""),

		N8NWebhookBaseURL: n8nBase,
		N8NWebhooks: getEnvAsStringMap("N8N_WEBHOOKS", map[string]string{
			"call-lead":    n8nBase + "/call-lead",
			"message-lead": n8nBase + "/message-lead",
		}),
		N8NAPIKey: getEnv("N8N_API_KEY", ""),

		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		EncryptionSalt: getEnv("ENCRYPTION_SALT", "salt"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsStringMap decodes a JSON object such as {"call-lead":"https://..."}.
func getEnvAsStringMap(key string, defaultValue map[string]string) map[string]string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
		return defaultValue
	}
	return out
}
