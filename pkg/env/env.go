package env

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string
	TZ      string

	LogLevel           string
	CORSAllowedOrigins string

	RedisURL string

	MongoURI string
	DBName   string

	// Outbound voice webhook authentication
	VoiceWebhookSecret string

	// Operator API
	JWTSecret            string
	JWTIssuer            string
	TokenTTLMin          int
	OperatorPasswordHash string
	LoginRateLimitRPM    int

	// Generation providers
	AITimeoutMs     int
	PlannerMode     string // "scripted" or "llm"
	QuestionMatch   string // "exact" or "loose"
	MaxClarifyTries int

	OpenAIApiKey    string
	OpenAIModel     string
	OpenAIMaxTokens int

	AnthropicApiKey    string
	AnthropicModel     string
	AnthropicMaxTokens int

	// Lead brief delivery (WhatsApp business API relay)
	WhatsAppAPIURL      string
	WhatsAppAPIToken    string
	WhatsAppDestination string
	DeliveryTimeoutMs   int

	OTELEndpoint string
	OTELEnabled  bool
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Try to load the .env file but don't fail if it doesn't exist;
		// production runs on real environment variables.
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),
		TZ:      getEnv("TZ", "America/Sao_Paulo"),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		RedisURL: getEnv("REDIS_URL", ""),

		MongoURI: getEnv("MONGO_URI", ""),
		DBName:   getEnv("DB_NAME", "patglam"),

		VoiceWebhookSecret: getEnv("VOICE_WEBHOOK_SECRET", ""),

		JWTSecret:            mustGetEnv("JWT_SECRET"),
		JWTIssuer:            getEnv("JWT_ISSUER", "patglam-agent"),
		TokenTTLMin:          getEnvInt("TOKEN_TTL_MIN", 60),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		LoginRateLimitRPM:    getEnvInt("LOGIN_RATE_LIMIT_RPM", 10),

		AITimeoutMs:     getEnvInt("AI_TIMEOUT_MS", 3500),
		PlannerMode:     getEnv("PLANNER_MODE", "scripted"),
		QuestionMatch:   getEnv("QUESTION_MATCH", "loose"),
		MaxClarifyTries: getEnvInt("MAX_CLARIFY_TRIES", 3),

		OpenAIApiKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 1000),

		AnthropicApiKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		AnthropicMaxTokens: getEnvInt("ANTHROPIC_MAX_TOKENS", 1000),

		WhatsAppAPIURL:      getEnv("WHATSAPP_API_URL", ""),
		WhatsAppAPIToken:    getEnv("WHATSAPP_API_TOKEN", ""),
		WhatsAppDestination: getEnv("WHATSAPP_DESTINATION", ""),
		DeliveryTimeoutMs:   getEnvInt("DELIVERY_TIMEOUT_MS", 8000),

		OTELEndpoint: getEnv("OTEL_ENDPOINT", ""),
		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
	}

	if cfg.AITimeout() <= 0 {
		cfg.AITimeoutMs = 3500
	}
	if cfg.MaxClarifyTries <= 0 {
		cfg.MaxClarifyTries = 3
	}

	return cfg, nil
}

// AITimeout returns the generation call timeout as a duration
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutMs) * time.Millisecond
}

// DeliveryTimeout returns the delivery call timeout as a duration
func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustGetEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "FATAL: required environment variable %s is not set\n", key)
		os.Exit(1)
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
