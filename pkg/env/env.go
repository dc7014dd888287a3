package env

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	AppPort        string
	TZ             string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTTLMin   int
	RefreshTTLDays int

	// Static bearer token used by the desktop sender companion app
	SenderServiceToken string

	RedisURL string

	MongoURI string
	DBName   string

	AITimeoutMs int
	FeatureAI   bool

	// AI Provider API Keys
	OpenAIApiKey    string
	OpenAIModel     string
	OpenAIMaxTokens int

	AnthropicApiKey    string
	AnthropicModel     string
	AnthropicMaxTokens int

	// Resend (transactional email)
	ResendApiKey        string
	ResendFromEmail     string
	ResendWebhookSecret string

	// External Lead Gen database (PostgREST-style API)
	LeadGenBaseURL string
	LeadGenApiKey  string

	// Human-behavior sending limits
	SendDailyLimit       int
	SendMinRecontactDays int
	SendWindowStart      string
	SendWindowEnd        string
	SendBlockedWeekdays  string
	SendBatchLimit       int
	SendClaimTTLMin      int
	RecontactFailOpen    bool

	EmailDispatchEnabled     bool
	EmailDispatchIntervalSec int

	APIRateLimitRPM int

	LogLevel           string
	CORSAllowedOrigins string
	AllowSelfRegister  bool

	OTELEndpoint string
	OTELEnabled  bool
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Try to load .env file, but don't fail if it doesn't exist
		// This allows the app to work with environment variables only (e.g., in production)
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
			// File doesn't exist - continue without it, use environment variables
		}
	}

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		AppPort:        getEnv("APP_PORT", "8080"),
		TZ:             getEnv("TZ", "America/Sao_Paulo"),
		JWTSecret:      mustGetEnv("JWT_SECRET"),
		JWTIssuer:      getEnv("JWT_ISSUER", "leadpilot-outreach"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "leadpilot-api"),
		AccessTTLMin:   getEnvInt("ACCESS_TTL_MIN", 15),
		RefreshTTLDays: getEnvInt("REFRESH_TTL_DAYS", 14),

		SenderServiceToken: getEnv("SENDER_SERVICE_TOKEN", ""),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("DB_NAME", "leadpilot"),

		AITimeoutMs: getEnvInt("AI_TIMEOUT_MS", 30000),
		FeatureAI:   getEnvBool("FEATURE_AI", true),

		OpenAIApiKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 2000),

		AnthropicApiKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		AnthropicMaxTokens: getEnvInt("ANTHROPIC_MAX_TOKENS", 2000),

		ResendApiKey:        getEnv("RESEND_API_KEY", ""),
		ResendFromEmail:     getEnv("RESEND_FROM_EMAIL", ""),
		ResendWebhookSecret: getEnv("RESEND_WEBHOOK_SECRET", ""),

		LeadGenBaseURL: getEnv("LEADGEN_BASE_URL", ""),
		LeadGenApiKey:  getEnv("LEADGEN_API_KEY", ""),

		SendDailyLimit:       getEnvInt("SEND_DAILY_LIMIT", 50),
		SendMinRecontactDays: getEnvInt("SEND_MIN_RECONTACT_DAYS", 7),
		SendWindowStart:      getEnv("SEND_WINDOW_START", "09:00"),
		SendWindowEnd:        getEnv("SEND_WINDOW_END", "18:00"),
		SendBlockedWeekdays:  getEnv("SEND_BLOCKED_WEEKDAYS", "0,6"),
		SendBatchLimit:       getEnvInt("SEND_BATCH_LIMIT", 20),
		SendClaimTTLMin:      getEnvInt("SEND_CLAIM_TTL_MIN", 30),
		RecontactFailOpen:    getEnvBool("RECONTACT_FAIL_OPEN", true),

		EmailDispatchEnabled:     getEnvBool("EMAIL_DISPATCH_ENABLED", false),
		EmailDispatchIntervalSec: getEnvInt("EMAIL_DISPATCH_INTERVAL_SEC", 120),

		APIRateLimitRPM: getEnvInt("API_RATE_LIMIT_RPM", 180),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		AllowSelfRegister:  getEnvBool("ALLOW_SELF_REGISTER", false),

		OTELEndpoint: getEnv("OTEL_ENDPOINT", ""),
		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
	}

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.TZ, err)
	}
	time.Local = loc

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}
