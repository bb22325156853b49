package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Outbound SMS (Azure Communication Services)
	FromNumber   string
	ACSEndpoint  string
	ACSAccessKey string
	ACSTimeout   time.Duration

	// Language model
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	MaxReplyTokens int
	HistoryWindow  int

	// Background processing
	UseMemoryQueue       bool
	WorkerCount          int
	ConversationQueueURL string

	// AWS (Bedrock + optional SQS)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Webhook dedupe
	RedisAddr     string
	RedisPassword string

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		FromNumber:   getEnv("PHONE_NUMBER", ""),
		ACSEndpoint:  getEnv("ACS_ENDPOINT", ""),
		ACSAccessKey: getEnv("ACS_ACCESS_KEY", ""),
		ACSTimeout:   getEnvAsDuration("ACS_TIMEOUT", 10*time.Second),

		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", ""),
		MaxReplyTokens: getEnvAsInt("MAX_REPLY_TOKENS", 100),
		HistoryWindow:  getEnvAsInt("HISTORY_WINDOW", 40),

		UseMemoryQueue:       getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),
		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
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
