package server

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int

	DBPath          string
	PolicyTermsPath string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	RedisAddr string

	FraudThreshold     float64
	NarrateTimeoutSecs int
	PendingReviewLimit int

	RequireAuth bool
	JWTSecret   string
}

func LoadConfig() Config {
	return Config{
		Port:            getEnvInt("PORT", 8080),
		ReadTimeout:     getEnvInt("READ_TIMEOUT", 30),
		WriteTimeout:    getEnvInt("WRITE_TIMEOUT", 120),
		ShutdownTimeout: getEnvInt("SHUTDOWN_TIMEOUT", 10),

		DBPath:          getEnv("DB_PATH", "./data/decisions.db"),
		PolicyTermsPath: getEnv("POLICY_TERMS_PATH", "./config/policy_terms.json"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		FraudThreshold:     getEnvFloat("FRAUD_HIGH_VALUE_THRESHOLD", 0),
		NarrateTimeoutSecs: getEnvInt("NARRATE_TIMEOUT", 60),
		PendingReviewLimit: getEnvInt("PENDING_REVIEW_LIMIT", 100),

		RequireAuth: getEnv("REQUIRE_AUTH", "false") == "true",
		JWTSecret:   getEnv("JWT_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}
