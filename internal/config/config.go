package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const DefaultDispatchURL = "https://us-central1-exalted-yeti2.cloudfunctions.net/addDiary"

type Config struct {
	// Server
	Port string
	Env  string

	// Application namespace used in document paths
	AppID string

	// Document store
	DatabaseURL string
	RedisURL    string

	// Identity
	JWTSecret         string
	CustomTokenSecret string
	SessionTTLHours   int

	// Gemini AI (optional: missing key disables AI features only)
	GeminiAPIKey         string
	GeminiModel          string
	GeminiImageModel     string
	GeminiBaseURL        string
	GeminiConcurrentReqs int

	// Diary dispatch
	DispatchURL string

	// Logging
	LogFile string

	// Frontend
	FrontendURL string
}

// StoreConfig is the JSON blob form of the document store configuration.
type StoreConfig struct {
	DatabaseURL string `json:"database_url"`
	RedisURL    string `json:"redis_url"`
}

// AIEnabled reports whether the generation API key was supplied.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	store := loadStoreConfig()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		AppID:                getEnvOrDefault("APP_ID", "ai-learning-diary"),
		DatabaseURL:          store.DatabaseURL,
		RedisURL:             store.RedisURL,
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		CustomTokenSecret:    getEnvOrDefault("CUSTOM_TOKEN_SECRET", ""),
		SessionTTLHours:      getEnvAsIntOrDefault("SESSION_TTL_HOURS", 24*30),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiImageModel:     getEnvOrDefault("GEMINI_IMAGE_MODEL", "imagen-3.0-generate-002"),
		GeminiBaseURL:        getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		DispatchURL:          getEnvOrDefault("DISPATCH_URL", DefaultDispatchURL),
		LogFile:              getEnvOrDefault("LOG_FILE", ""),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// loadStoreConfig reads STORE_CONFIG when present, otherwise the individual
// variables. A missing store configuration is fatal.
func loadStoreConfig() StoreConfig {
	if raw := os.Getenv("STORE_CONFIG"); raw != "" {
		sc, err := parseStoreConfig(raw)
		if err != nil {
			panic(err.Error())
		}
		return sc
	}
	return StoreConfig{
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
	}
}

func parseStoreConfig(raw string) (StoreConfig, error) {
	var sc StoreConfig
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		return sc, fmt.Errorf("STORE_CONFIG is not valid JSON: %v", err)
	}
	if sc.DatabaseURL == "" || sc.RedisURL == "" {
		return sc, fmt.Errorf("STORE_CONFIG must set database_url and redis_url")
	}
	return sc, nil
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
