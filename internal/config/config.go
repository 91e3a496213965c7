package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all environmentally dependent settings for the BookVault API.
type Config struct {
	HTTPAddr        string
	DBPath          string
	DefaultTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Gemini text generation
	GeminiAPIKey string
	GeminiModel  string

	// Asset bucket
	GCSBucket          string
	GCSCredentialsFile string
	CDNDomain          string

	// External generation endpoints
	TTSURL      string
	ImageGenURL string

	// Identity
	AuthSecret string
}

// Validate ensures that all required configuration is present and valid.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("VAULT_GEMINI_API_KEY is required")
	}
	if c.GCSBucket == "" {
		return fmt.Errorf("VAULT_GCS_BUCKET is required")
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("VAULT_AUTH_SECRET is required")
	}
	return nil
}

// Load reads settings from environment variables with sensible defaults.
func Load() *Config {
	cfg := &Config{
		HTTPAddr:        getEnv("VAULT_HTTP_ADDR", ":8080"),
		DBPath:          getEnv("VAULT_DB_PATH", "bookvault.db"),
		DefaultTimeout:  getEnvDuration("VAULT_DEFAULT_TIMEOUT_SEC", 30) * time.Second,
		ShutdownTimeout: getEnvDuration("VAULT_SHUTDOWN_TIMEOUT_SEC", 10) * time.Second,

		GeminiAPIKey: getEnv("VAULT_GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("VAULT_GEMINI_MODEL", "gemini-2.0-flash"),

		GCSBucket:          getEnv("VAULT_GCS_BUCKET", ""),
		GCSCredentialsFile: getEnv("VAULT_GCS_CREDENTIALS_FILE", ""),
		CDNDomain:          getEnv("VAULT_CDN_DOMAIN", ""),

		TTSURL:      getEnv("VAULT_TTS_URL", "http://localhost:5002/api/tts"),
		ImageGenURL: getEnv("VAULT_IMAGE_GEN_URL", "https://image.pollinations.ai"),

		AuthSecret: getEnv("VAULT_AUTH_SECRET", ""),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Config] Validation failed: %v", err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return time.Duration(fallback)
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[Config] Warning: Invalid duration for %s: %v. Using fallback %d", key, err, fallback)
		return time.Duration(fallback)
	}
	return time.Duration(value)
}
