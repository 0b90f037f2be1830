package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here only
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Logging
	LogLevel  string
	LogFormat string

	// Screening profile (YAML); empty means built-in defaults
	ProfilePath string

	// API
	API APIConfig

	// Scheduled screening of a drop file
	Schedule ScheduleConfig
}

// APIConfig holds HTTP surface limits
type APIConfig struct {
	MaxUploadMB     int
	RateLimit       float64 // requests per second per client
	RateBurst       int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionTTL      time.Duration // idle uploads are dropped after this
}

// ScheduleConfig holds the cron drop-file job settings.
// Values here override the profile's schedule section when set.
type ScheduleConfig struct {
	Cron      string
	Input     string
	OutputDir string
}

// MaxUploadBytes returns the upload limit in bytes
func (a APIConfig) MaxUploadBytes() int64 {
	return int64(a.MaxUploadMB) << 20
}

// Load reads configuration from environment variables
// ⭐ SSOT: only this function calls os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		ProfilePath: getEnv("SCREENER_PROFILE", ""),

		API: APIConfig{
			MaxUploadMB:     getEnvAsInt("MAX_UPLOAD_MB", 20),
			RateLimit:       getEnvAsFloat("API_RATE_LIMIT", 5),
			RateBurst:       getEnvAsInt("API_RATE_BURST", 10),
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", "30s"),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", "30s"),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", "10s"),
			SessionTTL:      getEnvAsDuration("SESSION_TTL", "2h"),
		},

		Schedule: ScheduleConfig{
			Cron:      getEnv("SCHEDULE_CRON", ""),
			Input:     getEnv("SCHEDULE_INPUT", ""),
			OutputDir: getEnv("SCHEDULE_OUTPUT_DIR", ""),
		},
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.API.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	if c.API.RateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive")
	}

	if c.API.RateBurst <= 0 {
		return fmt.Errorf("API_RATE_BURST must be positive")
	}

	if c.API.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
