package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// DataDir is the storage root. The collection file, the public payload
	// directory and the upload staging directory all live underneath it.
	DataDir string

	MaxUploadBytes  int64
	MaxRestoreBytes int64

	// RestoreSecret gates the destructive restore endpoint. It is a
	// server-side secret, unrelated to any per-quiz password.
	RestoreSecret string

	BcryptCost     int
	RatePerMinute  int
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "5000"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "pretty"),
		DataDir:         getEnv("DATA_DIR", "./data"),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 25)) * 1024 * 1024,
		MaxRestoreBytes: int64(getEnvInt("MAX_RESTORE_SIZE_MB", 500)) * 1024 * 1024,
		RestoreSecret:   getEnv("RESTORE_PASS", ""),
		BcryptCost:      getEnvInt("BCRYPT_COST", 10),
		RatePerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AllowedOrigins:  parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

// CollectionFile is the path of the persisted quiz metadata collection.
func (c *Config) CollectionFile() string {
	return filepath.Join(c.DataDir, "quizzes_metadata.json")
}

// PublicDir is the payload directory served at /public.
func (c *Config) PublicDir() string {
	return filepath.Join(c.DataDir, "public")
}

// StagingDir holds in-flight uploads before validation completes.
func (c *Config) StagingDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
