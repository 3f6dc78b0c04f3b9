// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Archive  ArchiveConfig
	AI       AIConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// DatabaseConfig holds catalog database configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file (default: {data}/librarium.db).
	Path string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Hex-encoded PASETO v4 symmetric key (32 bytes), loaded at startup
	AccessTokenKey string
	// Session durations
	AccessTokenDuration  time.Duration // e.g., 15m
	RefreshTokenDuration time.Duration // e.g., 720h (30 days)
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	// BasePath is the root directory for stored PDFs, covers, and caches
	// (default: ~/Librarium/data).
	BasePath string
	// CachePath is the directory for the archive metadata cache
	// (default: {base}/cache/archive).
	CachePath string
}

// ArchiveConfig holds external text-archive configuration.
type ArchiveConfig struct {
	// BaseURL of the public-domain archive API.
	BaseURL string
	// RequestsPerSecond bounds outbound archive calls.
	RequestsPerSecond float64
}

// AIConfig holds configuration for the external AI endpoint used by the
// genre classifier and the librarian assistant.
type AIConfig struct {
	// APIKey for the AI endpoint. Empty key disables all AI features.
	APIKey string
	// Model identifies which model is requested.
	Model string
	// Timeout bounds a single AI call (default: 10s).
	Timeout time.Duration
	// ClassificationEnabled toggles genre classification during ingestion.
	ClassificationEnabled bool
	// MockMode substitutes deterministic local responders for network calls.
	MockMode bool
}

// ClassificationActive reports whether classification may issue network
// calls. A missing API key is equivalent to the feature being disabled,
// unless the mock responder is in use.
func (c AIConfig) ClassificationActive() bool {
	if !c.ClassificationEnabled {
		return false
	}
	return c.MockMode || c.APIKey != ""
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	dbPath := flag.String("db-path", "", "Path to the SQLite catalog database")
	storagePath := flag.String("storage-path", "", "Base path for stored PDFs and covers")
	cachePath := flag.String("cache-path", "", "Path for the archive metadata cache")

	archiveURL := flag.String("archive-url", "", "Base URL of the text archive API")

	// Auth flags
	accessTokenDuration := flag.String("access-token-duration", "", "Access token lifetime (e.g., 15m)")
	refreshTokenDuration := flag.String("refresh-token-duration", "", "Refresh token lifetime (e.g., 720h)")

	// AI flags
	aiModel := flag.String("ai-model", "", "AI model identifier")
	aiTimeout := flag.String("ai-timeout", "", "Per-call AI timeout (default: 10s)")
	classifyEnabled := flag.String("classification-enabled", "", "Enable genre classification during ingest (default: true)")
	aiMock := flag.String("ai-mock", "", "Use deterministic mock AI responders (default: false)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Librarium Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Path: getConfigValue(*dbPath, "DATABASE_PATH", ""),
		},
		Storage: StorageConfig{
			BasePath:  getConfigValue(*storagePath, "STORAGE_PATH", ""),
			CachePath: getConfigValue(*cachePath, "ARCHIVE_CACHE_PATH", ""),
		},
		Archive: ArchiveConfig{
			BaseURL:           getConfigValue(*archiveURL, "ARCHIVE_URL", "https://archive.org"),
			RequestsPerSecond: 1.0,
		},
		AI: AIConfig{
			APIKey:                getConfigValue("", "AI_API_KEY", ""),
			Model:                 getConfigValue(*aiModel, "AI_MODEL", "gpt-4o-mini"),
			ClassificationEnabled: getBoolConfigValue(*classifyEnabled, "CLASSIFICATION_ENABLED", true),
			MockMode:              getBoolConfigValue(*aiMock, "AI_MOCK", false),
		},
	}

	// Parse auth durations.
	accessDurationStr := getConfigValue(*accessTokenDuration, "ACCESS_TOKEN_DURATION", "15m")
	accessDuration, err := time.ParseDuration(accessDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid access token duration %q: %w", accessDurationStr, err)
	}
	cfg.Auth.AccessTokenDuration = accessDuration

	refreshDurationStr := getConfigValue(*refreshTokenDuration, "REFRESH_TOKEN_DURATION", "720h")
	refreshDuration, err := time.ParseDuration(refreshDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token duration %q: %w", refreshDurationStr, err)
	}
	cfg.Auth.RefreshTokenDuration = refreshDuration

	// Parse server timeouts.
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	// Parse AI timeout.
	cfg.AI.Timeout, err = parseDurationValue(*aiTimeout, "AI_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	// Expand and validate storage paths.
	if err := cfg.expandStoragePaths(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.BasePath == "" {
		return errors.New("storage base path cannot be empty after expansion")
	}

	if c.Archive.BaseURL == "" {
		return errors.New("archive URL cannot be empty")
	}

	if c.AI.Timeout <= 0 {
		return errors.New("AI timeout must be positive")
	}

	return nil
}

// expandStoragePaths expands ~ and makes storage paths absolute, filling
// in defaults derived from the base path.
func (c *Config) expandStoragePaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base, err := expandPath(c.Storage.BasePath, filepath.Join(homeDir, "Librarium", "data"))
	if err != nil {
		return err
	}
	c.Storage.BasePath = base

	cache, err := expandPath(c.Storage.CachePath, filepath.Join(base, "cache", "archive"))
	if err != nil {
		return err
	}
	c.Storage.CachePath = cache

	db, err := expandPath(c.Database.Path, filepath.Join(base, "librarium.db"))
	if err != nil {
		return err
	}
	c.Database.Path = db

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), str, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
