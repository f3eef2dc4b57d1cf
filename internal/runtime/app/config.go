package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/courseloop/runtimegw/pkg/jwtx"
)

type Config struct {
	Issuer      string // Required: issuer claim for launch and runtime tokens
	CallbackURL string // Optional: exchange URL embedded in launch tokens

	FeatureEnabled bool // Master switch for every runtime route

	PrivateKeyPEM   []byte // RS256 signing key (preferred)
	SymmetricSecret string // HS256 fallback secret, refused in production
	SessionSecret   string // Shared secret platform session tokens are signed with

	AllowedOrigins []string // Browser origins audience binding is enforced for

	LaunchTokenTTL  time.Duration
	RuntimeTokenTTL time.Duration

	AssetBaseURL      string
	AssetSecret       string
	AssetContentTypes []string
	AssetURLTTL       time.Duration

	CheckpointMaxBytes int

	DatabaseFile         string        // Path to SQLite database file (default: ./runtimegw.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	EventRetention       time.Duration // How long telemetry events are kept (default: 30 days)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:         getEnvOrDefault("RUNTIME_ISSUER", "courseloop-runtime"),
		CallbackURL:    os.Getenv("RUNTIME_CALLBACK_URL"),
		FeatureEnabled: getEnvBoolOrDefault("RUNTIME_V2_ENABLED", true),

		SymmetricSecret: os.Getenv("RUNTIME_SYMMETRIC_SECRET"),
		SessionSecret:   os.Getenv("PLATFORM_SESSION_SECRET"),

		AllowedOrigins: splitAndTrim(os.Getenv("ALLOWED_ORIGINS")),

		LaunchTokenTTL:  getEnvDurationOrDefault("LAUNCH_TOKEN_TTL", jwtx.DefaultLaunchTokenTTL),
		RuntimeTokenTTL: getEnvDurationOrDefault("RUNTIME_TOKEN_TTL", jwtx.DefaultRuntimeTokenTTL),

		AssetBaseURL: getEnvOrDefault("ASSET_BASE_URL", "http://localhost:9000"),
		AssetSecret:  os.Getenv("ASSET_SIGNING_SECRET"),
		AssetContentTypes: splitAndTrim(getEnvOrDefault(
			"ASSET_CONTENT_TYPES",
			"image/png,image/jpeg,image/gif,application/pdf,video/mp4",
		)),
		AssetURLTTL: getEnvDurationOrDefault("ASSET_URL_TTL", 15*time.Minute),

		CheckpointMaxBytes: getEnvIntOrDefault("CHECKPOINT_MAX_BYTES", 32*1024),

		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "runtimegw.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		EventRetention:       getEnvDurationOrDefault("EVENT_RETENTION", 30*24*time.Hour),
	}

	// Either inline PEM or a file path, inline winning when both are set.
	if pem := os.Getenv("RUNTIME_PRIVATE_KEY"); pem != "" {
		cfg.PrivateKeyPEM = []byte(pem)
	} else if path := os.Getenv("RUNTIME_PRIVATE_KEY_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.PrivateKeyPEM = data
	}

	return cfg, nil
}

// IsProduction reports whether the environment demands the strict signing
// policy (no symmetric fallback).
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Duration syntax first ("10m", "90s"), bare integers read as minutes.
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
