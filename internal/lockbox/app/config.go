package app

import (
	"os"
	"strconv"
	"time"

	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for tokens (default: lockbox)

	Algorithm      string // JWT signing algorithm (RS256, EdDSA) (default: RS256)
	RSABits        int    // RSA key size for RS256 (default: 2048)
	PrivateKeyPath string // Optional: PEM private key; empty = ephemeral key per start
	ClockLeeway    time.Duration

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	InviteHMACSecret string // Required in prod: key for invite token digests
	DatabaseFile     string // Path to SQLite database file (default: ./lockbox.db)
	PepperFile       string // Path to password pepper file (default: ./pepper)

	BlobDir           string // Object store root directory (default: ./blobs)
	BlobBaseURL       string // Public base URL for presigned blob URLs
	BlobSigningSecret string // Required in prod: key for presigned URL signatures

	Env                  string // Environment (dev, staging, prod) (default: dev)
	LogLevel             string // Log level (debug, info, warn, error) (default: info)
	LogFormat            string // Log format (json, text) (default: json)
	Port                 int    // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:            getEnvOrDefault("LOCKBOX_ISSUER", "lockbox"),
		Algorithm:         getEnvOrDefault("LOCKBOX_ALGORITHM", "RS256"),
		PrivateKeyPath:    os.Getenv("LOCKBOX_PRIVATE_KEY_PATH"),
		ClockLeeway:       getEnvDurationOrDefault("LOCKBOX_CLOCK_LEEWAY", jwtx.DefaultLeeway),
		AccessTokenTTL:    getEnvDurationOrDefault("LOCKBOX_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL:   getEnvDurationOrDefault("LOCKBOX_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		InviteHMACSecret:  os.Getenv("LOCKBOX_INVITE_HMAC_SECRET"),
		DatabaseFile:      getEnvOrDefault("LOCKBOX_DATABASE_FILE", "lockbox.db"),
		PepperFile:        getEnvOrDefault("LOCKBOX_PEPPER_FILE", "pepper"),
		BlobDir:           getEnvOrDefault("LOCKBOX_BLOB_DIR", "blobs"),
		BlobBaseURL:       getEnvOrDefault("LOCKBOX_BLOB_BASE_URL", "http://localhost:8080/blobs"),
		BlobSigningSecret: os.Getenv("LOCKBOX_BLOB_SIGNING_SECRET"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if rsaBitsStr := os.Getenv("LOCKBOX_RSA_BITS"); rsaBitsStr != "" {
		if bits, err := strconv.Atoi(rsaBitsStr); err == nil {
			cfg.RSABits = bits
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
