// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binary runs locally without any env setup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for Sous.
type Config struct {
	// HTTP
	HTTPHost string // SOUS_HTTP_HOST — default: "0.0.0.0"
	HTTPPort int    // SOUS_HTTP_PORT — default: 8080

	// Storage
	DBPath string // SOUS_DB_PATH — default: "sous.db"

	// Inference gateway
	GatewayBaseURL string        // SOUS_GATEWAY_URL — default: "http://localhost:8000"
	GatewayAPIKey  string        // SOUS_GATEWAY_API_KEY — default: "" (gateway may run unauthenticated locally)
	TiersFile      string        // SOUS_TIERS_FILE — default: "" (compiled-in tiers)
	CallTimeout    time.Duration // SOUS_CALL_TIMEOUT — default: 30s per provider call
	MaxRetries     int           // SOUS_MAX_RETRIES — default: 3

	// Orchestration
	MaxToolRounds   int           // SOUS_MAX_TOOL_ROUNDS — default: 4
	ConversationTTL time.Duration // SOUS_CONVERSATION_TTL — default: 2h

	// Cache
	CacheMemEntries int           // SOUS_CACHE_MEM_ENTRIES — default: 512
	CacheTTL        time.Duration // SOUS_CACHE_TTL — default: 24h

	// Auth
	AccessSecretHash string // SOUS_ACCESS_SECRET_HASH — bcrypt hash for the token endpoint

	// Logging
	LogLevel  string // SOUS_LOG_LEVEL — default: "info"
	LogPretty bool   // SOUS_LOG_PRETTY — default: false
}

const (
	envKeyHTTPHost         = "SOUS_HTTP_HOST"
	envKeyHTTPPort         = "SOUS_HTTP_PORT"
	envKeyDBPath           = "SOUS_DB_PATH"
	envKeyGatewayURL       = "SOUS_GATEWAY_URL"
	envKeyGatewayAPIKey    = "SOUS_GATEWAY_API_KEY"
	envKeyTiersFile        = "SOUS_TIERS_FILE"
	envKeyCallTimeout      = "SOUS_CALL_TIMEOUT"
	envKeyMaxRetries       = "SOUS_MAX_RETRIES"
	envKeyMaxToolRounds    = "SOUS_MAX_TOOL_ROUNDS"
	envKeyConversationTTL  = "SOUS_CONVERSATION_TTL"
	envKeyCacheMemEntries  = "SOUS_CACHE_MEM_ENTRIES"
	envKeyCacheTTL         = "SOUS_CACHE_TTL"
	envKeyAccessSecretHash = "SOUS_ACCESS_SECRET_HASH"
	envKeyLogLevel         = "SOUS_LOG_LEVEL"
	envKeyLogPretty        = "SOUS_LOG_PRETTY"
)

// Load reads configuration from environment variables, applying defaults for missing values.
func Load() Config {
	return Config{
		HTTPHost:         envOr(envKeyHTTPHost, "0.0.0.0"),
		HTTPPort:         envOrInt(envKeyHTTPPort, 8080),
		DBPath:           envOr(envKeyDBPath, "sous.db"),
		GatewayBaseURL:   envOr(envKeyGatewayURL, "http://localhost:8000"),
		GatewayAPIKey:    envOr(envKeyGatewayAPIKey, ""),
		TiersFile:        envOr(envKeyTiersFile, ""),
		CallTimeout:      envOrDuration(envKeyCallTimeout, 30*time.Second),
		MaxRetries:       envOrInt(envKeyMaxRetries, 3),
		MaxToolRounds:    envOrInt(envKeyMaxToolRounds, 4),
		ConversationTTL:  envOrDuration(envKeyConversationTTL, 2*time.Hour),
		CacheMemEntries:  envOrInt(envKeyCacheMemEntries, 512),
		CacheTTL:         envOrDuration(envKeyCacheTTL, 24*time.Hour),
		AccessSecretHash: envOr(envKeyAccessSecretHash, ""),
		LogLevel:         envOr(envKeyLogLevel, "info"),
		LogPretty:        envOrBool(envKeyLogPretty, false),
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOrInt returns the integer value of key, or fallback if unset or invalid.
func envOrInt(key string, fallback int) int {
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

// envOrDuration returns the duration value of key, or fallback if unset or invalid.
func envOrDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// envOrBool returns the boolean value of key, or fallback if unset or invalid.
func envOrBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
