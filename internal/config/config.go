package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Realtime RealtimeConfig
	Cache    CacheConfig
	Store    StoreConfig
	Prefs    PrefsConfig
}

type AppConfig struct {
	Port        string
	Environment string
	LogFilePath string

	// Realtime traffic is chatty, so it gets a file of its own instead of
	// flooding the console output.
	RealtimeLogPath string
}

type APIConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

type RealtimeConfig struct {
	Enabled bool
	// Base URL of the realtime endpoint (ws:// or wss://). When empty it is
	// derived from the API base URL.
	Endpoint     string
	PathSuffix   string
	DialTimeout  time.Duration
	SkipPrefixes []string

	HeartbeatInterval  time.Duration
	HeartbeatTimeout   time.Duration
	HeartbeatThreshold int

	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectFactor      float64
	ReconnectMaxAttempts int

	// How long terminal processing updates linger before removal.
	ProcessingRetention time.Duration
}

type CacheConfig struct {
	ListTTL   time.Duration
	DetailTTL time.Duration
}

type StoreConfig struct {
	BulkChunkSize  int
	SearchDebounce time.Duration
}

type PrefsConfig struct {
	DBPath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:            getEnv("APP_PORT", "7855"),
			Environment:     getEnv("GO_ENV", "development"),
			LogFilePath:     getEnv("LOG_FILE_PATH", "console.log"),
			RealtimeLogPath: getEnv("REALTIME_LOG_FILE_PATH", "realtime.log"),
		},
		API: APIConfig{
			BaseURL:    getEnv("FEEDME_API_BASE_URL", "http://localhost:8000/api/v1/feedme"),
			Token:      getEnv("FEEDME_API_TOKEN", ""),
			Timeout:    getEnvAsDuration("FEEDME_API_TIMEOUT", 15*time.Second),
			MaxRetries: getEnvAsInt("FEEDME_API_MAX_RETRIES", 3),
		},
		Realtime: RealtimeConfig{
			Enabled:      getEnvAsBool("REALTIME_ENABLED", true),
			Endpoint:     getEnv("REALTIME_ENDPOINT", ""),
			PathSuffix:   getEnv("REALTIME_PATH_SUFFIX", "/ws/updates"),
			DialTimeout:  getEnvAsDuration("REALTIME_DIAL_TIMEOUT", 10*time.Second),
			SkipPrefixes: getEnvAsList("REALTIME_SKIP_PREFIXES", "/settings,/account"),

			// Interval + timeout must stay below the server idle timeout,
			// revalidate these when pointing at a different backend.
			HeartbeatInterval:  getEnvAsDuration("HEARTBEAT_INTERVAL", 25*time.Second),
			HeartbeatTimeout:   getEnvAsDuration("HEARTBEAT_TIMEOUT", 4*time.Second),
			HeartbeatThreshold: getEnvAsInt("HEARTBEAT_FAILURE_THRESHOLD", 3),

			ReconnectBaseDelay:   getEnvAsDuration("RECONNECT_BASE_DELAY", time.Second),
			ReconnectMaxDelay:    getEnvAsDuration("RECONNECT_MAX_DELAY", 30*time.Second),
			ReconnectFactor:      getEnvAsFloat("RECONNECT_FACTOR", 2.0),
			ReconnectMaxAttempts: getEnvAsInt("RECONNECT_MAX_ATTEMPTS", 5),

			ProcessingRetention: getEnvAsDuration("PROCESSING_RETENTION", 5*time.Second),
		},
		Cache: CacheConfig{
			ListTTL:   getEnvAsDuration("CACHE_LIST_TTL", 5*time.Minute),
			DetailTTL: getEnvAsDuration("CACHE_DETAIL_TTL", 10*time.Minute),
		},
		Store: StoreConfig{
			BulkChunkSize:  getEnvAsInt("BULK_CHUNK_SIZE", 3),
			SearchDebounce: getEnvAsDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		},
		Prefs: PrefsConfig{
			DBPath: getEnv("PREFS_DB_PATH", defaultPrefsPath()),
		},
	}
}

// RealtimeURL resolves the websocket endpoint from explicit config or the API
// base URL (http -> ws, https -> wss).
func (c *Config) RealtimeURL() string {
	if c.Realtime.Endpoint != "" {
		return strings.TrimRight(c.Realtime.Endpoint, "/") + c.Realtime.PathSuffix
	}
	base := strings.TrimRight(c.API.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + c.Realtime.PathSuffix
}

// SkipsPath reports whether realtime should be skipped for the given logical
// view path (settings-like pages never need live updates).
func (c *RealtimeConfig) SkipsPath(path string) bool {
	for _, prefix := range c.SkipPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "feedme-console.db"
	}
	return home + "/.feedme-console/prefs.db"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	// Plain numbers are read as milliseconds, matching the backend's tunables.
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
