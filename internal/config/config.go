package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Ai       AIConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CacheLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	EventTopic         string
}

// DatabaseConfig selects the store. Driver is "sqlite", "postgres" or "memory";
// when unset, a Connection string selects postgres and anything else the local
// SQLite file.
type DatabaseConfig struct {
	Driver     string
	Connection string
	SQLitePath string
	Verbose    bool
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func (d DatabaseConfig) ResolvedDriver() string {
	if d.Driver != "" {
		return d.Driver
	}
	if d.Connection != "" {
		return DriverPostgres
	}
	return DriverSQLite
}

type CacheConfig struct {
	ConversationListTTL time.Duration
	NotesDebounce       time.Duration
	StoreTimeout        time.Duration
	InvalidationChannel string
}

type AIConfig struct {
	LLMProvider string // "none", "ollama", "openai"
	LLMBaseURL  string
	LLMModel    string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CacheLogFilePath:   getEnv("CACHE_LOG_FILE_PATH", "cache.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			EventTopic:         getEnv("EVENT_TOPIC_NAME", "CONVERSATION_EVENTS"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("STORE_DRIVER", ""),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			SQLitePath: getEnv("SQLITE_PATH", "data/topics.db"),
			Verbose:    getEnvAsBool("DB_VERBOSE", false),
		},
		Cache: CacheConfig{
			ConversationListTTL: getEnvAsDuration("CACHE_CONVERSATION_LIST_TTL", 5*time.Minute),
			NotesDebounce:       getEnvAsDuration("NOTES_AUTOSAVE_DEBOUNCE", time.Second),
			StoreTimeout:        getEnvAsDuration("STORE_REQUEST_TIMEOUT", 10*time.Second),
			InvalidationChannel: getEnv("CACHE_INVALIDATION_CHANNEL", "cache_invalidation"),
		},
		Ai: AIConfig{
			LLMProvider: getEnv("LLM_PROVIDER", "openai"),
			LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
			LLMModel:    getEnv("LLM_MODEL", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-topic-notes"),
		},
	}
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

// getEnvAsDuration accepts Go durations ("1500ms") or a bare number of milliseconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	if ms := getEnvAsInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
