package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Case         CaseConfig
	Ingest       IngestConfig
	Scheduler    SchedulerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters. Identity itself is owned
// by the external provider; this service only verifies the role-bearing token.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// CaseConfig controls case identifier generation.
type CaseConfig struct {
	IDPrefix      string
	EraYearOffset int
	SeqMaxRetries int
}

// IngestConfig locates the declarative per-source mapping file.
type IngestConfig struct {
	MappingPath string
}

// SchedulerConfig controls background job cadence.
type SchedulerConfig struct {
	SLARecomputeMinutes   int
	SummaryRefreshMinutes int
	SLAConfigCacheSeconds int
}

// NotificationConfig holds outbound notification settings.
type NotificationConfig struct {
	QueueKey   string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "case-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Case: CaseConfig{
			IDPrefix: getEnv("CASE_ID_PREFIX", "DRR"),
			// Buddhist-era year numbering by default.
			EraYearOffset: getEnvAsInt("CASE_ERA_YEAR_OFFSET", 543),
			SeqMaxRetries: getEnvAsInt("CASE_SEQ_MAX_RETRIES", 5),
		},
		Ingest: IngestConfig{
			MappingPath: getEnv("INGEST_MAPPING_PATH", "config/mappings.yaml"),
		},
		Scheduler: SchedulerConfig{
			SLARecomputeMinutes:   getEnvAsInt("SLA_RECOMPUTE_INTERVAL_MINUTES", 30),
			SummaryRefreshMinutes: getEnvAsInt("SUMMARY_REFRESH_INTERVAL_MINUTES", 60),
			SLAConfigCacheSeconds: getEnvAsInt("SLA_CONFIG_CACHE_SECONDS", 300),
		},
		Notification: NotificationConfig{
			QueueKey:   getEnv("NOTIFY_QUEUE_KEY", "case-service:notifications"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SLAConfigCacheTTL returns the bounded staleness window for cached SLA rows.
func (s SchedulerConfig) SLAConfigCacheTTL() time.Duration {
	if s.SLAConfigCacheSeconds <= 0 {
		return 0
	}
	return time.Duration(s.SLAConfigCacheSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
