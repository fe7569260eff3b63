package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Access   AccessConfig
	Session  SessionConfig
	Alerts   AlertConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	BaseURL        string // public base for access links
	TrustedProxies []string
}

type AccessConfig struct {
	SessionSecret      string        // signs viewer session JWTs
	SessionTokenExpiry time.Duration // lifetime of the per-grant session JWT
	DefaultTTL         time.Duration // default token ttl at issuance
	DefaultMaxAccess   int           // advisory access cap
	MaxDistinctIPs     int           // distinct IPs allowed before revocation
	ValidatePerMinute  int           // rate limit on the public validate endpoint
}

type SessionConfig struct {
	HeartbeatInterval  time.Duration
	LivenessMultiplier int // liveness window = interval * multiplier
	MaxPagesPerMinute  int // reading-velocity threshold
}

type AlertConfig struct {
	AWSRegion       string
	FromAddress     string
	OperatorAddress string        // empty disables email notification
	CaptureCooldown time.Duration // per-type alert floor for capture events
	RetentionDays   int           // resolved-alert retention for cleanup
	CleanupInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatefold"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
		},
		Access: AccessConfig{
			SessionSecret:      sessionSecret,
			SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 12*time.Hour),
			DefaultTTL:         getEnvAsDuration("TOKEN_DEFAULT_TTL", 24*time.Hour),
			DefaultMaxAccess:   getEnvAsInt("TOKEN_DEFAULT_MAX_ACCESS", 999),
			MaxDistinctIPs:     getEnvAsInt("TOKEN_MAX_DISTINCT_IPS", 1),
			ValidatePerMinute:  getEnvAsInt("VALIDATE_RATE_PER_MINUTE", 10),
		},
		Session: SessionConfig{
			HeartbeatInterval:  getEnvAsDuration("HEARTBEAT_INTERVAL", 30*time.Second),
			LivenessMultiplier: getEnvAsInt("LIVENESS_MULTIPLIER", 3),
			MaxPagesPerMinute:  getEnvAsInt("MAX_PAGES_PER_MINUTE", 40),
		},
		Alerts: AlertConfig{
			AWSRegion:       getEnv("AWS_REGION", "eu-central-1"),
			FromAddress:     getEnv("ALERT_FROM_ADDRESS", ""),
			OperatorAddress: getEnv("ALERT_OPERATOR_ADDRESS", ""),
			CaptureCooldown: getEnvAsDuration("CAPTURE_ALERT_COOLDOWN", 5*time.Second),
			RetentionDays:   getEnvAsInt("ALERT_RETENTION_DAYS", 90),
			CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LivenessWindow returns the duration after which a silent session reads as inactive
func (c *SessionConfig) LivenessWindow() time.Duration {
	return c.HeartbeatInterval * time.Duration(c.LivenessMultiplier)
}

// validateSessionSecret enforces minimum strength for the session signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
