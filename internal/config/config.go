package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "your-super-secret-jwt-key-change-in-production"

type Config struct {
	Server ServerConfig `json:"server"`

	// MongoDB Configuration
	MongoDB MongoDBConfig `json:"mongodb"`

	// JWT Configuration
	JWT JWTConfig `json:"jwt"`

	// Rate limiting on the auth endpoints
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Redis Configuration (optional, shared rate limiting)
	Redis RedisConfig `json:"redis"`

	// Media / stories Configuration
	Media MediaConfig `json:"media"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string   `json:"port"`
	Host         string   `json:"host"`
	ReadTimeout  int      `json:"read_timeout"`
	WriteTimeout int      `json:"write_timeout"`
	Environment  string   `json:"environment"` // development, staging, production
	CORSOrigins  []string `json:"cors_origins"`
}

type MongoDBConfig struct {
	URL      string `json:"url"`
	Database string `json:"database"`
}

type JWTConfig struct {
	Secret          string `json:"-"`
	Algorithm       string `json:"algorithm"`
	ExpirationHours int    `json:"expiration_hours"`
}

type RateLimitConfig struct {
	RequestsPerSecond int  `json:"requests_per_second"`
	Burst             int  `json:"burst"`
	Enabled           bool `json:"enabled"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type MediaConfig struct {
	BaseURL            string        `json:"base_url"`
	MaxUploadBytes     int64         `json:"max_upload_bytes"`
	StorySweepInterval time.Duration `json:"story_sweep_interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, console
}

func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvOrDefault("SERVER_PORT", "8000"),
			ReadTimeout:  getEnvInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("WRITE_TIMEOUT", 30),
			Environment:  getEnvOrDefault("ENVIRONMENT", "development"),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		MongoDB: MongoDBConfig{
			URL:      getEnvOrDefault("MONGO_URL", "mongodb://localhost:27017"),
			Database: getEnvOrDefault("DB_NAME", "medious"),
		},
		JWT: JWTConfig{
			Secret:          getEnvOrDefault("JWT_SECRET", DefaultJWTSecret),
			Algorithm:       getEnvOrDefault("JWT_ALGORITHM", "HS256"),
			ExpirationHours: getEnvInt("JWT_EXPIRATION_HOURS", 24),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvInt("RATE_LIMIT_RPS", 10),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 20),
			Enabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Media: MediaConfig{
			BaseURL:            strings.TrimRight(getEnvOrDefault("MEDIA_BASE_URL", "/api/media"), "/"),
			MaxUploadBytes:     int64(getEnvInt("MEDIA_MAX_BYTES", 10<<20)),
			StorySweepInterval: getEnvDuration("STORY_SWEEP_INTERVAL", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects settings the server cannot safely start with.
func (cfg *Config) Validate() error {
	switch cfg.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported JWT_ALGORITHM %q", cfg.JWT.Algorithm)
	}
	if cfg.JWT.ExpirationHours <= 0 {
		return errors.New("JWT_EXPIRATION_HOURS must be positive")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if cfg.IsProduction() && cfg.JWT.Secret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if cfg.MongoDB.URL == "" || cfg.MongoDB.Database == "" {
		return errors.New("MONGO_URL and DB_NAME are required")
	}
	return nil
}

func (cfg *Config) IsProduction() bool {
	return strings.EqualFold(cfg.Server.Environment, "production")
}

func (cfg *Config) Addr() string {
	return fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
}

func (cfg *Config) TokenTTL() time.Duration {
	return time.Duration(cfg.JWT.ExpirationHours) * time.Hour
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
