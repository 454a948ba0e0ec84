package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all gateway configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	R4       R4Config
	Security SecurityConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	MetricsPort     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// DatabaseConfig holds MySQL configuration
type DatabaseConfig struct {
	Host           string
	Port           int
	Name           string
	User           string
	Password       string
	MaxOpenConns   int
	MinIdleConns   int
	ConnectTimeout time.Duration
	MaxLifetime    time.Duration
}

// DSN builds the driver connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.ConnectTimeout)
}

// R4Config holds the upstream bank-network credentials and endpoints
type R4Config struct {
	BaseURL        string
	MerchantID     string
	SecretKey      string // HMAC signing key
	AuthToken      string // UUID expected on token-only endpoints
	RequestTimeout time.Duration

	// SecretFromMerchant is set when SecretKey fell back to MerchantID.
	// Kept visible so startup can warn about the legacy key layout.
	SecretFromMerchant bool
}

// SecurityConfig holds the inbound IP allow-list
type SecurityConfig struct {
	AllowedIPs []string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			MetricsPort:     getEnv("METRICS_PORT", "9090"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 50),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 100),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 3306),
			Name:           getEnv("DB_NAME", "lysto"),
			User:           getEnv("DB_USER", ""),
			Password:       getEnv("DB_PASSWORD", ""),
			MaxOpenConns:   getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MinIdleConns:   getEnvAsInt("DB_MIN_IDLE_CONNS", 1),
			ConnectTimeout: getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			MaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		R4: R4Config{
			BaseURL:        getEnv("R4_BASE_URL", ""),
			MerchantID:     getEnv("R4_MERCHANT_ID", ""),
			SecretKey:      getEnv("R4_SECRET_KEY", ""),
			AuthToken:      getEnv("R4_AUTH_TOKEN", ""),
			RequestTimeout: getEnvAsDuration("R4_REQUEST_TIMEOUT", 30*time.Second),
		},
		Security: SecurityConfig{
			AllowedIPs: getEnvAsSlice("BANCO_IPS_PERMITIDAS", nil),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Legacy deployments provision only the merchant id and sign with it.
	if cfg.R4.SecretKey == "" {
		cfg.R4.SecretKey = cfg.R4.MerchantID
		cfg.R4.SecretFromMerchant = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks required fields
func (c *Config) validate() error {
	var missing []string
	if c.Database.User == "" {
		missing = append(missing, "DB_USER")
	}
	if c.Database.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if c.R4.MerchantID == "" {
		missing = append(missing, "R4_MERCHANT_ID")
	}
	if c.R4.AuthToken == "" {
		missing = append(missing, "R4_AUTH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.Database.MaxOpenConns < c.Database.MinIdleConns {
		return fmt.Errorf("DB_MAX_OPEN_CONNS (%d) must be >= DB_MIN_IDLE_CONNS (%d)",
			c.Database.MaxOpenConns, c.Database.MinIdleConns)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration, accepting
// Go duration strings or bare seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsSlice gets a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
