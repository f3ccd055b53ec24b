package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
)

type Config struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	CartDriver    string        `mapstructure:"CART_DRIVER"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	CartTTL       time.Duration `mapstructure:"CART_TTL"`

	KafkaBrokers     string `mapstructure:"KAFKA_BROKERS"`
	OrderEventsTopic string `mapstructure:"ORDER_EVENTS_TOPIC"`

	GeminiAPIKey  string `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL string `mapstructure:"GEMINI_BASE_URL"`
	GeminiModel   string `mapstructure:"GEMINI_MODEL"`

	AdminUserID string `mapstructure:"ADMIN_USER_ID"`
	AdminEmail  string `mapstructure:"ADMIN_EMAIL"`

	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogFormat      string `mapstructure:"LOG_FORMAT"`
	TracingEnabled bool   `mapstructure:"TRACING_ENABLED"`
}

var defaults = map[string]any{
	"HTTP_PORT":          "8080",
	"STORE_DRIVER":       DriverMemory,
	"MONGO_URI":          "mongodb://localhost:27017/?replicaSet=rs0",
	"MONGO_DB_NAME":      "agriconnect",
	"CART_DRIVER":        DriverMemory,
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"CART_TTL":           24 * time.Hour,
	"KAFKA_BROKERS":      "",
	"ORDER_EVENTS_TOPIC": "order-events",
	"GEMINI_API_KEY":     "",
	"GEMINI_BASE_URL":    "https://generativelanguage.googleapis.com/v1beta",
	"GEMINI_MODEL":       "gemini-2.0-flash",
	"ADMIN_USER_ID":      "",
	"ADMIN_EMAIL":        "admin@example.com",
	"REQUEST_TIMEOUT":    30 * time.Second,
	"SHUTDOWN_TIMEOUT":   10 * time.Second,
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "json",
	"TRACING_ENABLED":    false,
}

// Load reads configuration from the environment, optionally layered over
// the file named by CONFIG_FILE (.env, yaml or json).
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.StoreDriver != DriverMemory && c.StoreDriver != DriverMongo {
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMemory, DriverMongo, c.StoreDriver))
	}
	if c.CartDriver != DriverMemory && c.CartDriver != DriverRedis {
		errs = append(errs, fmt.Errorf("CART_DRIVER must be %q or %q, got %q", DriverMemory, DriverRedis, c.CartDriver))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if c.CartTTL <= 0 {
		errs = append(errs, errors.New("CART_TTL must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Brokers splits KAFKA_BROKERS. An empty result disables event publishing.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
