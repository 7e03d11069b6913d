// Package config loads deployment configuration from the environment,
// with an optional YAML file overriding defaults before env vars apply.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full deployment configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	AWS      AWSConfig     `yaml:"aws"`
	Storage  StorageConfig `yaml:"storage"`
	Features FeatureConfig `yaml:"features"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	Environment     string        `yaml:"environment"`
	LogLevel        string        `yaml:"log_level"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience"`
}

// AWSConfig holds the AWS client settings.
type AWSConfig struct {
	Region        string `yaml:"region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	Endpoint      string `yaml:"endpoint"` // non-empty for local DynamoDB
}

// StorageConfig selects the persistence drivers.
type StorageConfig struct {
	// NoteDriver is "memory" or "dynamodb".
	NoteDriver string `yaml:"note_driver"`
	// MapLibraryDriver is "sqlite" or "dynamodb".
	MapLibraryDriver string `yaml:"map_library_driver"`
	SQLitePath       string `yaml:"sqlite_path"`
}

// FeatureConfig toggles optional subsystems.
type FeatureConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableCORS    bool `yaml:"enable_cors"`
	RateLimitRPM  int  `yaml:"rate_limit_rpm"`
}

// Load builds the configuration. Precedence, lowest to highest: built-in
// defaults, the YAML file named by CONFIG_FILE, then environment
// variables. A .env file in the working directory is read first when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.Environment = getEnv("ENVIRONMENT", cfg.Server.Environment)
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", cfg.Server.LogLevel)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = getEnv("JWT_ISSUER", cfg.Auth.JWTIssuer)
	cfg.Auth.JWTAudience = getEnv("JWT_AUDIENCE", cfg.Auth.JWTAudience)

	cfg.AWS.Region = getEnv("AWS_REGION", cfg.AWS.Region)
	cfg.AWS.DynamoDBTable = getEnv("DYNAMODB_TABLE", cfg.AWS.DynamoDBTable)
	cfg.AWS.Endpoint = getEnv("AWS_ENDPOINT", cfg.AWS.Endpoint)

	cfg.Storage.NoteDriver = getEnv("NOTE_DRIVER", cfg.Storage.NoteDriver)
	cfg.Storage.MapLibraryDriver = getEnv("MAP_LIBRARY_DRIVER", cfg.Storage.MapLibraryDriver)
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)

	cfg.Features.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.Features.EnableMetrics)
	cfg.Features.EnableCORS = getEnvBool("ENABLE_CORS", cfg.Features.EnableCORS)
	cfg.Features.RateLimitRPM = getEnvInt("RATE_LIMIT_RPM", cfg.Features.RateLimitRPM)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			Environment:     "development",
			LogLevel:        "info",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			JWTIssuer:   "mindmesh",
			JWTAudience: "mindmesh-api",
		},
		AWS: AWSConfig{
			Region:        "us-east-1",
			DynamoDBTable: "mindmesh",
		},
		Storage: StorageConfig{
			NoteDriver:       "memory",
			MapLibraryDriver: "sqlite",
			SQLitePath:       "mindmesh.db",
		},
		Features: FeatureConfig{
			EnableMetrics: true,
			EnableCORS:    true,
			RateLimitRPM:  120,
		},
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	switch c.Storage.NoteDriver {
	case "memory", "dynamodb":
	default:
		return fmt.Errorf("unknown note driver %q", c.Storage.NoteDriver)
	}
	switch c.Storage.MapLibraryDriver {
	case "sqlite", "dynamodb":
	default:
		return fmt.Errorf("unknown map library driver %q", c.Storage.MapLibraryDriver)
	}
	if c.Storage.NoteDriver == "dynamodb" || c.Storage.MapLibraryDriver == "dynamodb" {
		if c.AWS.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb driver")
		}
	}
	if c.Features.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive, got %d", c.Features.RateLimitRPM)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
