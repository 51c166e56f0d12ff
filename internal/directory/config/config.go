// Package config loads the service settings from a YAML file, an optional
// .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its YAML file.
const DefaultPath = "internal/directory/config/config.yaml"

// Config struct for YAML configuration. Every key can be overridden by the
// environment variable of the same name.
type Config struct {
	GRPCPort       int           `yaml:"GRPC_PORT" env:"GRPC_PORT"`
	HTTPPort       int           `yaml:"HTTP_PORT" env:"HTTP_PORT"`
	DBDriver       string        `yaml:"DB_DRIVER" env:"DB_DRIVER"`
	DBHost         string        `yaml:"DB_HOST" env:"DB_HOST"`
	DBPort         int           `yaml:"DB_PORT" env:"DB_PORT"`
	DBUser         string        `yaml:"DB_USER" env:"DB_USER"`
	DBPassword     string        `yaml:"DB_PASSWORD" env:"DB_PASSWORD"`
	DBName         string        `yaml:"DB_NAME" env:"DB_NAME"`
	DBSSLMode      string        `yaml:"DB_SSLMODE" env:"DB_SSLMODE"`
	DBDSN          string        `yaml:"DB_DSN" env:"DB_DSN"`
	DBMaxOpenConns int           `yaml:"DB_MAX_OPEN_CONNS" env:"DB_MAX_OPEN_CONNS"`
	KafkaBrokers   []string      `yaml:"KAFKA_BROKERS" env:"KAFKA_BROKERS" envSeparator:","`
	Topic          string        `yaml:"TOPIC" env:"TOPIC"`
	ConsumerGroup  string        `yaml:"CONSUMER_GROUP" env:"CONSUMER_GROUP"`
	JWTSecret      string        `yaml:"JWT_SECRET" env:"JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"TOKEN_TTL" env:"TOKEN_TTL"`
	RateLimit      int           `yaml:"RATE_LIMIT" env:"RATE_LIMIT"`
}

// Load reads path, then .env, then the environment. A missing YAML or
// .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.KafkaBrokers = lo.Compact(lo.Map(cfg.KafkaBrokers, func(broker string, _ int) string {
		return strings.TrimSpace(broker)
	}))
	return cfg, cfg.Validate()
}

// Default is the configuration of a local development run.
func Default() *Config {
	return &Config{
		GRPCPort:  50051,
		HTTPPort:  8080,
		DBDriver:  "postgres",
		DBHost:    "localhost",
		DBPort:    5432,
		DBSSLMode: "disable",
		Topic:     "directory-events",
		TokenTTL:  24 * time.Hour,
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.GRPCPort <= 0 || c.HTTPPort <= 0 {
		return errors.New("GRPC_PORT and HTTP_PORT must be positive")
	}
	if c.GRPCPort == c.HTTPPort {
		return errors.New("GRPC_PORT and HTTP_PORT must differ")
	}
	if c.DBDriver == "sqlite" && c.DBDSN == "" {
		return errors.New("DB_DSN is required for the sqlite driver")
	}
	return nil
}
