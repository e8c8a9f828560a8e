// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults that production refuses to run with.
const (
	defaultDBPassword = "changeme"
	devJWTSecret      = "dev-only-insecure-jwt-secret-change-me"
	minJWTSecretLen   = 32
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache and session store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Tokens
	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// S3-compatible object storage (optional)
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// Kafka (optional; events are only logged when unset)
	KafkaBrokers []string
	KafkaAdTopic string

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Ads
	AdServeLimit          int
	AdRereviewOnOwnerEdit bool

	// Background dispatch
	DispatchWorkers int
	DispatchQueue   int

	RateLimitPerMinute int
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. A .env file in the working directory
// is loaded first if present; real environment variables take precedence.
// Returns an error if a value is malformed or if critical values are
// missing in production mode.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "bizdir"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", defaultDBPassword),
		DBName:     envOrDefault("POSTGRES_DB", "bizdir"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTIssuer:  envOrDefault("JWT_ISSUER", "bizdir"),
		AccessTTL:  p.duration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: p.duration("JWT_REFRESH_TTL", 7*24*time.Hour),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "bizdir-public"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaAdTopic: envOrDefault("KAFKA_AD_TOPIC", "bizdir.ads.status"),

		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  p.integer("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: p.integer("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: p.integer("LOG_MAX_AGE_DAYS", 30),

		AdServeLimit:          clamp(p.integer("AD_SERVE_LIMIT", 5), 1, 10),
		AdRereviewOnOwnerEdit: p.boolean("AD_REREVIEW_ON_OWNER_EDIT", false),

		DispatchWorkers: p.integer("DISPATCH_WORKERS", 4),
		DispatchQueue:   p.integer("DISPATCH_QUEUE", 1024),

		RateLimitPerMinute: p.integer("RATE_LIMIT_PER_MINUTE", 120),
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == defaultDBPassword {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if len(cfg.JWTSecret) < minJWTSecretLen {
			return nil, fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLen)
		}
	} else if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parser collects typed-value errors so Load can report all of them.
type parser struct {
	errs []error
}

func (p *parser) integer(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return v
}

func (p *parser) boolean(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return v
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
