package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Database holds the connection settings for the relational store.
type Database struct {
	Driver       string `env:"DB_DRIVER" env-default:"sqlite" env-description:"sqlite or mysql"`
	Path         string `env:"DB_PATH" env-default:"expenses.db" env-description:"SQLite database file"`
	Host         string `env:"DB_HOST" env-default:"localhost"`
	Port         int    `env:"DB_PORT" env-default:"3306"`
	User         string `env:"DB_USER"`
	Password     string `env:"DB_PASSWORD"`
	Name         string `env:"DB_NAME"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" env-default:"10" env-description:"connection pool size"`
}

// Config is the complete server configuration, read from the environment.
type Config struct {
	Port     string   `env:"PORT" env-default:"4000"`
	Database Database

	SessionSecret string        `env:"SESSION_SECRET" env-description:"HMAC key for session tokens"`
	SessionTTL    time.Duration `env:"SESSION_TTL" env-default:"720h"`
	SecureCookie  bool          `env:"SECURE_COOKIE" env-default:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:","`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	AdminUser     string `env:"ADMIN_USER"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load reads a .env file when one exists, then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	drivers := []string{DriverSQLite, DriverMySQL}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			problems = append(problems, "DB_PATH cannot be empty when using the sqlite driver")
		}
	case DriverMySQL:
		if c.Database.Host == "" {
			problems = append(problems, "DB_HOST is required when using the mysql driver")
		}
		if c.Database.User == "" {
			problems = append(problems, "DB_USER is required when using the mysql driver")
		}
		if c.Database.Name == "" {
			problems = append(problems, "DB_NAME is required when using the mysql driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid database driver '%s': must be one of %v", c.Database.Driver, drivers))
	}

	if c.Database.MaxOpenConns < 1 {
		problems = append(problems, fmt.Sprintf("invalid pool size %d: must be at least 1", c.Database.MaxOpenConns))
	}

	if c.SessionTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if (c.AdminUser == "") != (c.AdminPassword == "") {
		problems = append(problems, "ADMIN_USER and ADMIN_PASSWORD must be set together")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
}

// Usage describes every supported environment variable.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
