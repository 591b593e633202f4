// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	AI       AIConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings. DSNOverride, when
// set from DATABASE_DSN, wins over the individual fields.
type DatabaseConfig struct {
	DSNOverride string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	Debug       bool
}

// MigrationMode selects how the schema is brought up to date at startup.
type MigrationMode string

const (
	MigrateAuto MigrationMode = "auto" // gorm AutoMigrate
	MigrateSQL  MigrationMode = "sql"  // golang-migrate, embedded SQL files
	MigrateOff  MigrationMode = "off"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev           bool
	Migrations    MigrationMode
	SessionSecret string
	// DefaultLang is used when the request carries no language preference.
	DefaultLang string
}

// AIConfig holds the generative model settings.
type AIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// MetricsTimeout bounds each metrics source fetch before generation.
	MetricsTimeout time.Duration
}

// Enabled reports whether an API key is configured.
func (a AIConfig) Enabled() bool { return a.APIKey != "" }

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level  string
	Format string // json | console
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.DSNOverride != "" {
		return d.DSNOverride
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads .env when present, then the environment.
// It uses sensible defaults for local development.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() *Config {
	dev := getEnvBool("DEV", false)
	logFormat := "json"
	if dev {
		logFormat = "console"
	}
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			DSNOverride: strings.Trim(strings.TrimSpace(os.Getenv("DATABASE_DSN")), "\"'"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "seo"),
			Password:    getEnv("DB_PASSWORD", "seo"),
			DBName:      getEnv("DB_NAME", "seo_backoffice"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			Debug:       getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:           dev,
			Migrations:    parseMigrationMode(getEnv("MIGRATIONS", string(MigrateAuto))),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			DefaultLang:   getEnv("DEFAULT_LANG", "fr"),
		},
		AI: AIConfig{
			APIKey:         getEnv("GENAI_API_KEY", ""),
			Model:          getEnv("GENAI_MODEL", "gemini-2.5-flash"),
			Timeout:        getEnvDuration("AI_TIMEOUT", 60*time.Second),
			MetricsTimeout: getEnvDuration("METRICS_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", logFormat),
		},
	}
}

// Validate reports settings that cannot work outside development.
func (c *Config) Validate() error {
	if !c.App.Dev && len(c.App.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters outside dev mode")
	}
	return nil
}

func parseMigrationMode(v string) MigrationMode {
	switch strings.ToLower(v) {
	case "sql":
		return MigrateSQL
	case "off", "0", "false", "no":
		return MigrateOff
	default:
		return MigrateAuto
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	value = strings.ToLower(value)
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration accepts Go durations ("90s", "2m") or a bare number of
// seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
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
